package domain

import (
	"time"

	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

// DateLayout is the wire format for work dates.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar day at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.InvalidInput(field, "invalid date format, expected YYYY-MM-DD")
	}
	return t, nil
}

// ValidateRange fails when from is after to.
func ValidateRange(from, to time.Time) error {
	if from.After(to) {
		return errors.InvalidInput("from", "range start must not be after range end")
	}
	return nil
}
