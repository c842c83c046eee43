package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// optionalDate parses s when set.
func optionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// dateOrToday parses s, defaulting to the current UTC day.
func dateOrToday(field, s string) (time.Time, error) {
	if s == "" {
		return domain.DateOf(time.Now()), nil
	}
	return domain.ParseDate(field, s)
}
