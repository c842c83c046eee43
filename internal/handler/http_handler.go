package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
	"github.com/pesio-ai/be-hr-approvals/internal/logger"
	"github.com/pesio-ai/be-hr-approvals/internal/middleware"
	"github.com/pesio-ai/be-hr-approvals/internal/service"
)

// UserEmailHeader carries the authenticated caller's email, set by the gateway.
const UserEmailHeader = "X-User-Email"

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	approvals     *service.ApprovalService
	authz         *service.AuthorizationService
	relationships *service.RelationshipService
	authorities   *service.AuthorityService
	log           *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(
	approvals *service.ApprovalService,
	authz *service.AuthorizationService,
	relationships *service.RelationshipService,
	authorities *service.AuthorityService,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		approvals:     approvals,
		authz:         authz,
		relationships: relationships,
		authorities:   authorities,
		log:           log,
	}
}

// Register mounts every route on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/approvals/approve", h.Approve)
	mux.HandleFunc("POST /api/v1/approvals/reject", h.Reject)
	mux.HandleFunc("POST /api/v1/approvals/resubmit", h.Resubmit)
	mux.HandleFunc("GET /api/v1/approvals", h.ListApprovals)
	mux.HandleFunc("GET /api/v1/approvals/record", h.GetApproval)
	mux.HandleFunc("DELETE /api/v1/approvals/record", h.RemoveApproval)
	mux.HandleFunc("GET /api/v1/approvals/history", h.ApprovalHistory)
	mux.HandleFunc("GET /api/v1/approvals/pending", h.PendingApprovals)
	mux.HandleFunc("GET /api/v1/authorization/check", h.CheckAuthorization)

	mux.HandleFunc("POST /api/v1/relationships", h.CreateRelationship)
	mux.HandleFunc("GET /api/v1/relationships", h.ListRelationships)
	mux.HandleFunc("GET /api/v1/relationships/approver", h.ApproverOf)
	mux.HandleFunc("GET /api/v1/relationships/subordinates", h.SubordinatesOf)
	mux.HandleFunc("GET /api/v1/relationships/{id}", h.GetRelationship)
	mux.HandleFunc("POST /api/v1/relationships/{id}/end", h.EndRelationship)
	mux.HandleFunc("DELETE /api/v1/relationships/{id}", h.DeleteRelationship)

	mux.HandleFunc("GET /api/v1/authorities", h.SearchAuthorities)
	mux.HandleFunc("GET /api/v1/authorities/org-unit", h.AuthoritiesByOrgUnit)
	mux.HandleFunc("GET /api/v1/authorities/{email}", h.GetAuthority)
}

// ── Approvals ─────────────────────────────────────────────────────────────────

type decisionRequest struct {
	SubmitterEmail string `json:"submitter_email" validate:"required,email"`
	WorkDate       string `json:"work_date" validate:"required"`
	Reason         string `json:"reason"`
}

// Approve handles approve HTTP requests
func (h *HTTPHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := domain.ParseDate("work_date", req.WorkDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rec, err := h.approvals.Approve(r.Context(), actor, req.SubmitterEmail, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Reject handles reject HTTP requests
func (h *HTTPHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := domain.ParseDate("work_date", req.WorkDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rec, err := h.approvals.Reject(r.Context(), actor, req.SubmitterEmail, date, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type resubmitRequest struct {
	SubmitterEmail string `json:"submitter_email" validate:"omitempty,email"`
	WorkDate       string `json:"work_date" validate:"required"`
}

// Resubmit handles resubmit HTTP requests. The submitter defaults to the caller.
func (h *HTTPHandler) Resubmit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req resubmitRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SubmitterEmail == "" {
		req.SubmitterEmail = actor
	}
	date, err := domain.ParseDate("work_date", req.WorkDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rec, err := h.approvals.Resubmit(r.Context(), actor, req.SubmitterEmail, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListApprovals lists a submitter's records in a date range
func (h *HTTPHandler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := dateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, err := h.approvals.ListBySubmitter(r.Context(), q.Get("submitter_email"), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": recs, "total": len(recs)})
}

// GetApproval returns one record
func (h *HTTPHandler) GetApproval(w http.ResponseWriter, r *http.Request) {
	submitter, date, err := recordQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.approvals.Get(r.Context(), submitter, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// RemoveApproval deletes a record whose work entries were removed. The
// submitter defaults to the caller.
func (h *HTTPHandler) RemoveApproval(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	submitter, date, err := recordQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if submitter == "" {
		submitter = actor
	}
	if err := h.approvals.Remove(r.Context(), actor, submitter, date); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApprovalHistory returns the trail of one record
func (h *HTTPHandler) ApprovalHistory(w http.ResponseWriter, r *http.Request) {
	submitter, date, err := recordQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.approvals.History(r.Context(), submitter, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// PendingApprovals is the caller's approval inbox
func (h *HTTPHandler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, to, err := dateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	recs, err := h.approvals.PendingFor(r.Context(), actor, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": recs, "total": len(recs)})
}

// CheckAuthorization returns the decision without acting on it
func (h *HTTPHandler) CheckAuthorization(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	submitter, date, err := recordQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	action := domain.ActionApprove
	if a := r.URL.Query().Get("action"); a != "" {
		action = domain.Action(a)
	}

	decision, err := h.authz.Authorize(r.Context(), actor, submitter, date, action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// ── Relationships ─────────────────────────────────────────────────────────────

type createRelationshipRequest struct {
	SubordinateEmail string `json:"subordinate_email" validate:"required,email"`
	ApproverEmail    string `json:"approver_email" validate:"required,email"`
	EffectiveFrom    string `json:"effective_from" validate:"required,datetime=2006-01-02"`
	EffectiveTo      string `json:"effective_to" validate:"omitempty,datetime=2006-01-02"`
}

// CreateRelationship handles create relationship HTTP requests
func (h *HTTPHandler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	var req createRelationshipRequest
	if !h.decode(w, r, &req) {
		return
	}
	from, _ := time.Parse(domain.DateLayout, req.EffectiveFrom)
	var to *time.Time
	if req.EffectiveTo != "" {
		t, _ := time.Parse(domain.DateLayout, req.EffectiveTo)
		to = &t
	}

	rel, err := h.relationships.Create(r.Context(), req.SubordinateEmail, req.ApproverEmail, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

// ListRelationships lists a subordinate's relationships overlapping a range
func (h *HTTPHandler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := dateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rels, err := h.relationships.ListBySubordinate(r.Context(), q.Get("subordinate_email"), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"relationships": rels})
}

// GetRelationship returns one relationship
func (h *HTTPHandler) GetRelationship(w http.ResponseWriter, r *http.Request) {
	rel, err := h.relationships.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

type endRelationshipRequest struct {
	EffectiveTo string `json:"effective_to" validate:"required,datetime=2006-01-02"`
}

// EndRelationship narrows a relationship window
func (h *HTTPHandler) EndRelationship(w http.ResponseWriter, r *http.Request) {
	var req endRelationshipRequest
	if !h.decode(w, r, &req) {
		return
	}
	to, _ := time.Parse(domain.DateLayout, req.EffectiveTo)

	rel, err := h.relationships.EndRelationship(r.Context(), r.PathValue("id"), to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

// DeleteRelationship removes a relationship
func (h *HTTPHandler) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	if err := h.relationships.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproverOf answers "who was the approver of X on date D"; D defaults to today.
func (h *HTTPHandler) ApproverOf(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subordinate := q.Get("subordinate_email")
	on, err := optionalDate("date", q.Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	at := time.Now()
	if on != nil {
		at = *on
	}

	approver, found, err := h.relationships.ApproverOn(r.Context(), subordinate, at)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	all, err := h.relationships.ApproversOn(r.Context(), subordinate, at)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := map[string]interface{}{
		"subordinate_email": domain.NormalizeEmail(subordinate),
		"date":              domain.DateOf(at).Format(domain.DateLayout),
		"approvers":         all,
	}
	if found {
		resp["approver_email"] = approver
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubordinatesOf lists who reports to an approver on a date
func (h *HTTPHandler) SubordinatesOf(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	on, err := optionalDate("date", q.Get("date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	subs, err := h.relationships.SubordinatesOf(r.Context(), q.Get("approver_email"), on)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subordinates": subs})
}

// ── Authorities ───────────────────────────────────────────────────────────────

// GetAuthority returns one authority record
func (h *HTTPHandler) GetAuthority(w http.ResponseWriter, r *http.Request) {
	rec, err := h.authorities.Get(r.Context(), r.PathValue("email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SearchAuthorities matches on display name or email
func (h *HTTPHandler) SearchAuthorities(w http.ResponseWriter, r *http.Request) {
	recs, err := h.authorities.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"authorities": recs})
}

// AuthoritiesByOrgUnit lists the members of an org unit
func (h *HTTPHandler) AuthoritiesByOrgUnit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level, err := strconv.Atoi(q.Get("level"))
	if err != nil {
		h.writeError(w, r, errors.InvalidInput("level", "level must be an integer"))
		return
	}
	recs, err := h.authorities.FindByOrgUnit(r.Context(), level, q.Get("code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"authorities": recs})
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (h *HTTPHandler) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, err := domain.ValidateEmail("actor_email", r.Header.Get(UserEmailHeader))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "UNAUTHENTICATED", Message: UserEmailHeader + " header is missing or malformed"})
		return "", false
	}
	return email, true
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, r, errors.InvalidInput("body", "invalid request body"))
		return false
	}
	if err := domain.Validator().Struct(dst); err != nil {
		h.writeError(w, r, validationError(err))
		return false
	}
	return true
}

func validationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return errors.InvalidInput(fieldName(fe.Field()), "failed "+fe.Tag()+" validation")
	}
	return errors.InvalidInput("body", err.Error())
}

var jsonFieldNames = map[string]string{
	"SubmitterEmail":   "submitter_email",
	"WorkDate":         "work_date",
	"SubordinateEmail": "subordinate_email",
	"ApproverEmail":    "approver_email",
	"EffectiveFrom":    "effective_from",
	"EffectiveTo":      "effective_to",
}

func fieldName(goName string) string {
	if n, ok := jsonFieldNames[goName]; ok {
		return n
	}
	return goName
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Field   string            `json:"field,omitempty"`
	Cause   string            `json:"cause,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := errors.As(err)
	if !ok || e.Kind == errors.KindInternal {
		h.log.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal server error"})
		return
	}

	writeJSON(w, httpStatus(e.Kind), errorBody{
		Code:    e.Code,
		Message: e.Message,
		Field:   e.Field,
		Cause:   string(e.Cause),
		Details: e.Details,
	})
}

func httpStatus(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindAuthorization:
		return http.StatusForbidden
	case errors.KindInvalidState:
		return http.StatusConflict
	case errors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func recordQuery(r *http.Request) (string, time.Time, error) {
	q := r.URL.Query()
	date, err := domain.ParseDate("work_date", q.Get("work_date"))
	if err != nil {
		return "", time.Time{}, err
	}
	return q.Get("submitter_email"), date, nil
}

func dateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := domain.ParseDate("from", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := domain.ParseDate("to", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func optionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
