package permissionhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/permission"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Sessions *permission.Sessions
}

func NewHandler(sessions *permission.Sessions) *Handler {
	return &Handler{Sessions: sessions}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/permissions", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/draft", h.handleGetDraft)
		r.Delete("/draft", h.handleResetDraft)
		r.Post("/day/{date}", h.handleDayTap)
		r.Get("/calendar", h.handleCalendar)
		r.Get("/calendar/export", h.handleCalendarExport)
		r.Put("/{requestID}", h.handleUpdate)
		r.Post("/{requestID}/edit", h.handleStartEditing)
		r.With(middleware.RequireApprover).Post("/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequireApprover).Post("/{requestID}/reject", h.handleReject)
	})
}

func (h *Handler) session(r *http.Request) (*permission.Session, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		return nil, false
	}
	return h.Sessions.For(permission.Actor{ID: user.UserID, Role: user.Role}), true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := session.Refresh(r.Context()); err != nil {
		api.Fail(w, http.StatusBadGateway, "fetch_failed", "failed to load permission requests", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, session.Store().Requests(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := session.Refresh(r.Context()); err != nil {
		api.Fail(w, http.StatusBadGateway, "fetch_failed", "failed to load calendar", middleware.GetRequestID(r.Context()))
		return
	}

	overlay := session.Store().Overlay()
	payload := map[string]any{"marks": overlay}

	// A selected date is highlighted on top of its marks, never instead of
	// them, so the existing entries ride along.
	if selected := strings.TrimSpace(r.URL.Query().Get("selected")); selected != "" {
		day, err := shared.ParseDate(selected)
		if err != nil || day.IsZero() {
			api.Fail(w, http.StatusBadRequest, "invalid_date", "selected must be a YYYY-MM-DD date", middleware.GetRequestID(r.Context()))
			return
		}
		key := permission.FormatDate(day)
		payload["selected"] = key
		payload["selectedMarks"] = overlay[key]
	}

	api.Success(w, payload, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCalendarExport(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := session.Refresh(r.Context()); err != nil {
		api.Fail(w, http.StatusBadGateway, "fetch_failed", "failed to load calendar", middleware.GetRequestID(r.Context()))
		return
	}
	requests := session.Store().Requests()

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}

	switch format {
	case "ics":
		w.Header().Set("Content-Type", "text/calendar")
		w.Header().Set("Content-Disposition", "attachment; filename=leave-schedule.ics")
		if err := permission.WriteScheduleICS(w, requests); err != nil {
			slog.Warn("schedule ics export failed", "err", err)
		}
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "attachment; filename=leave-schedule.pdf")
		if err := permission.WriteSchedulePDF(w, requests); err != nil {
			slog.Warn("schedule pdf export failed", "err", err)
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=leave-schedule.csv")
		if err := permission.WriteScheduleCSV(w, requests); err != nil {
			slog.Warn("schedule csv export failed", "err", err)
		}
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_format", "format must be csv, ics or pdf", middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"state": session.State(),
		"draft": session.Draft(),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleResetDraft(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	draft := session.Reset()
	api.Success(w, map[string]any{
		"state": session.State(),
		"draft": draft,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDayTap(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	day, err := shared.ParseDate(chi.URLParam(r, "date"))
	if err != nil || day.IsZero() {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD", middleware.GetRequestID(r.Context()))
		return
	}

	if err := session.Refresh(r.Context()); err != nil {
		api.Fail(w, http.StatusBadGateway, "fetch_failed", "failed to load permission requests", middleware.GetRequestID(r.Context()))
		return
	}

	draft, existing := session.OpenForDay(day)
	if len(existing) > 0 {
		api.Success(w, map[string]any{
			"covered":  true,
			"requests": existing,
		}, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"covered": false,
		"draft":   draft,
		"mode":    permission.ModeCreate,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStartEditing(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := session.Refresh(r.Context()); err != nil {
		api.Fail(w, http.StatusBadGateway, "fetch_failed", "failed to load permission requests", middleware.GetRequestID(r.Context()))
		return
	}

	draft, err := session.StartEditing(chi.URLParam(r, "requestID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "permission request not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"draft": draft,
		"mode":  permission.ModeUpdate,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	draft, ok := decodeDraft(w, r, session)
	if !ok {
		return
	}

	persisted, err := session.Submit(r.Context(), draft, permission.ModeCreate)
	if err != nil {
		failSubmit(w, r, err)
		return
	}
	api.Created(w, persisted, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	draft, ok := decodeDraft(w, r, session)
	if !ok {
		return
	}
	draft.RequestID = chi.URLParam(r, "requestID")

	persisted, err := session.Submit(r.Context(), draft, permission.ModeUpdate)
	if err != nil {
		failSubmit(w, r, err)
		return
	}
	api.Success(w, persisted, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, permission.StatusApproved)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, permission.StatusRejected)
}

// decide routes an approve/reject through the same draft lifecycle as any
// other update: seed from the stored record, flip the status, submit.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request, status string) {
	session, ok := h.session(r)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	if err := session.Refresh(r.Context()); err != nil {
		api.Fail(w, http.StatusBadGateway, "fetch_failed", "failed to load permission requests", middleware.GetRequestID(r.Context()))
		return
	}

	draft, err := session.StartEditing(chi.URLParam(r, "requestID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "permission request not found", middleware.GetRequestID(r.Context()))
		return
	}
	draft.Status = status

	persisted, err := session.Submit(r.Context(), draft, permission.ModeUpdate)
	if err != nil {
		failSubmit(w, r, err)
		return
	}
	api.Success(w, persisted, middleware.GetRequestID(r.Context()))
}

func decodeDraft(w http.ResponseWriter, r *http.Request, session *permission.Session) (permission.Draft, bool) {
	var draft permission.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return permission.Draft{}, false
	}
	// Non-approvers file for themselves regardless of the posted requester.
	if !session.Policy().CanApprove {
		draft.RequesterID = session.Actor().ID
	}
	if draft.RequesterID == "" {
		draft.RequesterID = session.Actor().ID
	}
	return draft, true
}

func failSubmit(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var validation *permission.ValidationError
	if errors.As(err, &validation) {
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "draft validation failed",
			map[string]any{"fields": validation.Fields}, requestID)
		return
	}
	var submission *permission.SubmissionError
	if errors.As(err, &submission) {
		api.Fail(w, http.StatusBadGateway, "submission_failed", submission.Message(), requestID)
		return
	}
	if errors.Is(err, permission.ErrSubmitInFlight) {
		api.Fail(w, http.StatusConflict, "submit_in_flight", "a submission is already in progress", requestID)
		return
	}
	if errors.Is(err, permission.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "permission request not found", requestID)
		return
	}
	var fetch *permission.FetchError
	if errors.As(err, &fetch) {
		api.Fail(w, http.StatusBadGateway, "fetch_failed", "failed to load permission requests", requestID)
		return
	}
	api.Fail(w, http.StatusInternalServerError, "submit_failed", "failed to submit request", requestID)
}
