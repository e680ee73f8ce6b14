package permission

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// State is the draft session's position in its lifecycle, not the status of
// any stored request.
type State string

const (
	StateClosed     State = "closed"
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
)

// Session owns one actor's draft lifecycle: open a draft, submit it against
// the backend, refresh the scoped record store and its overlay afterwards.
// The session serializes its own transitions; a second submit while one is in
// flight is rejected, not queued.
type Session struct {
	mu             sync.Mutex
	actor          Actor
	policy         Policy
	backend        Backend
	store          *Store
	state          State
	draft          Draft
	mode           Mode
	discardOnError bool
}

func NewSession(actor Actor, backend Backend, discardOnError bool) *Session {
	return &Session{
		actor:          actor,
		policy:         ResolvePolicy(actor.Role),
		backend:        backend,
		store:          NewStore(),
		state:          StateClosed,
		draft:          NewDraft(actor),
		discardOnError: discardOnError,
	}
}

func (s *Session) Actor() Actor   { return s.actor }
func (s *Session) Policy() Policy { return s.policy }
func (s *Session) Store() *Store  { return s.store }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Refresh pulls the actor's scoped record set and rebuilds the overlay. On
// failure the store keeps its last-known-good snapshot and a FetchError is
// returned.
func (s *Session) Refresh(ctx context.Context) error {
	records, err := s.backend.List(ctx, s.policy.Scope, s.actor.ID)
	if err != nil {
		return &FetchError{Err: err}
	}
	for _, bad := range s.store.Replace(records) {
		slog.Warn("permission request has start date after end date, skipped in overlay",
			"requestId", bad.RequestID)
	}
	return nil
}

// OpenNew starts a create draft with the requester defaulted per policy.
func (s *Session) OpenNew() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = NewDraft(s.actor)
	s.mode = ModeCreate
	s.state = StateEditing
	return s.draft
}

// OpenForDay handles a calendar day tap. If no visible request covers the
// day, a create draft opens with the start date prefilled; otherwise the
// covering requests are returned and no draft opens.
func (s *Session) OpenForDay(day time.Time) (Draft, []Request) {
	if existing := s.store.RequestsOn(day); len(existing) > 0 {
		return Draft{}, existing
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	draft := NewDraft(s.actor)
	draft.StartDate = FormatDate(day)
	s.draft = draft
	s.mode = ModeCreate
	s.state = StateEditing
	return draft, nil
}

// StartEditing opens an update draft seeded from a stored request, with the
// approver prefill re-derived for approving actors.
func (s *Session) StartEditing(id string) (Draft, error) {
	existing, ok := s.store.Get(id)
	if !ok {
		return Draft{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = EditDraft(existing, s.actor)
	s.mode = ModeUpdate
	s.state = StateEditing
	return s.draft, nil
}

// Reset clears the active draft back to a policy-defaulted empty one and
// closes any editing session.
func (s *Session) Reset() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = NewDraft(s.actor)
	s.mode = ""
	s.state = StateClosed
	return s.draft
}

// Submit validates the draft and persists it. On success the record store is
// re-fetched and the overlay rebuilt before returning. The draft is discarded
// whatever the outcome (the upstream behavior) unless the session was
// configured to keep it on failure; a validation failure always keeps the
// draft, since the backend was never called.
func (s *Session) Submit(ctx context.Context, draft Draft, mode Mode) (Request, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return Request{}, ErrSubmitInFlight
	}
	s.state = StateSubmitting
	s.draft = draft
	s.mode = mode
	s.mu.Unlock()

	persisted, err := s.submit(ctx, draft.trimmed(), mode)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.draft = NewDraft(s.actor)
		s.mode = ""
		s.state = StateClosed
		return persisted, nil
	}

	if _, invalid := err.(*ValidationError); invalid || !s.discardOnError {
		// Local validation aborts before the backend is touched; the user
		// keeps the draft to fix it. Keeping it on backend failure is the
		// configurable departure from upstream.
		s.state = StateEditing
		return Request{}, err
	}

	s.draft = NewDraft(s.actor)
	s.mode = ""
	s.state = StateClosed
	return Request{}, err
}

func (s *Session) submit(ctx context.Context, draft Draft, mode Mode) (Request, error) {
	if mode == ModeUpdate && draft.RequestID != "" {
		if _, ok := s.store.Get(draft.RequestID); !ok {
			// Cold session: fetch the scoped snapshot so the pre-edit record
			// is available for the status and freeze rules.
			if err := s.Refresh(ctx); err != nil {
				return Request{}, err
			}
		}
	}

	if err := s.validate(&draft, mode); err != nil {
		return Request{}, err
	}

	var persisted Request
	var err error
	switch mode {
	case ModeUpdate:
		persisted, err = s.backend.Update(ctx, draft.RequestID, draft)
	default:
		draft.Status = StatusPending
		persisted, err = s.backend.Create(ctx, draft)
	}
	if err != nil {
		return Request{}, &SubmissionError{Err: err}
	}

	if err := s.Refresh(ctx); err != nil {
		slog.Warn("refresh after submit failed, keeping previous snapshot", "err", err)
	}
	return persisted, nil
}

// validate checks mandatory fields and applies the role-based write rules:
// non-approvers cannot move status, and a decided request's dates and type
// are frozen for everyone.
func (s *Session) validate(draft *Draft, mode Mode) error {
	var fields []string
	if draft.RequesterID == "" {
		fields = append(fields, "requesterId")
	}
	if draft.LeaveType == "" {
		fields = append(fields, "leaveType")
	}
	if draft.StartDate == "" {
		fields = append(fields, "startDate")
	}
	if draft.EndDate == "" {
		fields = append(fields, "endDate")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	start, end, err := draft.DateRange()
	if err != nil {
		return &ValidationError{Fields: []string{"startDate", "endDate"}}
	}
	if end.Before(start) {
		return &ValidationError{Fields: []string{"endDate"}}
	}

	switch draft.Status {
	case "", StatusPending, StatusApproved, StatusRejected:
	default:
		return &ValidationError{Fields: []string{"status"}}
	}

	if mode == ModeUpdate {
		if draft.RequestID == "" {
			return &ValidationError{Fields: []string{"requestId"}}
		}
		prior, ok := s.store.Get(draft.RequestID)
		if !ok {
			// Not visible in the actor's scope: treat as absent rather than
			// letting the write rules be bypassed.
			return ErrNotFound
		}
		if !s.policy.CanApprove {
			draft.Status = prior.Status
		}
		if prior.Status != StatusPending {
			draft.LeaveType = prior.LeaveType
			draft.StartDate = FormatDate(prior.StartDate)
			draft.EndDate = FormatDate(prior.EndDate)
		}
		if draft.Status == "" {
			draft.Status = StatusPending
		}
	}
	return nil
}

// Sessions hands out one Session per actor, each with its own record store.
type Sessions struct {
	mu             sync.Mutex
	backend        Backend
	discardOnError bool
	byActor        map[string]*Session
}

func NewSessions(backend Backend, discardOnError bool) *Sessions {
	return &Sessions{
		backend:        backend,
		discardOnError: discardOnError,
		byActor:        make(map[string]*Session),
	}
}

func (m *Sessions) For(actor Actor) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.byActor[actor.ID]; ok && session.actor.Role == actor.Role {
		return session
	}
	session := NewSession(actor, m.backend, m.discardOnError)
	m.byActor[actor.ID] = session
	return session
}
