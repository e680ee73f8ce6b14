package permission

import (
	"context"
	"errors"
	"sync"
	"testing"

	"leavedesk/internal/domain/auth"
)

type fakeBackend struct {
	mu        sync.Mutex
	snapshots [][]Request
	listErr   error
	createErr error
	updateErr error
	created   []Draft
	updated   []Draft
	updatedID []string
	lastScope Scope
	lastActor string
	listCalls int

	entered chan struct{}
	release chan struct{}
}

func (f *fakeBackend) List(ctx context.Context, scope Scope, actorID string) ([]Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastScope = scope
	f.lastActor = actorID
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.snapshots) == 0 {
		return nil, nil
	}
	snapshot := f.snapshots[0]
	if len(f.snapshots) > 1 {
		f.snapshots = f.snapshots[1:]
	}
	out := make([]Request, len(snapshot))
	copy(out, snapshot)
	return out, nil
}

func (f *fakeBackend) Create(ctx context.Context, draft Draft) (Request, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, draft)
	if f.createErr != nil {
		return Request{}, f.createErr
	}
	start, end, err := draft.DateRange()
	if err != nil {
		return Request{}, err
	}
	return Request{
		ID:          "srv-1",
		RequesterID: draft.RequesterID,
		ApproverID:  draft.ApproverID,
		LeaveType:   draft.LeaveType,
		StartDate:   start,
		EndDate:     end,
		Status:      draft.Status,
	}, nil
}

func (f *fakeBackend) Update(ctx context.Context, id string, draft Draft) (Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, draft)
	f.updatedID = append(f.updatedID, id)
	if f.updateErr != nil {
		return Request{}, f.updateErr
	}
	start, end, err := draft.DateRange()
	if err != nil {
		return Request{}, err
	}
	return Request{
		ID:          id,
		RequesterID: draft.RequesterID,
		ApproverID:  draft.ApproverID,
		LeaveType:   draft.LeaveType,
		StartDate:   start,
		EndDate:     end,
		Status:      draft.Status,
	}, nil
}

func validDraft(requester string) Draft {
	return Draft{
		RequesterID: requester,
		LeaveType:   TypeVacation,
		StartDate:   "2023-04-03",
		EndDate:     "2023-04-05",
	}
}

func TestSubmitMissingFieldsListedTogether(t *testing.T) {
	backend := &fakeBackend{}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, true)

	_, err := session.Submit(context.Background(), Draft{
		RequesterID: "  ",
		LeaveType:   "",
		StartDate:   "2023-04-03",
		EndDate:     " ",
	}, ModeCreate)

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{"requesterId", "leaveType", "endDate"}
	if len(validation.Fields) != len(want) {
		t.Fatalf("expected fields %v, got %v", want, validation.Fields)
	}
	for i, field := range want {
		if validation.Fields[i] != field {
			t.Fatalf("expected fields %v, got %v", want, validation.Fields)
		}
	}
	if len(backend.created) != 0 || backend.listCalls != 0 {
		t.Fatal("backend must not be called on validation failure")
	}
	if session.State() != StateEditing {
		t.Fatalf("expected editing state after local validation failure, got %s", session.State())
	}
}

func TestSubmitInvalidRangeRejected(t *testing.T) {
	backend := &fakeBackend{}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, true)

	draft := validDraft("u-1")
	draft.StartDate = "2023-04-05"
	draft.EndDate = "2023-04-03"
	_, err := session.Submit(context.Background(), draft, ModeCreate)

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validation.Fields) != 1 || validation.Fields[0] != "endDate" {
		t.Fatalf("expected endDate flagged, got %v", validation.Fields)
	}
	if len(backend.created) != 0 {
		t.Fatal("backend must not be called for an inverted range")
	}
}

func TestSubmitCreateSuccessRefreshesSnapshot(t *testing.T) {
	persisted := Request{
		ID:          "srv-1",
		RequesterID: "u-1",
		LeaveType:   TypeVacation,
		StartDate:   day(2023, 4, 3),
		EndDate:     day(2023, 4, 5),
		Status:      StatusPending,
	}
	backend := &fakeBackend{snapshots: [][]Request{nil, {persisted}}}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, true)

	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}
	if len(session.Store().Requests()) != 0 {
		t.Fatal("expected empty initial snapshot")
	}

	result, err := session.Submit(context.Background(), validDraft("u-1"), ModeCreate)
	if err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if result.ID != "srv-1" {
		t.Fatalf("expected persisted record returned, got %+v", result)
	}
	if session.State() != StateClosed {
		t.Fatalf("expected closed session after submit, got %s", session.State())
	}

	records := session.Store().Requests()
	if len(records) != 1 || records[0].ID != "srv-1" {
		t.Fatalf("expected store to hold the fresh snapshot, got %+v", records)
	}
	overlay := session.Store().Overlay()
	if len(overlay["2023-04-04"]) != 1 {
		t.Fatal("expected overlay rebuilt from the fresh snapshot")
	}

	draft := session.Draft()
	if draft.RequesterID != "u-1" || draft.LeaveType != "" || draft.StartDate != "" {
		t.Fatalf("expected draft reset to policy defaults, got %+v", draft)
	}
}

func TestSubmitCreateAlwaysStartsPending(t *testing.T) {
	backend := &fakeBackend{}
	session := NewSession(Actor{ID: "hr-1", Role: auth.RoleHR}, backend, true)

	draft := validDraft("u-2")
	draft.Status = StatusApproved
	if _, err := session.Submit(context.Background(), draft, ModeCreate); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if len(backend.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(backend.created))
	}
	if backend.created[0].Status != StatusPending {
		t.Fatalf("expected new request forced to pending, got %q", backend.created[0].Status)
	}
}

func TestSubmitUpdateNonApproverCannotMoveStatus(t *testing.T) {
	prior := Request{
		ID:          "r-1",
		RequesterID: "u-1",
		LeaveType:   TypeVacation,
		StartDate:   day(2023, 4, 3),
		EndDate:     day(2023, 4, 5),
		Status:      StatusPending,
	}
	backend := &fakeBackend{snapshots: [][]Request{{prior}}}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, true)
	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	draft, err := session.StartEditing("r-1")
	if err != nil {
		t.Fatalf("unexpected edit error: %v", err)
	}
	draft.Status = StatusApproved

	if _, err := session.Submit(context.Background(), draft, ModeUpdate); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if len(backend.updated) != 1 {
		t.Fatalf("expected one update call, got %d", len(backend.updated))
	}
	if backend.updated[0].Status != StatusPending {
		t.Fatalf("expected status preserved from pre-edit value, got %q", backend.updated[0].Status)
	}
}

func TestSubmitUpdateApproverDecides(t *testing.T) {
	prior := Request{
		ID:          "r-1",
		RequesterID: "u-2",
		LeaveType:   TypeMedical,
		StartDate:   day(2023, 4, 3),
		EndDate:     day(2023, 4, 3),
		Status:      StatusPending,
	}
	backend := &fakeBackend{snapshots: [][]Request{{prior}}}
	session := NewSession(Actor{ID: "lead-1", Role: auth.RoleTeamLead}, backend, true)
	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	draft, err := session.StartEditing("r-1")
	if err != nil {
		t.Fatalf("unexpected edit error: %v", err)
	}
	if draft.ApproverID != "lead-1" {
		t.Fatalf("expected approver prefill for acting lead, got %q", draft.ApproverID)
	}
	draft.Status = StatusApproved

	if _, err := session.Submit(context.Background(), draft, ModeUpdate); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if backend.updated[0].Status != StatusApproved {
		t.Fatalf("expected approver to move status, got %q", backend.updated[0].Status)
	}
	if backend.updatedID[0] != "r-1" {
		t.Fatalf("expected update against r-1, got %q", backend.updatedID[0])
	}
}

func TestSubmitUpdateDecidedRequestFreezesRange(t *testing.T) {
	prior := Request{
		ID:          "r-1",
		RequesterID: "u-2",
		LeaveType:   TypeMedical,
		StartDate:   day(2023, 4, 3),
		EndDate:     day(2023, 4, 4),
		Status:      StatusApproved,
	}
	backend := &fakeBackend{snapshots: [][]Request{{prior}}}
	session := NewSession(Actor{ID: "hr-1", Role: auth.RoleHR}, backend, true)
	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	draft, err := session.StartEditing("r-1")
	if err != nil {
		t.Fatalf("unexpected edit error: %v", err)
	}
	draft.LeaveType = TypeVacation
	draft.StartDate = "2023-05-01"
	draft.EndDate = "2023-05-09"
	draft.Status = StatusRejected

	if _, err := session.Submit(context.Background(), draft, ModeUpdate); err != nil {
		t.Fatalf("unexpected submit error: %v", err)
	}
	sent := backend.updated[0]
	if sent.LeaveType != TypeMedical || sent.StartDate != "2023-04-03" || sent.EndDate != "2023-04-04" {
		t.Fatalf("expected decided request's range and type frozen, got %+v", sent)
	}
	if sent.Status != StatusRejected {
		t.Fatalf("expected approver still able to correct status, got %q", sent.Status)
	}
}

func TestSubmitUpdateOutsideScopeNotFound(t *testing.T) {
	backend := &fakeBackend{}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, true)

	draft := validDraft("u-1")
	draft.RequestID = "r-unknown"
	_, err := session.Submit(context.Background(), draft, ModeUpdate)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for record outside scope, got %v", err)
	}
	if len(backend.updated) != 0 {
		t.Fatal("backend must not be called for an invisible record")
	}
}

func TestSubmitBackendFailureDiscardsDraft(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New("quota exceeded")}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, true)

	_, err := session.Submit(context.Background(), validDraft("u-1"), ModeCreate)

	var submission *SubmissionError
	if !errors.As(err, &submission) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if submission.Message() != "quota exceeded" {
		t.Fatalf("expected backend message surfaced, got %q", submission.Message())
	}
	if session.State() != StateClosed {
		t.Fatalf("expected session closed after failed submit, got %s", session.State())
	}
	if draft := session.Draft(); draft.LeaveType != "" {
		t.Fatalf("expected draft discarded after failed submit, got %+v", draft)
	}
}

func TestSubmitKeepsDraftWhenConfigured(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New("boom")}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, false)

	draft := validDraft("u-1")
	if _, err := session.Submit(context.Background(), draft, ModeCreate); err == nil {
		t.Fatal("expected submit error")
	}
	if session.State() != StateEditing {
		t.Fatalf("expected draft kept open, got state %s", session.State())
	}
	if kept := session.Draft(); kept.LeaveType != draft.LeaveType || kept.StartDate != draft.StartDate {
		t.Fatalf("expected draft preserved, got %+v", kept)
	}
}

func TestSubmitRejectsReentrantSubmit(t *testing.T) {
	backend := &fakeBackend{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, true)

	done := make(chan error, 1)
	go func() {
		_, err := session.Submit(context.Background(), validDraft("u-1"), ModeCreate)
		done <- err
	}()

	<-backend.entered
	if _, err := session.Submit(context.Background(), validDraft("u-1"), ModeCreate); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(backend.release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error from first submit: %v", err)
	}
	if len(backend.created) != 1 {
		t.Fatalf("expected exactly one create call, got %d", len(backend.created))
	}
}

func TestRefreshFailureKeepsLastKnownGood(t *testing.T) {
	prior := Request{
		ID:          "r-1",
		RequesterID: "u-1",
		LeaveType:   TypeVacation,
		StartDate:   day(2023, 4, 3),
		EndDate:     day(2023, 4, 3),
		Status:      StatusPending,
	}
	backend := &fakeBackend{snapshots: [][]Request{{prior}}}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, true)
	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	backend.mu.Lock()
	backend.listErr = errors.New("connection reset")
	backend.mu.Unlock()

	err := session.Refresh(context.Background())
	var fetch *FetchError
	if !errors.As(err, &fetch) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if records := session.Store().Requests(); len(records) != 1 || records[0].ID != "r-1" {
		t.Fatalf("expected last-known-good snapshot retained, got %+v", records)
	}
	if len(session.Store().Overlay()["2023-04-03"]) != 1 {
		t.Fatal("expected overlay retained with the stale snapshot")
	}
}

func TestOpenForDay(t *testing.T) {
	prior := Request{
		ID:          "r-1",
		RequesterID: "u-1",
		LeaveType:   TypeVacation,
		StartDate:   day(2023, 3, 1),
		EndDate:     day(2023, 3, 2),
		Status:      StatusPending,
	}
	backend := &fakeBackend{snapshots: [][]Request{{prior}}}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, true)
	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected refresh error: %v", err)
	}

	if _, existing := session.OpenForDay(day(2023, 3, 1)); len(existing) != 1 {
		t.Fatalf("expected covered day to report existing request, got %+v", existing)
	}
	if session.State() == StateEditing {
		t.Fatal("covered day must not open a draft")
	}

	draft, existing := session.OpenForDay(day(2023, 3, 5))
	if len(existing) != 0 {
		t.Fatalf("expected uncovered day, got %+v", existing)
	}
	if draft.StartDate != "2023-03-05" || draft.RequesterID != "u-1" {
		t.Fatalf("expected prefilled create draft, got %+v", draft)
	}
	if session.State() != StateEditing {
		t.Fatalf("expected editing state, got %s", session.State())
	}
}

func TestResetClosesSession(t *testing.T) {
	backend := &fakeBackend{}
	session := NewSession(Actor{ID: "u-1", Role: auth.RoleEmployee}, backend, true)

	session.OpenNew()
	if session.State() != StateEditing {
		t.Fatalf("expected editing after open, got %s", session.State())
	}

	draft := session.Reset()
	if session.State() != StateClosed {
		t.Fatalf("expected closed after reset, got %s", session.State())
	}
	if draft.RequesterID != "u-1" || draft.LeaveType != "" || draft.StartDate != "" {
		t.Fatalf("expected empty draft with requester defaulted, got %+v", draft)
	}
}

func TestSessionsReusePerActor(t *testing.T) {
	backend := &fakeBackend{}
	sessions := NewSessions(backend, true)

	first := sessions.For(Actor{ID: "u-1", Role: auth.RoleEmployee})
	second := sessions.For(Actor{ID: "u-1", Role: auth.RoleEmployee})
	if first != second {
		t.Fatal("expected the same session for one actor")
	}

	promoted := sessions.For(Actor{ID: "u-1", Role: auth.RoleTeamLead})
	if promoted == first {
		t.Fatal("expected a fresh session after a role change")
	}
	other := sessions.For(Actor{ID: "u-2", Role: auth.RoleEmployee})
	if other == first {
		t.Fatal("expected separate sessions per actor")
	}
}
