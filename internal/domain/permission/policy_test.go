package permission

import (
	"testing"
	"time"

	"leavedesk/internal/domain/auth"
)

func TestResolvePolicyScopes(t *testing.T) {
	cases := map[string]Policy{
		auth.RoleEmployee: {Scope: ScopeOwn, CanApprove: false},
		auth.RoleTeamLead: {Scope: ScopeGroupManaged, CanApprove: true},
		auth.RoleDirector: {Scope: ScopeGroupManaged, CanApprove: true},
		auth.RoleHR:       {Scope: ScopeAll, CanApprove: true},
	}
	for role, want := range cases {
		got := ResolvePolicy(role)
		if got != want {
			t.Fatalf("role %s: expected %+v, got %+v", role, want, got)
		}
	}
}

func TestResolvePolicyUnknownRoleFailsClosed(t *testing.T) {
	for _, role := range []string{"", "intern", "HR", "admin"} {
		got := ResolvePolicy(role)
		if got.Scope != ScopeOwn || got.CanApprove {
			t.Fatalf("role %q: expected own scope without approval, got %+v", role, got)
		}
	}
}

func TestNewDraftDefaultsRequester(t *testing.T) {
	draft := NewDraft(Actor{ID: "u-1", Role: auth.RoleEmployee})
	if draft.RequesterID != "u-1" {
		t.Fatalf("expected requester u-1, got %q", draft.RequesterID)
	}
	if draft.Status != StatusPending {
		t.Fatalf("expected pending status, got %q", draft.Status)
	}
}

func TestEditDraftApproverPrefill(t *testing.T) {
	existing := Request{
		ID:          "r-1",
		RequesterID: "u-2",
		LeaveType:   TypeVacation,
		StartDate:   time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2023, 3, 3, 0, 0, 0, 0, time.UTC),
		Status:      StatusPending,
	}

	draft := EditDraft(existing, Actor{ID: "lead-1", Role: auth.RoleTeamLead})
	if draft.ApproverID != "lead-1" {
		t.Fatalf("expected approver prefilled to acting lead, got %q", draft.ApproverID)
	}
	if draft.RequestID != "r-1" || draft.RequesterID != "u-2" {
		t.Fatalf("expected draft seeded from existing request, got %+v", draft)
	}
	if draft.StartDate != "2023-03-01" || draft.EndDate != "2023-03-03" {
		t.Fatalf("expected formatted dates, got %q..%q", draft.StartDate, draft.EndDate)
	}
}

func TestEditDraftNoPrefillForOwnRequest(t *testing.T) {
	existing := Request{ID: "r-2", RequesterID: "lead-1", ApproverID: "hr-1", Status: StatusPending}
	draft := EditDraft(existing, Actor{ID: "lead-1", Role: auth.RoleTeamLead})
	if draft.ApproverID != "hr-1" {
		t.Fatalf("expected existing approver kept for self-edit, got %q", draft.ApproverID)
	}
}

func TestEditDraftNoPrefillForNonApprover(t *testing.T) {
	existing := Request{ID: "r-3", RequesterID: "u-2", ApproverID: "", Status: StatusPending}
	draft := EditDraft(existing, Actor{ID: "u-3", Role: auth.RoleEmployee})
	if draft.ApproverID != "" {
		t.Fatalf("expected no approver prefill for non-approver, got %q", draft.ApproverID)
	}
}
