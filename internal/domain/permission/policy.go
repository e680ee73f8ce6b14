package permission

import "leavedesk/internal/domain/auth"

// Scope is the breadth of records a role is entitled to see.
type Scope string

const (
	ScopeOwn          Scope = "own"
	ScopeGroupManaged Scope = "group"
	ScopeAll          Scope = "all"
)

type Policy struct {
	Scope      Scope
	CanApprove bool
}

// Actor is the acting user, passed explicitly rather than read from any
// ambient session state.
type Actor struct {
	ID   string
	Role string
}

var rolePolicies = map[string]Policy{
	auth.RoleEmployee: {Scope: ScopeOwn, CanApprove: false},
	auth.RoleTeamLead: {Scope: ScopeGroupManaged, CanApprove: true},
	auth.RoleDirector: {Scope: ScopeGroupManaged, CanApprove: true},
	auth.RoleHR:       {Scope: ScopeAll, CanApprove: true},
}

// ResolvePolicy maps a role label to its capability set. Unknown labels fail
// closed: own records only, no approval rights.
func ResolvePolicy(role string) Policy {
	if policy, ok := rolePolicies[role]; ok {
		return policy
	}
	return Policy{Scope: ScopeOwn, CanApprove: false}
}

// NewDraft returns an empty draft with the requester defaulted to the actor.
func NewDraft(actor Actor) Draft {
	return Draft{RequesterID: actor.ID, Status: StatusPending}
}

// EditDraft seeds a draft from an existing request. An approver picking up
// someone else's request becomes its approver.
func EditDraft(existing Request, actor Actor) Draft {
	draft := Draft{
		RequestID:   existing.ID,
		RequesterID: existing.RequesterID,
		ApproverID:  existing.ApproverID,
		LeaveType:   existing.LeaveType,
		StartDate:   FormatDate(existing.StartDate),
		EndDate:     FormatDate(existing.EndDate),
		Status:      existing.Status,
	}
	if ResolvePolicy(actor.Role).CanApprove && existing.RequesterID != actor.ID {
		draft.ApproverID = actor.ID
	}
	return draft
}
