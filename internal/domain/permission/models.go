package permission

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

const (
	TypeVacation = "vacation"
	TypeMedical  = "medical"
	TypePersonal = "personal"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Request is a persisted leave/permission record.
type Request struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requesterId"`
	ApproverID  string    `json:"approverId,omitempty"`
	LeaveType   string    `json:"leaveType"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Covers reports whether day falls inside the request's inclusive date range.
func (r Request) Covers(day time.Time) bool {
	d := dateOnly(day)
	return !d.Before(dateOnly(r.StartDate)) && !d.After(dateOnly(r.EndDate))
}

// Draft is an in-progress, not-yet-persisted edit of a request. Dates stay
// as strings until submit-time validation, matching the wire payloads.
type Draft struct {
	RequestID   string `json:"requestId,omitempty"`
	RequesterID string `json:"requesterId"`
	ApproverID  string `json:"approverId,omitempty"`
	LeaveType   string `json:"leaveType"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Status      string `json:"status"`
}

func (d Draft) trimmed() Draft {
	d.RequestID = strings.TrimSpace(d.RequestID)
	d.RequesterID = strings.TrimSpace(d.RequesterID)
	d.ApproverID = strings.TrimSpace(d.ApproverID)
	d.LeaveType = strings.ToLower(strings.TrimSpace(d.LeaveType))
	d.StartDate = strings.TrimSpace(d.StartDate)
	d.EndDate = strings.TrimSpace(d.EndDate)
	d.Status = strings.ToLower(strings.TrimSpace(d.Status))
	return d
}

// DateRange parses the draft's start and end dates.
func (d Draft) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, d.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(dateLayout, d.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date the way drafts and overlay keys carry them.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
