package permission

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the PostgreSQL implementation of Backend.
type Repo struct {
	DB *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{DB: db}
}

const requestColumns = `
    id, requester_id, COALESCE(approver_id::text, ''), leave_type,
    start_date, end_date, status, created_at, updated_at
`

func (r *Repo) List(ctx context.Context, scope Scope, actorID string) ([]Request, error) {
	query := "SELECT" + requestColumns + "FROM permission_requests"
	var args []any
	switch scope {
	case ScopeOwn:
		query += " WHERE requester_id = $1"
		args = append(args, actorID)
	case ScopeGroupManaged:
		query += " WHERE requester_id = $1 OR requester_id IN (SELECT id FROM users WHERE manager_id = $1)"
		args = append(args, actorID)
	}
	query += " ORDER BY created_at, id"

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *Repo) Create(ctx context.Context, draft Draft) (Request, error) {
	start, end, err := draft.DateRange()
	if err != nil {
		return Request{}, err
	}

	// New requests always enter the workflow pending, whatever the draft says.
	row := r.DB.QueryRow(ctx, `
    INSERT INTO permission_requests (requester_id, approver_id, leave_type, start_date, end_date, status)
    VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6)
    RETURNING`+requestColumns,
		draft.RequesterID, draft.ApproverID, draft.LeaveType, start, end, StatusPending)
	return scanRequest(row)
}

func (r *Repo) Update(ctx context.Context, id string, draft Draft) (Request, error) {
	start, end, err := draft.DateRange()
	if err != nil {
		return Request{}, err
	}

	row := r.DB.QueryRow(ctx, `
    UPDATE permission_requests
    SET requester_id = $1, approver_id = NULLIF($2, '')::uuid, leave_type = $3,
        start_date = $4, end_date = $5, status = $6, updated_at = now()
    WHERE id = $7
    RETURNING`+requestColumns,
		draft.RequesterID, draft.ApproverID, draft.LeaveType, start, end, draft.Status, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	return req, err
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.RequesterID, &req.ApproverID, &req.LeaveType,
		&req.StartDate, &req.EndDate, &req.Status, &req.CreatedAt, &req.UpdatedAt,
	)
	return req, err
}
