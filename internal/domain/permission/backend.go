package permission

import "context"

// Backend is the persistence collaborator for permission requests. It is
// REST-shaped: List fetches the scoped record set, Create and Update map to
// POST and PUT. The pgx repository implements it in production; tests supply
// in-memory doubles.
type Backend interface {
	List(ctx context.Context, scope Scope, actorID string) ([]Request, error)
	Create(ctx context.Context, draft Draft) (Request, error)
	Update(ctx context.Context, id string, draft Draft) (Request, error)
}
