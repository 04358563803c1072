package repository

import (
	"context"

	"github.com/iliyamo/task-manager/internal/model"
)

// UserRepository persists users and their sessions.
type UserRepository interface {
	// Create inserts u and assigns u.ID. Returns ErrEmailExists on a
	// duplicate email and ErrPlaintextPassword if u still has a pending
	// password.
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByIDAndToken returns the user with id that has at least one
	// session carrying token, regardless of expiry.
	FindByIDAndToken(ctx context.Context, id, token string) (*model.User, error)
	// AppendSession atomically adds s to the user's sessions. Concurrent
	// appends for the same user must all persist.
	AppendSession(ctx context.Context, userID string, s model.Session) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	// PruneExpiredSessions removes sessions with ExpiresAt <= now.
	PruneExpiredSessions(ctx context.Context, now int64) (int64, error)
}

// ListRepository persists lists. Every lookup except Create is scoped to the
// owning user.
type ListRepository interface {
	Create(ctx context.Context, l *model.List) error
	ListByUser(ctx context.Context, userID string) ([]*model.List, error)
	GetByIDAndUser(ctx context.Context, id, userID string) (*model.List, error)
	Update(ctx context.Context, id, userID string, p model.ListPatch) (*model.List, error)
	// Delete removes the list and returns what was removed.
	Delete(ctx context.Context, id, userID string) (*model.List, error)
}

// TaskRepository persists tasks. Every lookup is scoped to a list; list
// ownership is checked by the caller.
type TaskRepository interface {
	Create(ctx context.Context, t *model.Task) error
	ListByList(ctx context.Context, listID string) ([]*model.Task, error)
	Get(ctx context.Context, id, listID string) (*model.Task, error)
	Update(ctx context.Context, id, listID string, p model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, id, listID string) (*model.Task, error)
	DeleteByList(ctx context.Context, listID string) (int64, error)
}

// Manager bundles the repositories of one storage backend.
type Manager interface {
	Users() UserRepository
	Lists() ListRepository
	Tasks() TaskRepository
	Close(ctx context.Context) error
}

type manager struct {
	users UserRepository
	lists ListRepository
	tasks TaskRepository
	close func(ctx context.Context) error
}

func (m *manager) Users() UserRepository { return m.users }
func (m *manager) Lists() ListRepository { return m.lists }
func (m *manager) Tasks() TaskRepository { return m.tasks }

func (m *manager) Close(ctx context.Context) error {
	if m.close == nil {
		return nil
	}
	return m.close(ctx)
}
