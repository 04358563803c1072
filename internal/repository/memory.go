package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/task-manager/internal/model"
)

// NewMemoryManager returns a Manager whose repositories keep everything in
// process memory. It backs STORE_DRIVER=memory and the tests.
func NewMemoryManager() Manager {
	s := &memoryStore{
		users: map[string]*model.User{},
		lists: map[string]*model.List{},
		tasks: map[string]*model.Task{},
	}
	return &manager{
		users: &MemoryUserRepo{s: s},
		lists: &MemoryListRepo{s: s},
		tasks: &MemoryTaskRepo{s: s},
	}
}

// memoryStore is shared by the three memory repositories so that a single
// lock orders every write.
type memoryStore struct {
	mu    sync.RWMutex
	seq   int64 // insertion order for stable listings
	users map[string]*model.User
	lists map[string]*model.List
	tasks map[string]*model.Task
	order map[string]int64
}

func (s *memoryStore) next(id string) {
	if s.order == nil {
		s.order = map[string]int64{}
	}
	s.seq++
	s.order[id] = s.seq
}

func copyUser(u *model.User) *model.User {
	c := *u
	c.Sessions = append([]model.Session(nil), u.Sessions...)
	return &c
}

// MemoryUserRepo implements UserRepository in memory.
type MemoryUserRepo struct{ s *memoryStore }

func (r *MemoryUserRepo) Create(_ context.Context, u *model.User) error {
	if u.PasswordDirty() {
		return ErrPlaintextPassword
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return ErrEmailExists
		}
	}
	u.ID = uuid.NewString()
	r.s.users[u.ID] = copyUser(u)
	r.s.next(u.ID)
	return nil
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepo) FindByIDAndToken(_ context.Context, id, token string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok || len(u.SessionsWithToken(token)) == 0 {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (r *MemoryUserRepo) AppendSession(_ context.Context, userID string, s model.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Sessions = append(u.Sessions, s)
	return nil
}

func (r *MemoryUserRepo) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *MemoryUserRepo) PruneExpiredSessions(_ context.Context, now int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for _, u := range r.s.users {
		kept := u.Sessions[:0]
		for _, s := range u.Sessions {
			if s.ExpiresAt <= now {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		u.Sessions = kept
	}
	return removed, nil
}

// SetSessionExpiry rewrites the expiry of every session of userID carrying
// token. It exists for tests and local tooling that need to age a session.
func (r *MemoryUserRepo) SetSessionExpiry(userID, token string, expiresAt int64) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return false
	}
	found := false
	for i := range u.Sessions {
		if u.Sessions[i].Token == token {
			u.Sessions[i].ExpiresAt = expiresAt
			found = true
		}
	}
	return found
}

// MemoryListRepo implements ListRepository in memory.
type MemoryListRepo struct{ s *memoryStore }

func (r *MemoryListRepo) Create(_ context.Context, l *model.List) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = uuid.NewString()
	c := *l
	r.s.lists[l.ID] = &c
	r.s.next(l.ID)
	return nil
}

func (r *MemoryListRepo) ListByUser(_ context.Context, userID string) ([]*model.List, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.List{}
	for _, l := range r.s.lists {
		if l.UserID == userID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.order[out[i].ID] < r.s.order[out[j].ID] })
	return out, nil
}

func (r *MemoryListRepo) GetByIDAndUser(_ context.Context, id, userID string) (*model.List, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.lists[id]
	if !ok || l.UserID != userID {
		return nil, ErrNotFound
	}
	c := *l
	return &c, nil
}

func (r *MemoryListRepo) Update(_ context.Context, id, userID string, p model.ListPatch) (*model.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lists[id]
	if !ok || l.UserID != userID {
		return nil, ErrNotFound
	}
	if p.Title != nil {
		l.Title = *p.Title
	}
	c := *l
	return &c, nil
}

func (r *MemoryListRepo) Delete(_ context.Context, id, userID string) (*model.List, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lists[id]
	if !ok || l.UserID != userID {
		return nil, ErrNotFound
	}
	delete(r.s.lists, id)
	return l, nil
}

// MemoryTaskRepo implements TaskRepository in memory.
type MemoryTaskRepo struct{ s *memoryStore }

func (r *MemoryTaskRepo) Create(_ context.Context, t *model.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = uuid.NewString()
	c := *t
	r.s.tasks[t.ID] = &c
	r.s.next(t.ID)
	return nil
}

func (r *MemoryTaskRepo) ListByList(_ context.Context, listID string) ([]*model.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Task{}
	for _, t := range r.s.tasks {
		if t.ListID == listID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.s.order[out[i].ID] < r.s.order[out[j].ID] })
	return out, nil
}

func (r *MemoryTaskRepo) Get(_ context.Context, id, listID string) (*model.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tasks[id]
	if !ok || t.ListID != listID {
		return nil, ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *MemoryTaskRepo) Update(_ context.Context, id, listID string, p model.TaskPatch) (*model.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok || t.ListID != listID {
		return nil, ErrNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	c := *t
	return &c, nil
}

func (r *MemoryTaskRepo) Delete(_ context.Context, id, listID string) (*model.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok || t.ListID != listID {
		return nil, ErrNotFound
	}
	delete(r.s.tasks, id)
	return t, nil
}

func (r *MemoryTaskRepo) DeleteByList(_ context.Context, listID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.tasks {
		if t.ListID == listID {
			delete(r.s.tasks, id)
			n++
		}
	}
	return n, nil
}
