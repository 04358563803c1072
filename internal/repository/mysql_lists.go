package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/iliyamo/task-manager/internal/model"
)

// MySQLListRepo encapsulates all queries on the 'lists' table.
type MySQLListRepo struct {
	db *sql.DB
}

func NewMySQLListRepo(db *sql.DB) *MySQLListRepo {
	return &MySQLListRepo{db: db}
}

// Create inserts a new list; l.ID is populated from the auto-increment.
func (r *MySQLListRepo) Create(ctx context.Context, l *model.List) error {
	uid, ok := parseID(l.UserID)
	if !ok {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, "INSERT INTO lists (user_id, title) VALUES (?, ?)", uid, l.Title)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = strconv.FormatInt(id, 10)
	return nil
}

// ListByUser returns all lists for a user ordered by id.
func (r *MySQLListRepo) ListByUser(ctx context.Context, userID string) ([]*model.List, error) {
	out := []*model.List{}
	uid, ok := parseID(userID)
	if !ok {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, "SELECT id, user_id, title FROM lists WHERE user_id = ? ORDER BY id", uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanList(s rowScanner) (*model.List, error) {
	var id, uid uint64
	l := new(model.List)
	if err := s.Scan(&id, &uid, &l.Title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	l.ID = strconv.FormatUint(id, 10)
	l.UserID = strconv.FormatUint(uid, 10)
	return l, nil
}

// GetByIDAndUser fetches a list only if it belongs to userID.
func (r *MySQLListRepo) GetByIDAndUser(ctx context.Context, id, userID string) (*model.List, error) {
	lid, ok1 := parseID(id)
	uid, ok2 := parseID(userID)
	if !ok1 || !ok2 {
		return nil, ErrNotFound
	}
	return scanList(r.db.QueryRowContext(ctx,
		"SELECT id, user_id, title FROM lists WHERE id = ? AND user_id = ?", lid, uid))
}

// Update applies the patch when the list belongs to userID.
func (r *MySQLListRepo) Update(ctx context.Context, id, userID string, p model.ListPatch) (*model.List, error) {
	l, err := r.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if p.Title == nil {
		return l, nil
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE lists SET title = ? WHERE id = ? AND user_id = ?",
		*p.Title, l.ID, l.UserID); err != nil {
		return nil, err
	}
	l.Title = *p.Title
	return l, nil
}

// Delete removes the list; tasks go with it through the foreign key.
func (r *MySQLListRepo) Delete(ctx context.Context, id, userID string) (*model.List, error) {
	l, err := r.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM lists WHERE id = ? AND user_id = ?", l.ID, l.UserID)
	if err != nil {
		return nil, err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return nil, ErrNotFound
	}
	return l, nil
}
