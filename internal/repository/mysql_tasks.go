package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/iliyamo/task-manager/internal/model"
)

// MySQLTaskRepo encapsulates all queries on the 'tasks' table.
type MySQLTaskRepo struct {
	db *sql.DB
}

func NewMySQLTaskRepo(db *sql.DB) *MySQLTaskRepo {
	return &MySQLTaskRepo{db: db}
}

func scanTask(s rowScanner) (*model.Task, error) {
	var id, lid uint64
	t := new(model.Task)
	if err := s.Scan(&id, &lid, &t.Title, &t.Completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.ID = strconv.FormatUint(id, 10)
	t.ListID = strconv.FormatUint(lid, 10)
	return t, nil
}

func (r *MySQLTaskRepo) Create(ctx context.Context, t *model.Task) error {
	lid, ok := parseID(t.ListID)
	if !ok {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tasks (list_id, title, completed) VALUES (?, ?, ?)", lid, t.Title, t.Completed)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = strconv.FormatInt(id, 10)
	return nil
}

func (r *MySQLTaskRepo) ListByList(ctx context.Context, listID string) ([]*model.Task, error) {
	out := []*model.Task{}
	lid, ok := parseID(listID)
	if !ok {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, list_id, title, completed FROM tasks WHERE list_id = ? ORDER BY id", lid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MySQLTaskRepo) Get(ctx context.Context, id, listID string) (*model.Task, error) {
	tid, ok1 := parseID(id)
	lid, ok2 := parseID(listID)
	if !ok1 || !ok2 {
		return nil, ErrNotFound
	}
	return scanTask(r.db.QueryRowContext(ctx,
		"SELECT id, list_id, title, completed FROM tasks WHERE id = ? AND list_id = ?", tid, lid))
}

func (r *MySQLTaskRepo) Update(ctx context.Context, id, listID string, p model.TaskPatch) (*model.Task, error) {
	t, err := r.Get(ctx, id, listID)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET title = ?, completed = ? WHERE id = ? AND list_id = ?",
		t.Title, t.Completed, t.ID, t.ListID); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *MySQLTaskRepo) Delete(ctx context.Context, id, listID string) (*model.Task, error) {
	t, err := r.Get(ctx, id, listID)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND list_id = ?", t.ID, t.ListID)
	if err != nil {
		return nil, err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return nil, ErrNotFound
	}
	return t, nil
}

func (r *MySQLTaskRepo) DeleteByList(ctx context.Context, listID string) (int64, error) {
	lid, ok := parseID(listID)
	if !ok {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE list_id = ?", lid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
