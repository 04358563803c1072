package repository

import (
	"context"

	"github.com/iliyamo/task-manager/internal/model"
)

// Session rows for MySQLUserRepo. One row per refresh token; inserts are
// independent so concurrent logins never overwrite each other.

// AppendSession inserts a session row for the user.
func (r *MySQLUserRepo) AppendSession(ctx context.Context, userID string, s model.Session) error {
	n, ok := parseID(userID)
	if !ok {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (user_id, token, expires_at)
		 SELECT id, ?, ? FROM users WHERE id=?`,
		s.Token, s.ExpiresAt, n)
	if err != nil {
		return err
	}
	if aff, err := res.RowsAffected(); err == nil && aff == 0 {
		return ErrNotFound
	}
	return nil
}

// loadSessions returns every session of the user in insertion order.
func (r *MySQLUserRepo) loadSessions(ctx context.Context, userID uint64) ([]model.Session, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT token, expires_at FROM sessions WHERE user_id=? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.Token, &s.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// PruneExpiredSessions deletes every session whose expiry has passed.
func (r *MySQLUserRepo) PruneExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
