package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/task-manager/internal/model"
)

// NewMySQLManager wires the MySQL repositories on an open pool. Close
// closes the pool.
func NewMySQLManager(db *sql.DB) Manager {
	return &manager{
		users: NewMySQLUserRepo(db),
		lists: NewMySQLListRepo(db),
		tasks: NewMySQLTaskRepo(db),
		close: func(context.Context) error { return db.Close() },
	}
}

// MySQLUserRepo mirrors the 'users' table; sessions live in their own
// 'sessions' table (see mysql_sessions.go).
type MySQLUserRepo struct{ DB *sql.DB }

func NewMySQLUserRepo(db *sql.DB) *MySQLUserRepo { return &MySQLUserRepo{DB: db} }

// parseID converts a decimal id; anything else cannot exist in MySQL.
func parseID(id string) (uint64, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	return n, err == nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// Create inserts user and sets its ID.
func (r *MySQLUserRepo) Create(ctx context.Context, u *model.User) error {
	if u.PasswordDirty() {
		return ErrPlaintextPassword
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES (?,?)",
		u.Email, u.PasswordHash)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = strconv.FormatInt(id, 10)
	for _, s := range u.Sessions {
		if err := r.AppendSession(ctx, u.ID, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *MySQLUserRepo) scanUser(ctx context.Context, query string, args ...any) (*model.User, error) {
	var (
		id uint64
		u  model.User
	)
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&id, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.ID = strconv.FormatUint(id, 10)
	sessions, err := r.loadSessions(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Sessions = sessions
	return &u, nil
}

// FindByEmail fetches a user and its sessions by exact email.
func (r *MySQLUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.scanUser(ctx,
		"SELECT id,email,password_hash FROM users WHERE email=? LIMIT 1", email)
}

// FindByID fetches a user and its sessions by id.
func (r *MySQLUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	return r.scanUser(ctx,
		"SELECT id,email,password_hash FROM users WHERE id=? LIMIT 1", n)
}

// FindByIDAndToken fetches the user only if one of its sessions carries token.
func (r *MySQLUserRepo) FindByIDAndToken(ctx context.Context, id, token string) (*model.User, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	return r.scanUser(ctx,
		`SELECT u.id,u.email,u.password_hash FROM users u
		 WHERE u.id=? AND EXISTS (SELECT 1 FROM sessions s WHERE s.user_id=u.id AND s.token=?)
		 LIMIT 1`, n, token)
}

func (r *MySQLUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	n, ok := parseID(userID)
	if !ok {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", passwordHash, n)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// MySQL reports 0 for an unchanged row too, so confirm existence.
		var one int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", n).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
	}
	return nil
}
