package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/repository"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var (
	userCols    = []string{"id", "email", "password_hash"}
	sessionCols = []string{"token", "expires_at"}
)

func TestMySQLUsers_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(q("INSERT INTO users (email, password_hash)")).
			WithArgs("a@example.com", "digest").
			WillReturnResult(sqlmock.NewResult(7, 1))

		u := &model.User{Email: "a@example.com", PasswordHash: "digest"}
		require.NoError(t, repository.NewMySQLUserRepo(db).Create(ctx, u))
		assert.Equal(t, "7", u.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(q("INSERT INTO users")).
			WithArgs("a@example.com", "digest").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@example.com' for key 'email'"})

		err := repository.NewMySQLUserRepo(db).Create(ctx, &model.User{Email: "a@example.com", PasswordHash: "digest"})
		assert.ErrorIs(t, err, repository.ErrEmailExists)
	})

	t.Run("other driver errors pass through", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(q("INSERT INTO users")).
			WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})

		err := repository.NewMySQLUserRepo(db).Create(ctx, &model.User{Email: "a@example.com", PasswordHash: "digest"})
		var me *mysql.MySQLError
		require.True(t, errors.As(err, &me))
		assert.Equal(t, uint16(1205), me.Number)
		assert.NotErrorIs(t, err, repository.ErrEmailExists)
	})

	t.Run("refuses plaintext password", func(t *testing.T) {
		db, _ := newMock(t)
		u := &model.User{Email: "a@example.com"}
		u.SetPassword("password123")
		assert.ErrorIs(t, repository.NewMySQLUserRepo(db).Create(ctx, u), repository.ErrPlaintextPassword)
	})
}

func TestMySQLUsers_FindByIDAndToken(t *testing.T) {
	ctx := context.Background()

	t.Run("loads user with every session", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM users u .*EXISTS \(SELECT 1 FROM sessions s`).
			WithArgs(7, "tok-b").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "a@example.com", "digest"))
		mock.ExpectQuery(q("SELECT token, expires_at FROM sessions WHERE user_id=? ORDER BY id")).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("tok-a", 100).AddRow("tok-b", 200))

		u, err := repository.NewMySQLUserRepo(db).FindByIDAndToken(ctx, "7", "tok-b")
		require.NoError(t, err)
		assert.Equal(t, "7", u.ID)
		assert.Equal(t, "a@example.com", u.Email)
		assert.Equal(t, []model.Session{{Token: "tok-a", ExpiresAt: 100}, {Token: "tok-b", ExpiresAt: 200}}, u.Sessions)
	})

	t.Run("no matching session", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM users u`).
			WithArgs(7, "nope").
			WillReturnRows(sqlmock.NewRows(userCols))

		_, err := repository.NewMySQLUserRepo(db).FindByIDAndToken(ctx, "7", "nope")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("non-numeric id never queries", func(t *testing.T) {
		db, _ := newMock(t)
		_, err := repository.NewMySQLUserRepo(db).FindByIDAndToken(ctx, "65f0c0ffee", "tok")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestMySQLUsers_AppendSession(t *testing.T) {
	ctx := context.Background()
	insert := `INSERT INTO sessions \(user_id, token, expires_at\) SELECT id, \?, \? FROM users WHERE id=\?`

	t.Run("inserts a row per session", func(t *testing.T) {
		db, mock := newMock(t)
		repo := repository.NewMySQLUserRepo(db)
		mock.ExpectExec(insert).WithArgs("tok-a", 100, 7).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(insert).WithArgs("tok-b", 100, 7).WillReturnResult(sqlmock.NewResult(2, 1))

		require.NoError(t, repo.AppendSession(ctx, "7", model.Session{Token: "tok-a", ExpiresAt: 100}))
		require.NoError(t, repo.AppendSession(ctx, "7", model.Session{Token: "tok-b", ExpiresAt: 100}))
	})

	t.Run("unknown user", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(insert).WithArgs("tok", 100, 9).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repository.NewMySQLUserRepo(db).AppendSession(ctx, "9", model.Session{Token: "tok", ExpiresAt: 100})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("storage failure", func(t *testing.T) {
		db, mock := newMock(t)
		boom := errors.New("connection reset")
		mock.ExpectExec(insert).WillReturnError(boom)

		err := repository.NewMySQLUserRepo(db).AppendSession(ctx, "7", model.Session{Token: "tok", ExpiresAt: 100})
		assert.ErrorIs(t, err, boom)
	})
}

func TestMySQLUsers_PruneExpiredSessions(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(q("DELETE FROM sessions WHERE expires_at <= ?")).
		WithArgs(50).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repository.NewMySQLUserRepo(db).PruneExpiredSessions(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestMySQLUsers_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	update := q("UPDATE users SET password_hash=? WHERE id=?")
	exists := q("SELECT 1 FROM users WHERE id=?")

	t.Run("row changed", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(update).WithArgs("digest2", 7).WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repository.NewMySQLUserRepo(db).UpdatePassword(ctx, "7", "digest2"))
	})

	t.Run("unchanged row still exists", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(update).WithArgs("digest", 7).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(exists).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		require.NoError(t, repository.NewMySQLUserRepo(db).UpdatePassword(ctx, "7", "digest"))
	})

	t.Run("missing user", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(update).WithArgs("digest", 9).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(exists).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"1"}))
		assert.ErrorIs(t, repository.NewMySQLUserRepo(db).UpdatePassword(ctx, "9", "digest"), repository.ErrNotFound)
	})
}

func TestMySQLLists(t *testing.T) {
	ctx := context.Background()
	listCols := []string{"id", "user_id", "title"}
	get := q("SELECT id, user_id, title FROM lists WHERE id = ? AND user_id = ?")

	t.Run("list by user", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(q("SELECT id, user_id, title FROM lists WHERE user_id = ? ORDER BY id")).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows(listCols).AddRow(1, 7, "first").AddRow(2, 7, "second"))

		got, err := repository.NewMySQLListRepo(db).ListByUser(ctx, "7")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, &model.List{ID: "1", UserID: "7", Title: "first"}, got[0])
	})

	t.Run("foreign list is not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(get).WithArgs(1, 8).WillReturnRows(sqlmock.NewRows(listCols))

		_, err := repository.NewMySQLListRepo(db).GetByIDAndUser(ctx, "1", "8")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("update title", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(get).WithArgs(1, 7).WillReturnRows(sqlmock.NewRows(listCols).AddRow(1, 7, "old"))
		mock.ExpectExec(q("UPDATE lists SET title = ? WHERE id = ? AND user_id = ?")).
			WithArgs("new", "1", "7").
			WillReturnResult(sqlmock.NewResult(0, 1))

		title := "new"
		l, err := repository.NewMySQLListRepo(db).Update(ctx, "1", "7", model.ListPatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "new", l.Title)
	})

	t.Run("delete raced by another delete", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(get).WithArgs(1, 7).WillReturnRows(sqlmock.NewRows(listCols).AddRow(1, 7, "first"))
		mock.ExpectExec(q("DELETE FROM lists WHERE id = ? AND user_id = ?")).
			WithArgs("1", "7").
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := repository.NewMySQLListRepo(db).Delete(ctx, "1", "7")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestMySQLTasks(t *testing.T) {
	ctx := context.Background()
	taskCols := []string{"id", "list_id", "title", "completed"}
	get := q("SELECT id, list_id, title, completed FROM tasks WHERE id = ? AND list_id = ?")

	t.Run("create", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(q("INSERT INTO tasks (list_id, title, completed)")).
			WithArgs(3, "write tests", false).
			WillReturnResult(sqlmock.NewResult(11, 1))

		tk := &model.Task{ListID: "3", Title: "write tests"}
		require.NoError(t, repository.NewMySQLTaskRepo(db).Create(ctx, tk))
		assert.Equal(t, "11", tk.ID)
	})

	t.Run("update merges the patch", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(get).WithArgs(11, 3).
			WillReturnRows(sqlmock.NewRows(taskCols).AddRow(11, 3, "write tests", false))
		mock.ExpectExec(q("UPDATE tasks SET title = ?, completed = ? WHERE id = ? AND list_id = ?")).
			WithArgs("write tests", true, "11", "3").
			WillReturnResult(sqlmock.NewResult(0, 1))

		done := true
		tk, err := repository.NewMySQLTaskRepo(db).Update(ctx, "11", "3", model.TaskPatch{Completed: &done})
		require.NoError(t, err)
		assert.Equal(t, &model.Task{ID: "11", ListID: "3", Title: "write tests", Completed: true}, tk)
	})

	t.Run("task of another list", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(get).WithArgs(11, 4).WillReturnRows(sqlmock.NewRows(taskCols))

		_, err := repository.NewMySQLTaskRepo(db).Get(ctx, "11", "4")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("delete by list", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(q("DELETE FROM tasks WHERE list_id = ?")).WithArgs(3).
			WillReturnResult(sqlmock.NewResult(0, 2))

		n, err := repository.NewMySQLTaskRepo(db).DeleteByList(ctx, "3")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}
