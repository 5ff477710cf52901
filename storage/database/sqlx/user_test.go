package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/user"
)

var userRowColumns = []string{"id", "name", "email", "is_faculty", "is_active", "created_at", "updated_at", "last_login"}

func TestUserRepository_CheckUniqueness(t *testing.T) {
	ctx := context.Background()
	excluded := []user.User{{ID: "7b0f6a5e-4f0e-4a8b-9c55-3f3c2d1b0a99"}}

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{"unique", sqlmock.NewRows([]string{"name", "email"}), nil},
		{"name taken", sqlmock.NewRows([]string{"name", "email"}).AddRow("김철수", "other@x.io"), user.ErrNameExists},
		{"email taken", sqlmock.NewRows([]string{"name", "email"}).AddRow("이영희", "kim@x.io"), user.ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectQuery(regexp.QuoteMeta(checkUniquenessQuery)).
				WithArgs("김철수", "kim@x.io", pq.Array([]string{excluded[0].ID})).
				WillReturnRows(tt.rows)

			err := NewUserRepository(db).CheckUniqueness(ctx, "김철수", "kim@x.io", excluded)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestUserRepository_QueryUsers(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	faculty := true

	mock.ExpectQuery(regexp.QuoteMeta(queryUsersQuery+" WHERE (name ILIKE $1 OR email ILIKE $1) AND is_faculty = $2 ORDER BY email DESC")).
		WithArgs("%kim%", true).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", "김철수", "kim@x.io", true, true, now, now, nil))

	users, err := NewUserRepository(db).QueryUsers(
		context.Background(),
		&user.QueryFilter{Search: "kim", IsFaculty: &faculty},
		[]core.DBOrdering{{Field: "email"}, {Field: "password"}},
	)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "김철수", users[0].Name)
	assert.False(t, users[0].LastLogin.Valid)
}

func TestUserRepository_GetUser(t *testing.T) {
	ctx := context.Background()

	t.Run("by email", func(t *testing.T) {
		db, mock := newMock(t)
		now := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(queryUsersQuery + " WHERE email = $1")).
			WithArgs("kim@x.io").
			WillReturnRows(sqlmock.NewRows(userRowColumns).
				AddRow("u1", "김철수", "kim@x.io", false, true, now, now, now))

		usr, err := NewUserRepository(db).GetUser(ctx, user.GetFilter{Email: "kim@x.io"})
		require.NoError(t, err)
		assert.Equal(t, "u1", usr.ID)
		assert.Equal(t, null.TimeFrom(now), usr.LastLogin)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(queryUsersQuery + " WHERE name = $1")).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		_, err := NewUserRepository(db).GetUser(ctx, user.GetFilter{Name: "nobody"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("malformed id", func(t *testing.T) {
		db, _ := newMock(t)
		_, err := NewUserRepository(db).GetUser(ctx, user.GetFilter{ID: "42"})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestUserRepository_CreateUser(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "김철수", "kim@x.io", false, true, now, now, null.Time{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	usr, err := NewUserRepository(db).CreateUser(context.Background(), user.User{
		Name: "김철수", Email: "kim@x.io", IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Len(t, usr.ID, 36)
}

func TestUserRepository_UpdateUser_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := NewUserRepository(db).UpdateUser(context.Background(), user.User{ID: "u1"})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestUserRepository_DeleteUsersByID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id IN ($1, $2)`)).
		WithArgs("u1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewUserRepository(db)
	require.NoError(t, repo.DeleteUsersByID(context.Background(), []string{"u1", "u2"}))
	require.NoError(t, repo.DeleteUsersByID(context.Background(), nil))
}

func TestUserRepository_RegisteredNames(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(registeredNamesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("김철수").AddRow("이영희"))

	names, err := NewUserRepository(db).RegisteredNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"김철수", "이영희"}, names)
}
