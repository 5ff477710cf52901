package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/user"
)

const (
	userColumns = "id, name, email, is_faculty, is_active, created_at, updated_at, last_login"

	checkUniquenessQuery = `SELECT name, email FROM users WHERE (name = $1 OR email = $2) AND NOT (id::text = ANY($3)) LIMIT 1`
	createUserQuery      = `INSERT INTO users (` + userColumns + `)
VALUES (:id, :name, :email, :is_faculty, :is_active, :created_at, :updated_at, :last_login)`
	queryUsersQuery = `SELECT ` + userColumns + ` FROM users`
	updateUserQuery = `UPDATE users
SET name = :name, email = :email, is_faculty = :is_faculty, is_active = :is_active, updated_at = :updated_at, last_login = :last_login
WHERE id = :id`
	deleteUsersQuery     = `DELETE FROM users WHERE id IN (?)`
	registeredNamesQuery = `SELECT name FROM users WHERE is_active ORDER BY name`
)

var userOrderingFields = []string{"name", "email", "created_at", "last_login"}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, name, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}

	var found struct {
		Name  string `db:"name"`
		Email string `db:"email"`
	}
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &found, checkUniquenessQuery, name, email, pq.Array(ids))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return errors.Wrap(err, "checking uniqueness")
	case found.Name == name:
		return user.ErrNameExists
	default:
		return user.ErrEmailExists
	}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	if _, err := sqlx.NamedExecContext(ctx, ext(repo.db, exec), createUserQuery, usr); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			where = append(where, "(name ILIKE "+p+" OR email ILIKE "+p+")")
		}
		if filter.IsFaculty != nil {
			where = append(where, "is_faculty = "+arg(*filter.IsFaculty))
		}
		if filter.IsActive != nil {
			where = append(where, "is_active = "+arg(*filter.IsActive))
		}
	}

	q := queryUsersQuery
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + orderBy(core.OrderingIn(ordering, userOrderingFields...), "name ASC")

	users := make([]user.User, 0)
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		column string
		value  string
	)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		column, value = "id", filter.ID
	case filter.Email != "":
		column, value = "email", filter.Email
	case filter.Name != "":
		column, value = "name", filter.Name
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &usr, queryUsersQuery+" WHERE "+column+" = $1", value)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	res, err := sqlx.NamedExecContext(ctx, ext(repo.db, exec), updateUserQuery, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if rowsAffected(res) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(deleteUsersQuery, ids)
	if err != nil {
		return errors.Wrap(err, "binding user ids")
	}
	e := ext(repo.db, exec)
	if _, err = e.ExecContext(ctx, e.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

func (repo *userRepository) RegisteredNames(ctx context.Context, exec ...core.DBExecutor) ([]string, error) {
	names := make([]string, 0)
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &names, registeredNamesQuery); err != nil {
		return nil, errors.Wrap(err, "querying registered names")
	}
	return names, nil
}

func orderBy(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return fallback
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return strings.Join(clauses, ", ")
}
