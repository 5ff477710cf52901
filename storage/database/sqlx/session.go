package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/session"
)

const (
	sessionColumns = "id, name, description, status, created_by, created_at, updated_at"

	createSessionQuery = `INSERT INTO sessions (name, description, status, created_by, created_at, updated_at)
VALUES (:name, :description, :status, :created_by, :created_at, :updated_at) RETURNING id`
	querySessionsQuery = `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC, id DESC LIMIT $1`
	getSessionQuery    = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	updateSessionQuery = `UPDATE sessions
SET name = :name, description = :description, status = :status, updated_at = :updated_at
WHERE id = :id`
	deleteSessionQuery = `DELETE FROM sessions WHERE id = $1`

	deleteMembersQuery = `DELETE FROM team_members WHERE session_id = $1`
	insertMembersQuery = `INSERT INTO team_members (session_id, team_name, user_name) VALUES (:session_id, :team_name, :user_name)`
	queryMembersQuery  = `SELECT session_id, team_name, user_name FROM team_members WHERE session_id = $1 ORDER BY team_name, user_name`

	queryActiveSessionsQuery = `SELECT session_id, session_name, session_description, status, session_created_at, team_name, user_name
FROM user_active_sessions WHERE user_name = $1 ORDER BY session_created_at DESC, session_id DESC`
)

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session, exec ...core.DBExecutor) (session.Session, error) {
	rows, err := sqlx.NamedQueryContext(ctx, ext(repo.db, exec), createSessionQuery, sess)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err = rows.Err(); err == nil {
			err = sql.ErrNoRows
		}
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	if err = rows.Scan(&sess.ID); err != nil {
		return session.Session{}, errors.Wrap(err, "scanning session id")
	}
	return sess, nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, limit int, exec ...core.DBExecutor) ([]session.Session, error) {
	sessions := make([]session.Session, 0)
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &sessions, querySessionsQuery, limit); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	return sessions, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, id int64, exec ...core.DBExecutor) (session.Session, error) {
	var sess session.Session
	err := sqlx.GetContext(ctx, ext(repo.db, exec), &sess, getSessionQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, errors.Wrap(err, "getting session")
	}
	return sess, nil
}

func (repo *sessionRepository) UpdateSession(ctx context.Context, sess session.Session, exec ...core.DBExecutor) (session.Session, error) {
	res, err := sqlx.NamedExecContext(ctx, ext(repo.db, exec), updateSessionQuery, sess)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	if rowsAffected(res) == 0 {
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	res, err := ext(repo.db, exec).ExecContext(ctx, deleteSessionQuery, id)
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if rowsAffected(res) == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (repo *sessionRepository) DeleteMembers(ctx context.Context, sessionID int64, exec ...core.DBExecutor) error {
	if _, err := ext(repo.db, exec).ExecContext(ctx, deleteMembersQuery, sessionID); err != nil {
		return errors.Wrap(err, "deleting members")
	}
	return nil
}

// InsertMembers inserts all members with one statement.
func (repo *sessionRepository) InsertMembers(ctx context.Context, members []session.Member, exec ...core.DBExecutor) error {
	if len(members) == 0 {
		return nil
	}
	if _, err := sqlx.NamedExecContext(ctx, ext(repo.db, exec), insertMembersQuery, members); err != nil {
		return errors.Wrap(err, "inserting members")
	}
	return nil
}

func (repo *sessionRepository) QueryMembers(ctx context.Context, sessionID int64, exec ...core.DBExecutor) ([]session.Member, error) {
	members := make([]session.Member, 0)
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &members, queryMembersQuery, sessionID); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	return members, nil
}

func (repo *sessionRepository) QueryActiveSessions(ctx context.Context, userName string, exec ...core.DBExecutor) ([]session.ActiveSession, error) {
	active := make([]session.ActiveSession, 0)
	if err := sqlx.SelectContext(ctx, ext(repo.db, exec), &active, queryActiveSessionsQuery, userName); err != nil {
		return nil, errors.Wrap(err, "querying active sessions")
	}
	return active, nil
}
