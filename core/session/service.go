package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/roster"
	"github.com/trezcool/peereval/core/user"
)

// QueryLimit caps the number of sessions listed.
const QueryLimit = 100

var (
	// errors
	ErrNotFound          = errors.New("session not found")
	ErrNotTeamMember     = errors.New("you are not on a team of this session")
	ErrRosterHasWarnings = errors.New("the roster has warnings")
	ErrRosterConflicts   = errors.New("the roster cannot be saved")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session, exec ...core.DBExecutor) (Session, error)
		// QuerySessions returns the newest sessions first.
		QuerySessions(ctx context.Context, limit int, exec ...core.DBExecutor) ([]Session, error)
		GetSession(ctx context.Context, id int64, exec ...core.DBExecutor) (Session, error)
		UpdateSession(ctx context.Context, sess Session, exec ...core.DBExecutor) (Session, error)
		DeleteSession(ctx context.Context, id int64, exec ...core.DBExecutor) error
		DeleteMembers(ctx context.Context, sessionID int64, exec ...core.DBExecutor) error
		InsertMembers(ctx context.Context, members []Member, exec ...core.DBExecutor) error
		// QueryMembers returns the roster of a session ordered by team name, then user name.
		QueryMembers(ctx context.Context, sessionID int64, exec ...core.DBExecutor) ([]Member, error)
		// QueryActiveSessions returns the open sessions userName is on a team of, newest first.
		QueryActiveSessions(ctx context.Context, userName string, exec ...core.DBExecutor) ([]ActiveSession, error)
	}

	// RosterChecker lists the warnings of a roster.
	RosterChecker interface {
		Check(ctx context.Context, teams roster.TeamSet) ([]string, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewSession, creator user.User) (Session, error)
		Query(ctx context.Context) ([]Session, error)
		Get(ctx context.Context, id int64) (Session, error)
		Update(ctx context.Context, id int64, us UpdateSession) (Session, error)
		Delete(ctx context.Context, id int64) error
		Start(ctx context.Context, id int64) (Session, error)
		Stop(ctx context.Context, id int64) (Session, error)
		Toggle(ctx context.Context, id int64) (Session, error)
		Teams(ctx context.Context, id int64) (roster.TeamSet, error)
		ReplaceTeams(ctx context.Context, id int64, teams roster.TeamSet, force bool) (ReplaceResult, error)
		TeamOf(ctx context.Context, id int64, userName string) (roster.Team, error)
		ActiveFor(ctx context.Context, userName string) ([]ActiveSession, error)
	}

	service struct {
		repo    Repository
		tx      core.Transactor
		checker RosterChecker
		nowFunc func() time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(tx core.Transactor, repo Repository, checker RosterChecker) Service {
	return &service{
		repo:    repo,
		tx:      tx,
		checker: checker,
		nowFunc: time.Now,
	}
}

func (svc *service) now() time.Time {
	return svc.nowFunc().UTC().Truncate(time.Microsecond)
}

func (svc *service) Create(ctx context.Context, ns NewSession, creator user.User) (Session, error) {
	now := svc.now()
	sess := Session{
		Name:        ns.Name,
		Description: null.NewString(ns.Description, ns.Description != ""),
		Status:      StatusStopped,
		CreatedBy:   null.NewString(creator.ID, creator.ID != ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateSession(ctx, sess)
}

func (svc *service) Query(ctx context.Context) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, QueryLimit)
}

func (svc *service) Get(ctx context.Context, id int64) (Session, error) {
	return svc.repo.GetSession(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int64, us UpdateSession) (Session, error) {
	sess, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if us.Name != nil {
		sess.Name = *us.Name
	}
	if us.Description != nil {
		sess.Description = null.NewString(*us.Description, *us.Description != "")
	}
	sess.UpdatedAt = svc.now()
	return svc.repo.UpdateSession(ctx, sess)
}

func (svc *service) Delete(ctx context.Context, id int64) error {
	return svc.repo.DeleteSession(ctx, id)
}

func (svc *service) setStatus(ctx context.Context, id int64, status func(Session) Status) (Session, error) {
	var sess Session
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if sess, err = svc.repo.GetSession(ctx, id, exec); err != nil {
			return err
		}
		sess.Status = status(sess)
		sess.UpdatedAt = svc.now()
		sess, err = svc.repo.UpdateSession(ctx, sess, exec)
		return err
	})
	return sess, err
}

func (svc *service) Start(ctx context.Context, id int64) (Session, error) {
	return svc.setStatus(ctx, id, func(Session) Status { return StatusOpen })
}

func (svc *service) Stop(ctx context.Context, id int64) (Session, error) {
	return svc.setStatus(ctx, id, func(Session) Status { return StatusStopped })
}

func (svc *service) Toggle(ctx context.Context, id int64) (Session, error) {
	return svc.setStatus(ctx, id, func(s Session) Status {
		if s.IsOpen() {
			return StatusStopped
		}
		return StatusOpen
	})
}

func (svc *service) Teams(ctx context.Context, id int64) (roster.TeamSet, error) {
	if _, err := svc.repo.GetSession(ctx, id); err != nil {
		return nil, err
	}
	members, err := svc.repo.QueryMembers(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	return groupTeams(members), nil
}

// ReplaceTeams replaces the whole roster of a session.
// Any warning blocks the replacement unless force is set;
// conflicts (duplicated members or team names) always block it.
func (svc *service) ReplaceTeams(ctx context.Context, id int64, teams roster.TeamSet, force bool) (ReplaceResult, error) {
	if conflicts := roster.Conflicts(teams); len(conflicts) > 0 {
		return ReplaceResult{}, core.NewWarningsError(ErrRosterConflicts, conflicts)
	}
	if !force {
		warnings, err := svc.checker.Check(ctx, teams)
		if err != nil {
			return ReplaceResult{}, errors.Wrap(err, "checking roster")
		}
		if len(warnings) > 0 {
			return ReplaceResult{}, core.NewWarningsError(ErrRosterHasWarnings, warnings)
		}
	}

	members := make([]Member, 0, teams.MemberCount())
	for _, t := range teams {
		for _, m := range t.Members {
			members = append(members, Member{SessionID: id, TeamName: t.Name, UserName: m})
		}
	}

	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.GetSession(ctx, id, exec); err != nil {
			return err
		}
		if err := svc.repo.DeleteMembers(ctx, id, exec); err != nil {
			return errors.Wrap(err, "deleting members")
		}
		if len(members) == 0 {
			return nil
		}
		return errors.Wrap(svc.repo.InsertMembers(ctx, members, exec), "inserting members")
	})
	if err != nil {
		return ReplaceResult{}, err
	}
	return ReplaceResult{InsertedTeams: len(teams), InsertedMembers: len(members)}, nil
}

// TeamOf returns the team userName is on in a session.
func (svc *service) TeamOf(ctx context.Context, id int64, userName string) (roster.Team, error) {
	teams, err := svc.Teams(ctx, id)
	if err != nil {
		return roster.Team{}, err
	}
	for _, t := range teams {
		for _, m := range t.Members {
			if m == userName {
				return t, nil
			}
		}
	}
	return roster.Team{}, ErrNotTeamMember
}

func (svc *service) ActiveFor(ctx context.Context, userName string) ([]ActiveSession, error) {
	return svc.repo.QueryActiveSessions(ctx, userName)
}

// groupTeams groups members, ordered by team name, into teams.
func groupTeams(members []Member) roster.TeamSet {
	teams := make(roster.TeamSet, 0)
	for _, m := range members {
		if n := len(teams); n == 0 || teams[n-1].Name != m.TeamName {
			teams = append(teams, roster.Team{Name: m.TeamName})
		}
		last := &teams[len(teams)-1]
		last.Members = append(last.Members, m.UserName)
	}
	return teams
}
