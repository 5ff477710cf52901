package review

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/allocation"
	"github.com/trezcool/peereval/core/session"
	"github.com/trezcool/peereval/core/user"
)

const maxDescriptionLen = 2000

var (
	// errors
	ErrSessionClosed = errors.New("the session is not open for reviews")

	errRatesSum = fmt.Sprintf("contribution rates must add up to %d", allocation.Total)
)

type (
	Repository interface {
		// ReplaceReviews replaces all the reviews userName submitted in a session.
		ReplaceReviews(ctx context.Context, sessionID int64, userName string, reviews []Review, exec ...core.DBExecutor) error
		// QueryReviews returns the reviews of a session, of a single reviewer if userName is set,
		// ordered by reviewer then peer.
		QueryReviews(ctx context.Context, sessionID int64, userName string, exec ...core.DBExecutor) ([]Review, error)
		DeleteReviews(ctx context.Context, sessionID int64, exec ...core.DBExecutor) (int64, error)
	}

	// Notifier publishes review events to live subscribers.
	Notifier interface {
		Publish(ctx context.Context, evt Event) error
	}

	Service interface {
		Submit(ctx context.Context, sessionID int64, usr user.User, sub Submission) ([]Review, error)
		Mine(ctx context.Context, sessionID int64, userName string) ([]Review, error)
		Draft(ctx context.Context, sessionID int64, userName string) (Draft, error)
		Adjust(adj Adjustment) (allocation.State, error)
		Progress(ctx context.Context, sessionID int64) (Progress, error)
		Reset(ctx context.Context, sessionID int64) (int64, error)
	}

	service struct {
		repo     Repository
		tx       core.Transactor
		sessions session.Service
		notifier Notifier
		logger   core.Logger
		nowFunc  func() time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(
	tx core.Transactor,
	repo Repository,
	sessions session.Service,
	notifier Notifier,
	logger core.Logger,
) Service {
	return &service{
		repo:     repo,
		tx:       tx,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

func (svc *service) now() time.Time {
	return svc.nowFunc().UTC().Truncate(time.Microsecond)
}

// Submit stores usr's review of their team, replacing any previous one.
// The session must be open, every teammate (usr included) must be rated exactly once,
// and the rates must add up to allocation.Total.
func (svc *service) Submit(ctx context.Context, sessionID int64, usr user.User, sub Submission) ([]Review, error) {
	sess, err := svc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsOpen() {
		return nil, ErrSessionClosed
	}
	team, err := svc.sessions.TeamOf(ctx, sessionID, usr.Name)
	if err != nil {
		return nil, err
	}

	entries, err := checkEntries(team.Members, sub.Entries)
	if err != nil {
		return nil, err
	}

	now := svc.now()
	reviews := make([]Review, 0, len(team.Members))
	for _, m := range team.Members {
		e := entries[m]
		rv := Review{
			SessionID:   sessionID,
			UserName:    usr.Name,
			PeerName:    m,
			ContribRate: e.ContribRate,
			IsFit:       e.IsFit,
			Description: e.Description,
			SubmittedAt: now,
		}
		if m == usr.Name {
			rv.IsFit = null.Bool{}
		} else if !rv.IsFit.Valid {
			rv.IsFit = null.BoolFrom(false)
		}
		if rv.Description.Valid && rv.Description.String == "" {
			rv.Description = null.String{}
		}
		reviews = append(reviews, rv)
	}

	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		return svc.repo.ReplaceReviews(ctx, sessionID, usr.Name, reviews, exec)
	})
	if err != nil {
		return nil, errors.Wrap(err, "replacing reviews")
	}

	svc.publish(ctx, Event{Type: EventSubmitted, SessionID: sessionID, UserName: usr.Name, At: now})
	return reviews, nil
}

// checkEntries maps entries by peer after checking they rate every member exactly once
// with rates adding up to allocation.Total.
func checkEntries(members []string, entries []Entry) (map[string]Entry, error) {
	byPeer := make(map[string]Entry, len(entries))
	onTeam := make(map[string]struct{}, len(members))
	for _, m := range members {
		onTeam[m] = struct{}{}
	}

	var fldErrs []core.FieldError
	for _, e := range entries {
		if _, ok := onTeam[e.PeerName]; !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: "peer_name", Error: fmt.Sprintf("%q is not on your team", e.PeerName)})
			continue
		}
		if _, ok := byPeer[e.PeerName]; ok {
			fldErrs = append(fldErrs, core.FieldError{Field: "peer_name", Error: fmt.Sprintf("%q is rated more than once", e.PeerName)})
			continue
		}
		if e.Description.Valid && utf8.RuneCountInString(e.Description.String) > maxDescriptionLen {
			fldErrs = append(fldErrs, core.FieldError{
				Field: "description",
				Error: fmt.Sprintf("description must be at most %d characters", maxDescriptionLen),
			})
		}
		byPeer[e.PeerName] = e
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(errors.New("invalid review entries"), fldErrs...)
	}

	state := allocation.State{Shares: make([]allocation.Share, 0, len(byPeer))}
	for _, m := range members {
		if e, ok := byPeer[m]; ok {
			state.Shares = append(state.Shares, allocation.Share{Member: m, Value: e.ContribRate})
		}
	}
	if len(byPeer) != len(members) {
		return nil, core.NewValidationError(
			errors.New("invalid review entries"),
			core.FieldError{Field: "entries", Error: "every teammate must be rated"},
		)
	}
	if !allocation.IsSubmittable(state, members) {
		return nil, core.NewValidationError(
			errors.New("invalid review entries"),
			core.FieldError{Field: "contrib_rate", Error: errRatesSum},
		)
	}
	return byPeer, nil
}

func (svc *service) Mine(ctx context.Context, sessionID int64, userName string) ([]Review, error) {
	if _, err := svc.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return svc.repo.QueryReviews(ctx, sessionID, userName)
}

// Draft seeds the review form of userName: their previous rates if any, an even split otherwise.
// Fit defaults to false for teammates.
func (svc *service) Draft(ctx context.Context, sessionID int64, userName string) (Draft, error) {
	team, err := svc.sessions.TeamOf(ctx, sessionID, userName)
	if err != nil {
		return Draft{}, err
	}
	previous, err := svc.repo.QueryReviews(ctx, sessionID, userName)
	if err != nil {
		return Draft{}, errors.Wrap(err, "querying reviews")
	}

	onTeam := make(map[string]struct{}, len(team.Members))
	fit := make(map[string]bool, len(team.Members))
	for _, m := range team.Members {
		onTeam[m] = struct{}{}
		if m != userName {
			fit[m] = false
		}
	}
	// entries about former teammates are ignored
	rates := make(map[string]int, len(previous))
	for _, rv := range previous {
		if _, ok := onTeam[rv.PeerName]; !ok {
			continue
		}
		rates[rv.PeerName] = rv.ContribRate
		if _, ok := fit[rv.PeerName]; ok && rv.IsFit.Valid {
			fit[rv.PeerName] = rv.IsFit.Bool
		}
	}

	state, err := allocation.Seed(team.Members, rates)
	if err != nil {
		return Draft{}, errors.Wrap(err, "seeding allocation")
	}
	return Draft{
		SessionID: sessionID,
		Team:      team.Name,
		State:     state,
		Fit:       fit,
		Submitted: len(rates) > 0,
	}, nil
}

// Adjust applies one share change to a draft State.
func (svc *service) Adjust(adj Adjustment) (allocation.State, error) {
	state, err := allocation.SetShare(adj.State, adj.Member, *adj.Value)
	if err != nil {
		return allocation.State{}, core.NewValidationError(err, core.FieldError{Field: "member", Error: err.Error()})
	}
	return state, nil
}

func (svc *service) Progress(ctx context.Context, sessionID int64) (Progress, error) {
	sess, err := svc.sessions.Get(ctx, sessionID)
	if err != nil {
		return Progress{}, err
	}
	teams, err := svc.sessions.Teams(ctx, sessionID)
	if err != nil {
		return Progress{}, errors.Wrap(err, "querying teams")
	}
	reviews, err := svc.repo.QueryReviews(ctx, sessionID, "")
	if err != nil {
		return Progress{}, errors.Wrap(err, "querying reviews")
	}

	// reviews left over from a previous roster only count when reviewer and peer are still teammates
	teamOf := make(map[string]string)
	for _, t := range teams {
		for _, m := range t.Members {
			teamOf[m] = t.Name
		}
	}
	current := make([]Review, 0, len(reviews))
	voted := make(map[string]struct{})
	for _, rv := range reviews {
		name, ok := teamOf[rv.UserName]
		if !ok || teamOf[rv.PeerName] != name {
			continue
		}
		current = append(current, rv)
		voted[rv.UserName] = struct{}{}
	}

	prog := Progress{Session: sess, Teams: make([]TeamProgress, 0, len(teams)), Reviews: current}
	for _, t := range teams {
		tp := TeamProgress{Name: t.Name, Members: t.Members, Voted: make([]string, 0, len(t.Members))}
		for _, m := range t.Members {
			if _, ok := voted[m]; ok {
				tp.Voted = append(tp.Voted, m)
			}
		}
		prog.Members += len(tp.Members)
		prog.Voted += len(tp.Voted)
		prog.Teams = append(prog.Teams, tp)
	}
	return prog, nil
}

// Reset deletes every review of a session and returns how many were deleted.
func (svc *service) Reset(ctx context.Context, sessionID int64) (int64, error) {
	if _, err := svc.sessions.Get(ctx, sessionID); err != nil {
		return 0, err
	}
	var n int64
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		n, err = svc.repo.DeleteReviews(ctx, sessionID, exec)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "deleting reviews")
	}

	svc.publish(ctx, Event{Type: EventReset, SessionID: sessionID, At: svc.now()})
	return n, nil
}

// publish only logs publishing failures.
func (svc *service) publish(ctx context.Context, evt Event) {
	if err := svc.notifier.Publish(ctx, evt); err != nil {
		svc.logger.Warn(fmt.Sprintf("publishing %s event: %v", evt.Type, err), err)
	}
}
