package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/review"
	"github.com/trezcool/peereval/core/session"
	"github.com/trezcool/peereval/core/user"
)

// Config returns the configuration tests run with.
func Config() *core.Config {
	return &core.Config{
		AppName:          "PeerEval",
		Env:              "test",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		DefaultFromEmail: mail.Address{Name: "PeerEval", Address: "noreply@evals.test"},
		FrontendBaseURL:  "https://evals.test",
		Server: core.ServerConfig{
			Host:                      "localhost:8000",
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        15 * time.Minute,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			SignInTimeoutDelta:        15 * time.Minute,
		},
		LLM: core.LLMConfig{Model: "gemini-test"},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email string,
	isFaculty, isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Email:     email,
		IsFaculty: isFaculty,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSession(t *testing.T, repo session.Repository, name string, status session.Status, createdAt ...time.Time) session.Session {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	sess, err := repo.CreateSession(context.Background(), session.Session{
		Name:      name,
		Status:    status,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}

// AddTeam puts members on a team of a session, without any check.
func AddTeam(t *testing.T, repo session.Repository, sessionID int64, team string, members ...string) {
	t.Helper()
	rows := make([]session.Member, 0, len(members))
	for _, m := range members {
		rows = append(rows, session.Member{SessionID: sessionID, TeamName: team, UserName: m})
	}
	if err := repo.InsertMembers(context.Background(), rows); err != nil {
		t.Fatalf("AddTeam() failed: %v", err)
	}
}

// AddReviews stores the rates userName gave, keyed by peer.
func AddReviews(t *testing.T, repo review.Repository, sessionID int64, userName string, rates map[string]int) {
	t.Helper()
	now := time.Now().UTC()
	reviews := make([]review.Review, 0, len(rates))
	for peer, rate := range rates {
		rv := review.Review{SessionID: sessionID, UserName: userName, PeerName: peer, ContribRate: rate, SubmittedAt: now}
		if peer != userName {
			rv.IsFit = null.BoolFrom(true)
		}
		reviews = append(reviews, rv)
	}
	if err := repo.ReplaceReviews(context.Background(), sessionID, userName, reviews); err != nil {
		t.Fatalf("AddReviews() failed: %v", err)
	}
}

// Notifier records the events it is asked to publish.
type Notifier struct {
	Events []review.Event
	Err    error
}

func (n *Notifier) Publish(_ context.Context, evt review.Event) error {
	n.Events = append(n.Events, evt)
	return n.Err
}
