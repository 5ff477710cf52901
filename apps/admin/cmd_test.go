package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/review"
	"github.com/trezcool/peereval/core/roster"
	"github.com/trezcool/peereval/core/session"
	"github.com/trezcool/peereval/core/user"
	logsvc "github.com/trezcool/peereval/services/logger"
	inmemdb "github.com/trezcool/peereval/storage/database/inmem"
	testutil "github.com/trezcool/peereval/tests"
)

type fixture struct {
	cli      *commandLine
	out      *bytes.Buffer
	usrRepo  user.Repository
	sessRepo session.Repository
	revRepo  review.Repository
}

func setup(t *testing.T) fixture {
	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	sessRepo := inmemdb.NewSessionRepository(db)
	revRepo := inmemdb.NewReviewRepository(db)

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	usrSvc := user.NewService(usrRepo, nil, testutil.Config())
	sessSvc := session.NewService(db, sessRepo, roster.NewService(nil, usrSvc))

	// start CLI
	out := new(bytes.Buffer)
	return fixture{
		cli: &commandLine{
			usrSvc:   usrSvc,
			revSvc:   review.NewService(db, revRepo, sessSvc, new(testutil.Notifier), logsvc.NewNopLogger()),
			validate: validate,
			in:       strings.NewReader(""),
			out:      out,
		},
		out:      out,
		usrRepo:  usrRepo,
		sessRepo: sessRepo,
		revRepo:  revRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantAnyErr bool
}

func (tt cliTest) check(t *testing.T, cli *commandLine) {
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	case tt.wantAnyErr:
		assert.Error(t, err)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_run(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli)
		})
	}
	assert.Contains(t, f.out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	var gotCommand string
	origRun := gooseRunFunc
	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = origRun })

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "teams_index", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli)
			if len(tt.args) > 1 {
				assert.Equal(t, tt.args[1], gotCommand)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	lee := testutil.CreateUser(t, f.usrRepo, "이영희", "lee@x.io", false, false)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email missing", args: []string{"adduser", "-name", "김철수"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"adduser", "-name", "김철수", "-email", "kim"}, wantAnyErr: true},
		{name: "name taken", args: []string{"adduser", "-name", "이영희", "-email", "kim@x.io"}, wantErrStr: user.ErrNameExists.Error()},
		{name: "create", args: []string{"adduser", "-name", " 김철수 ", "-email", "KIM@x.io", "-faculty"}},
		{name: "reactivate", args: []string{"adduser", "-name", "이영희", "-email", "lee@x.io"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli)
		})
	}

	kim, err := f.usrRepo.GetUser(ctx, user.GetFilter{Email: "kim@x.io"})
	require.NoError(t, err)
	assert.Equal(t, "김철수", kim.Name)
	assert.True(t, kim.IsFaculty)
	assert.True(t, kim.IsActive)

	lee, err = f.usrRepo.GetUser(ctx, user.GetFilter{ID: lee.ID})
	require.NoError(t, err)
	assert.True(t, lee.IsActive)
	assert.False(t, lee.IsFaculty)
}

func Test_commandLine_resetReviews(t *testing.T) {
	f := setup(t)
	sess := testutil.CreateSession(t, f.sessRepo, "Capstone", session.StatusOpen)
	sessID := strconv.FormatInt(sess.ID, 10)
	addReviews := func() {
		testutil.AddReviews(t, f.revRepo, sess.ID, "김철수", map[string]int{"김철수": 50, "이영희": 50})
	}

	isTerminal := true
	origIsTerminal := isTerminalFunc
	isTerminalFunc = func(int) bool { return isTerminal }
	t.Cleanup(func() { isTerminalFunc = origIsTerminal })

	tests := []struct {
		cliTest
		terminal bool
		answer   string
		wantLeft int
	}{
		{cliTest: cliTest{name: "no args", args: []string{"resetreviews"}, wantErr: errHelp}, wantLeft: 2},
		{cliTest: cliTest{name: "invalid id", args: []string{"resetreviews", "-session", "lol"}, wantErr: errHelp}, wantLeft: 2},
		{cliTest: cliTest{name: "unknown session", args: []string{"resetreviews", "-session", "999", "-yes"}, wantErr: session.ErrNotFound}, wantLeft: 2},
		{cliTest: cliTest{name: "not a terminal", args: []string{"resetreviews", "-session", sessID}, wantErr: errNeedsTerm}, wantLeft: 2},
		{cliTest: cliTest{name: "declined", args: []string{"resetreviews", "-session", sessID}, wantErr: errAborted}, terminal: true, answer: "n\n", wantLeft: 2},
		{cliTest: cliTest{name: "confirmed", args: []string{"resetreviews", "-session", sessID}}, terminal: true, answer: " Yes\n", wantLeft: 0},
		{cliTest: cliTest{name: "forced", args: []string{"resetreviews", "-session", sessID, "-yes"}}, wantLeft: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addReviews()
			isTerminal = tt.terminal
			f.cli.in = strings.NewReader(tt.answer)

			tt.check(t, f.cli)

			left, err := f.revRepo.QueryReviews(context.Background(), sess.ID, "")
			require.NoError(t, err)
			assert.Len(t, left, tt.wantLeft)
		})
	}
}
