package main

import (
	"bufio"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/peereval/core/review"
	"github.com/trezcool/peereval/core/user"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp      = errors.New("help provided")
	errAborted   = errors.New("aborted")
	errNeedsTerm = errors.New("not a terminal: pass -yes to confirm")
)

type commandLine struct {
	db       *sql.DB
	usrSvc   user.Service
	revSvc   review.Service
	validate *validator.Validate
	in       io.Reader
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL [-faculty] - create or reactivate a registered user")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose migrations command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  resetreviews -session ID [-yes] - delete every review of a session")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserName := addUserCmd.String("name", "", "The user's name, as written on rosters.")
	addUserEmail := addUserCmd.String("email", "", "The user's email, where sign-in links are sent.")
	addUserFaculty := addUserCmd.Bool("faculty", false, "Grant access to the faculty portal.")

	resetCmd := flag.NewFlagSet("resetreviews", flag.ContinueOnError)
	resetCmd.SetOutput(cli.out)
	resetSession := resetCmd.Int64("session", 0, "The session ID.")
	resetYes := resetCmd.Bool("yes", false, "Do not ask for confirmation.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, *addUserFaculty)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "resetreviews":
		if err := resetCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetSession <= 0 {
			resetCmd.Usage()
			return errHelp
		}
		if !*resetYes {
			if err := cli.confirm(fmt.Sprintf("Delete every review of session %d? [y/N] ", *resetSession)); err != nil {
				return err
			}
		}
		return cli.resetReviews(*resetSession)
	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks question on an interactive terminal, and fails unless the answer is "y" or "yes".
func (cli *commandLine) confirm(question string) error {
	if !isTerminalFunc(int(os.Stdin.Fd())) {
		return errNeedsTerm
	}
	fmt.Fprint(cli.out, question)
	answer, err := bufio.NewReader(cli.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "reading answer")
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return errAborted
}
