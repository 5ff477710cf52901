package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/peereval/core/user"
)

// addUser creates a user.User, or updates and reactivates the one owning email.
func (cli *commandLine) addUser(name, email string, isFaculty bool) error {
	ctx := context.Background()

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return errors.Wrap(err, "finding user by email")
		}

		nu := user.NewUser{Name: name, Email: email, IsFaculty: isFaculty}
		if err := nu.Validate(cli.validate, cli.usrSvc); err != nil {
			return err
		}
		if usr, err = cli.usrSvc.Create(ctx, nu); err != nil {
			return errors.Wrap(err, "creating user")
		}
		fmt.Fprintf(cli.out, "created user %s <%s>\n", usr.Name, usr.Email)
		return nil
	}

	active := true
	uu := user.UpdateUser{Name: name, IsFaculty: &isFaculty, IsActive: &active}
	if err := uu.Validate(usr, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.Update(ctx, usr, uu); err != nil {
		return errors.Wrap(err, "updating user")
	}
	fmt.Fprintf(cli.out, "updated user %s <%s>\n", usr.Name, usr.Email)
	return nil
}
