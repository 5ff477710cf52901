package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetReviews(sessionID int64) error {
	n, err := cli.revSvc.Reset(context.Background(), sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "deleted %d reviews of session %d\n", n, sessionID)
	return nil
}
