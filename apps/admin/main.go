package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/review"
	"github.com/trezcool/peereval/core/roster"
	"github.com/trezcool/peereval/core/session"
	"github.com/trezcool/peereval/core/user"
	"github.com/trezcool/peereval/services/llm"
	logsvc "github.com/trezcool/peereval/services/logger"
	"github.com/trezcool/peereval/services/realtime"
	"github.com/trezcool/peereval/storage/database"
	sqlxrepos "github.com/trezcool/peereval/storage/database/sqlx"
)

func main() {
	ctx := context.Background()
	conf := core.NewConfig()

	logger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}

	// set up DB
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	tx := database.NewTransactor(db)

	// live dashboards are told about resets
	var broker realtime.Broker = realtime.NopBroker{}
	if conf.Redis.Address != "" {
		rdb, err := realtime.NewRedisClient(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer rdb.Close()
		broker = realtime.NewRedisBroker(rdb, logger)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), nil /* sends no email */, conf)
	sessSvc := session.NewService(tx, sqlxrepos.NewSessionRepository(db), roster.NewService(llm.Unconfigured{}, usrSvc))

	// start CLI
	cli := commandLine{
		db:       db.DB,
		usrSvc:   usrSvc,
		revSvc:   review.NewService(tx, sqlxrepos.NewReviewRepository(db), sessSvc, broker, logger),
		validate: validate,
		in:       os.Stdin,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)

	logger.Sync()
	if cerr := db.Close(); cerr != nil {
		logger.Error(fmt.Sprintf("closing database: %v", cerr), cerr)
	}
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
