package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/peereval/apps/api/echo"
	"github.com/trezcool/peereval/core"
	"github.com/trezcool/peereval/core/review"
	"github.com/trezcool/peereval/core/roster"
	"github.com/trezcool/peereval/core/session"
	"github.com/trezcool/peereval/core/user"
	emailsvc "github.com/trezcool/peereval/services/email"
	"github.com/trezcool/peereval/services/llm"
	logsvc "github.com/trezcool/peereval/services/logger"
	"github.com/trezcool/peereval/services/realtime"
	"github.com/trezcool/peereval/storage/database"
	sqlxrepos "github.com/trezcool/peereval/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	ctx := context.Background()
	conf := core.NewConfig()

	// set up logger
	logger, err := logsvc.NewRollbarLogger(conf)
	if err != nil {
		panic(fmt.Sprintf("setting up logger: %v", err))
	}
	defer logger.Sync()

	// set up DB
	db, err := setUpDB(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()
	tx := database.NewTransactor(db)

	// set up review events broker
	var broker realtime.Broker = realtime.NopBroker{}
	if conf.Redis.Address != "" {
		rdb, err := realtime.NewRedisClient(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer rdb.Close()
		broker = realtime.NewRedisBroker(rdb, logger)
	}

	// set up roster parser
	var parser roster.Parser
	if parser, err = llm.NewGeminiParser(ctx, conf); err != nil {
		if errors.Cause(err) != llm.ErrNotConfigured {
			logger.Fatal(fmt.Sprintf("setting up language model: %v", err), err)
		}
		logger.Warn("roster parsing disabled: " + err.Error())
		parser = llm.Unconfigured{}
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	rosterSvc := roster.NewService(parser, usrSvc)
	sessSvc := session.NewService(tx, sqlxrepos.NewSessionRepository(db), rosterSvc)
	revSvc := review.NewService(tx, sqlxrepos.NewReviewRepository(db), sessSvc, broker, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus collectors of services/metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		SessionSvc: sessSvc,
		ReviewSvc:  revSvc,
		RosterSvc:  rosterSvc,
		Broker:     broker,
		Validate:   validate,
		Translator: translator,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
