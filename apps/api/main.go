package main

import (
	"context"
	"expvar"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	dig_container "github.com/trezcool/khaosat/apps/api/di/dig"
	echoapi "github.com/trezcool/khaosat/apps/api/echo"
	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
	emailsvc "github.com/trezcool/khaosat/services/email"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sqlx.DB,
		mailSvc core.EmailService,
		questionSvc *question.Service,
		server *echoapi.Server,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

		core.ParseEmailTemplates(apiLogger)

		dbLogger := dbLoggerParam.Logger
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		if closer, ok := mailSvc.(emailsvc.Closer); ok {
			defer closer.Close()
		}
		defer apiLogger.Info("Application stopped")

		seeded, err := questionSvc.SeedIfEmpty(context.Background())
		if err != nil {
			dbLogger.Fatal(fmt.Sprintf("seeding questions: %v", err), err)
		}
		if seeded {
			apiLogger.Info("Question bank seeded with the default questionnaire")
		}

		// Expose important info under /debug/vars.
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		// =========================================================================
		// Start API Service

		go func() {
			server.Start()
		}()

		// =========================================================================
		// Shutdown

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

			// give outstanding requests a deadline for completion
			ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
			defer cancel()

			// asking listener to shut down and shed load
			if err := server.Shutdown(ctx); err != nil {
				apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

				if err = server.Close(); err != nil {
					apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
				}
			}
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
