package main

import (
	"fmt"
	"os"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/response"
	"github.com/trezcool/khaosat/core/result"
	"github.com/trezcool/khaosat/core/student"
	logsvc "github.com/trezcool/khaosat/services/logger"
	"github.com/trezcool/khaosat/storage/database"
	"github.com/trezcool/khaosat/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf), conf)

	// hashing a password needs no database
	if len(os.Args) > 1 && os.Args[1] == "hashpassword" {
		cli := commandLine{out: os.Stdout}
		exit(cli.run(os.Args), logger)
		return
	}

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// the schema must exist for anything but migrate
	if len(os.Args) > 1 && os.Args[1] != "migrate" {
		if err = database.Migrate(db, "up"); err != nil {
			logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
		}
	}

	studRepo := sqlxrepos.NewStudentRepository(db)
	qnRepo := sqlxrepos.NewQuestionRepository(db)

	// start CLI
	cli := commandLine{
		db:          db,
		out:         os.Stdout,
		studentSvc:  student.NewService(db, studRepo),
		questionSvc: question.NewService(db, qnRepo),
		responseSvc: response.NewService(db, sqlxrepos.NewResponseRepository(db), studRepo, qnRepo),
		resultSvc:   result.NewService(sqlxrepos.NewResultRepository(db), studRepo, qnRepo),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	exit(err, logger)
}

func exit(err error, logger core.Logger) {
	if err == nil {
		os.Exit(0)
	}
	if err != errHelp {
		logger.Error(fmt.Sprintf("error: %v", err), err)
	}
	os.Exit(1)
}
