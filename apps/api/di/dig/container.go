package dig_container

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/khaosat/apps/api/echo"
	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/otp"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/response"
	"github.com/trezcool/khaosat/core/result"
	"github.com/trezcool/khaosat/core/student"
	emailsvc "github.com/trezcool/khaosat/services/email"
	logsvc "github.com/trezcool/khaosat/services/logger"
	"github.com/trezcool/khaosat/storage/database"
	"github.com/trezcool/khaosat/storage/database/sqlxrepos"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf        *core.Config
	Logger      core.Logger
	Validate    *validator.Validate
	Translator  ut.Translator
	StudentSvc  *student.Service
	QuestionSvc *question.Service
	OTPSvc      *otp.Service
	ResponseSvc *response.Service
	ResultSvc   *result.Service
}

// newConfig loads the configuration. A missing secret key is generated in debug mode and fatal otherwise.
func newConfig() *core.Config {
	conf := core.NewConfig()
	if conf.SecretKey != "" {
		return conf
	}
	if !conf.Debug {
		log.Fatal("config: SECRETKEY is required outside debug mode")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatal(errors.Wrap(err, "generating secret key"))
	}
	conf.SecretKey = hex.EncodeToString(key)
	return conf
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	svc, err := emailsvc.NewService(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up email service: %v", err), err)
	}
	return svc
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func otpConfig(conf *core.Config) core.OTPConfig {
	return conf.OTP
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		StudentSvc:  p.StudentSvc,
		QuestionSvc: p.QuestionSvc,
		OTPSvc:      p.OTPSvc,
		ResponseSvc: p.ResponseSvc,
		ResultSvc:   p.ResultSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(otpConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))

	// repositories
	must(c.Provide(
		sqlxrepos.NewStudentRepository,
		dig.As(
			new(student.Repository),
			new(otp.StudentGetter),
			new(response.StudentGetter),
			new(result.StudentGetter),
		),
	))
	must(c.Provide(
		sqlxrepos.NewQuestionRepository,
		dig.As(new(question.Repository), new(response.QuestionLister), new(result.QuestionLister)),
	))
	must(c.Provide(sqlxrepos.NewCodeRepository, dig.As(new(otp.Repository))))
	must(c.Provide(sqlxrepos.NewResponseRepository, dig.As(new(response.Repository))))
	must(c.Provide(sqlxrepos.NewResultRepository, dig.As(new(result.Repository))))

	// services
	must(c.Provide(student.NewService))
	must(c.Provide(question.NewService))
	must(c.Provide(otp.NewService))
	must(c.Provide(response.NewService))
	must(c.Provide(result.NewService))

	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
