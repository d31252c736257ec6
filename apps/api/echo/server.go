package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/otp"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/response"
	"github.com/trezcool/khaosat/core/result"
	"github.com/trezcool/khaosat/core/student"
)

type (
	ServerDeps struct {
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

	Server struct {
		app      *echo.Echo
		deps     ServerDeps
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	srv := &Server{
		app:      echo.New(),
		deps:     deps,
		auth:     newAuthenticator(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(srv.shutdown, os.Interrupt, syscall.SIGTERM)
	srv.setup()
	return srv
}

func (srv *Server) setup() {
	conf := srv.deps.Conf

	srv.app.HideBanner = true
	srv.app.Debug = conf.Debug
	srv.app.HTTPErrorHandler = newAppHTTPErrorHandler(srv.deps.Logger, srv.deps.Translator, srv.SignalShutdown)

	srv.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		srv.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		srv.app.Use(middleware.Recover())
	}
	srv.app.Use(middleware.CORS())

	srv.app.GET("/", srv.home)

	v1 := srv.app.Group("/v1")
	jwt := srv.auth.middleware()

	registerAuthAPI(v1, srv.auth, srv.deps)
	registerSurveyAPI(v1, jwt, srv.deps)
	registerAdminAPI(v1.Group("/admin", jwt, adminMiddleware()), srv.deps)
}

// Start serves until the listener is closed. Failures are reported on Errors().
func (srv *Server) Start() {
	if err := srv.app.Start(srv.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		srv.errors <- err
	}
}

func (srv *Server) Errors() <-chan error {
	return srv.errors
}

func (srv *Server) ShutdownSignal() <-chan os.Signal {
	return srv.shutdown
}

// SignalShutdown asks the process to stop gracefully.
func (srv *Server) SignalShutdown() {
	select {
	case srv.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (srv *Server) Shutdown(ctx context.Context) error {
	signal.Stop(srv.shutdown)
	return srv.app.Shutdown(ctx)
}

func (srv *Server) Close() error {
	return srv.app.Close()
}

func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	srv.app.ServeHTTP(w, r)
}

func (srv *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+srv.deps.Conf.AppName+" API!")
}
