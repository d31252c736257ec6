package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
)

// kindStatuses maps the core error kinds to HTTP statuses. Their own message is sent, never the wrapped detail.
var kindStatuses = []struct {
	err  error
	code int
}{
	{core.ErrNotFound, http.StatusNotFound},
	{core.ErrMismatch, http.StatusBadRequest},
	{core.ErrRateLimited, http.StatusTooManyRequests},
	{core.ErrInvalidCode, http.StatusUnauthorized},
	{core.ErrAlreadyCompleted, http.StatusConflict},
	{core.ErrForbidden, http.StatusForbidden},
	{core.ErrDeliveryFailed, http.StatusBadGateway},
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err, translator)

		if code == http.StatusInternalServerError {
			msg := http.StatusText(code)
			args := []interface{}{errors.Wrap(err, msg)}
			if sess := getSession(ctx); sess.IsAdmin || sess.IsStudent() {
				args = append(args, sess)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				message = err.Error()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func errorResponse(err error, translator ut.Translator) (int, interface{}) {
	var (
		httpErr *echo.HTTPError
		valErrs validator.ValidationErrors
		subErr  *core.SubmissionError
		vErr    *core.ValidationError
	)

	switch {
	case errors.As(err, &httpErr):
		if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = herr
		}
		return httpErr.Code, httpErr.Message

	case errors.As(err, &valErrs):
		fldErrs := make(map[string]string, len(valErrs))
		for _, fe := range valErrs {
			fldErrs[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs

	case errors.As(err, &subErr):
		return http.StatusUnprocessableEntity, echo.Map{
			"error":     subErr.Error(),
			"questions": subErr.OrderNumbers(),
			"missing":   nonNilInts(subErr.Missing),
			"invalid":   nonNilInts(subErr.Invalid),
		}

	case errors.As(err, &vErr):
		if len(vErr.Fields) > 0 {
			fldErrs := make(map[string]string, len(vErr.Fields))
			for _, fErr := range vErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, vErr.Error()
	}

	for _, ks := range kindStatuses {
		if errors.Is(err, ks.err) {
			return ks.code, ks.err.Error()
		}
	}

	// any other error is a server error
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

func nonNilInts(ns []int) []int {
	if ns == nil {
		return []int{}
	}
	return ns
}
