package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/otp"
)

type authApi struct {
	auth     *authenticator
	otpSvc   *otp.Service
	validate *validator.Validate
	codeTTL  int // minutes
}

func registerAuthAPI(g *echo.Group, auth *authenticator, deps ServerDeps) {
	api := authApi{
		auth:     auth,
		otpSvc:   deps.OTPSvc,
		validate: deps.Validate,
		codeTTL:  int(deps.Conf.OTP.CodeTTL.Minutes()),
	}

	ag := g.Group("/auth")
	ag.POST("/otp", api.requestCode)
	ag.POST("/otp/verify", api.verifyCode)
	ag.POST("/admin", api.adminLogin)
}

// Handlers

func (api *authApi) requestCode(ctx echo.Context) error {
	var data OTPRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OTPRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.otpSvc.RequestCode(ctx.Request().Context(), data.StudentID, data.Email); err != nil {
		return errors.Wrap(err, "requesting code")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: fmt.Sprintf("A login code has been sent to your email address. It expires in %d minutes.", api.codeTTL),
	})
}

func (api *authApi) verifyCode(ctx echo.Context) error {
	var data OTPVerifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OTPVerifyRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ok, err := api.otpSvc.VerifyCode(ctx.Request().Context(), data.StudentID, data.Code)
	if err != nil {
		return errors.Wrap(err, "verifying code")
	}
	if !ok {
		return core.ErrInvalidCode
	}

	token, err := api.auth.GenerateToken(core.StudentSession(data.StudentID))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) adminLogin(ctx echo.Context) error {
	var data AdminLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdminLoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.auth.authenticateAdmin(data.Username, data.Password); err != nil {
		return err
	}
	token, err := api.auth.GenerateToken(core.AdminSession())
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, IsAdmin: true})
}
