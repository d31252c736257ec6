package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/response"
	"github.com/trezcool/khaosat/core/result"
)

type surveyApi struct {
	questionSvc *question.Service
	responseSvc *response.Service
	resultSvc   *result.Service
	validate    *validator.Validate
}

func registerSurveyAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := surveyApi{
		questionSvc: deps.QuestionSvc,
		responseSvc: deps.ResponseSvc,
		resultSvc:   deps.ResultSvc,
		validate:    deps.Validate,
	}

	ag := g.Group("", jwt)
	ag.GET("/questions", api.questions)
	ag.GET("/dashboard", api.dashboard)
	ag.GET("/me", api.profile, studentMiddleware())
	ag.POST("/responses", api.submit, studentMiddleware())
}

// Handlers

func (api *surveyApi) questions(ctx echo.Context) error {
	qns, err := api.questionSvc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	if qns == nil {
		qns = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, qns)
}

func (api *surveyApi) profile(ctx echo.Context) error {
	p, err := api.responseSvc.Profile(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *surveyApi) submit(ctx echo.Context) error {
	var data SubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.responseSvc.Submit(ctx.Request().Context(), getSession(ctx), data.Answers); err != nil {
		return errors.Wrap(err, "submitting answers")
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "Thank you! Your answers have been recorded."})
}

func (api *surveyApi) dashboard(ctx echo.Context) error {
	sum, err := api.resultSvc.Summary(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "summarizing results")
	}
	return ctx.JSON(http.StatusOK, sum)
}
