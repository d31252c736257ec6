package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/response"
	"github.com/trezcool/khaosat/core/result"
	"github.com/trezcool/khaosat/core/student"
	"github.com/trezcool/khaosat/services/tabular"
)

const (
	mimeCSV  = "text/csv; charset=utf-8"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	rosterFileField = "file"
)

var errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, core.ErrNotFound.Error())

type adminApi struct {
	studentSvc  *student.Service
	questionSvc *question.Service
	responseSvc *response.Service
	resultSvc   *result.Service
	appName     string
}

// registerAdminAPI expects g to be guarded by the jwt and admin middlewares.
func registerAdminAPI(g *echo.Group, deps ServerDeps) {
	api := adminApi{
		studentSvc:  deps.StudentSvc,
		questionSvc: deps.QuestionSvc,
		responseSvc: deps.ResponseSvc,
		resultSvc:   deps.ResultSvc,
		appName:     deps.Conf.AppName,
	}

	qg := g.Group("/questions")
	qg.GET("", api.listQuestions)
	qg.POST("", api.createQuestion)
	qg.POST("/reset", api.resetQuestions)
	qg.PUT("/:id", api.updateQuestion)
	qg.DELETE("/:id", api.deleteQuestion)

	sg := g.Group("/students")
	sg.GET("", api.listStudents)
	sg.POST("/import", api.importStudents)
	sg.GET("/template", api.rosterTemplate)
	sg.PUT("/:id", api.updateStudent)
	sg.DELETE("/:id", api.deleteStudent)

	g.GET("/export", api.export)
	g.POST("/responses/reset", api.resetResponses)
}

func questionID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

func attachment(ctx echo.Context, filename, contentType string, data []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, contentType, data)
}

// Questions

func (api *adminApi) listQuestions(ctx echo.Context) error {
	qns, err := api.questionSvc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	if qns == nil {
		qns = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, qns)
}

func (api *adminApi) createQuestion(ctx echo.Context) error {
	var data question.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}

	qn, err := api.questionSvc.Create(ctx.Request().Context(), getSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, qn)
}

func (api *adminApi) updateQuestion(ctx echo.Context) error {
	id, err := questionID(ctx)
	if err != nil {
		return err
	}
	var data question.UpdateQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuestion")
	}

	qn, err := api.questionSvc.Update(ctx.Request().Context(), getSession(ctx), id, data)
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, qn)
}

func (api *adminApi) deleteQuestion(ctx echo.Context) error {
	id, err := questionID(ctx)
	if err != nil {
		return err
	}
	if err = api.questionSvc.Delete(ctx.Request().Context(), getSession(ctx), id); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) resetQuestions(ctx echo.Context) error {
	qns, err := api.questionSvc.ResetToDefault(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "resetting questions")
	}
	return ctx.JSON(http.StatusOK, qns)
}

// Students

func (api *adminApi) listStudents(ctx echo.Context) error {
	studs, err := api.studentSvc.List(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	if studs == nil {
		studs = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, studs)
}

func (api *adminApi) importStudents(ctx echo.Context) error {
	fh, err := ctx.FormFile(rosterFileField)
	if err != nil {
		return core.NewValidationError(
			errors.New("a roster file is required"),
			core.FieldError{Field: rosterFileField, Error: "this field is required"},
		)
	}
	format, err := tabular.FormatFromFilename(fh.Filename)
	if err != nil {
		return core.NewValidationError(
			err,
			core.FieldError{Field: rosterFileField, Error: "only .xlsx and .csv files are supported"},
		)
	}

	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = src.Close() }()

	rows, err := tabular.ReadRoster(src, format)
	if err != nil {
		return errors.Wrap(err, "reading roster")
	}
	n, err := api.studentSvc.Upsert(ctx.Request().Context(), getSession(ctx), rows)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, ImportResponse{Imported: n})
}

func (api *adminApi) rosterTemplate(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := tabular.WriteRosterTemplate(&buf); err != nil {
		return errors.Wrap(err, "writing roster template")
	}
	return attachment(ctx, "roster-template.xlsx", mimeXLSX, buf.Bytes())
}

func (api *adminApi) updateStudent(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}

	stud, err := api.studentSvc.Update(ctx.Request().Context(), getSession(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, stud)
}

func (api *adminApi) deleteStudent(ctx echo.Context) error {
	if err := api.studentSvc.Delete(ctx.Request().Context(), getSession(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Results

func (api *adminApi) export(ctx echo.Context) error {
	format := core.CleanString(ctx.QueryParam("format"), true /* lower */)
	if format == "" {
		format = tabular.FormatCSV
	}

	rows, err := api.resultSvc.ExportRows(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "querying export rows")
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case tabular.FormatCSV:
		contentType = mimeCSV
		err = tabular.WriteExportCSV(&buf, rows)
	case tabular.FormatXLSX:
		contentType = mimeXLSX
		err = tabular.WriteExportXLSX(&buf, rows)
	default:
		return core.NewValidationError(
			tabular.ErrInvalidFormat,
			core.FieldError{Field: "format", Error: "must be one of: csv, xlsx"},
		)
	}
	if err != nil {
		return errors.Wrap(err, "writing export")
	}

	filename := fmt.Sprintf("%s-responses-%s.%s", api.appName, time.Now().UTC().Format("20060102"), format)
	return attachment(ctx, filename, contentType, buf.Bytes())
}

func (api *adminApi) resetResponses(ctx echo.Context) error {
	n, err := api.responseSvc.ResetAll(ctx.Request().Context(), getSession(ctx))
	if err != nil {
		return errors.Wrap(err, "resetting responses")
	}
	return ctx.JSON(http.StatusOK, ResetResponse{Deleted: n})
}
