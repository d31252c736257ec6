package echoapi

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/khaosat/core"
)

func TestErrorResponse(t *testing.T) {
	translator := core.NewTranslator()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  interface{}
	}{
		{"not found", errors.Wrap(core.ErrNotFound, "getting student"), http.StatusNotFound, core.ErrNotFound.Error()},
		{"mismatch", core.ErrMismatch, http.StatusBadRequest, core.ErrMismatch.Error()},
		{"rate limited", core.ErrRateLimited, http.StatusTooManyRequests, core.ErrRateLimited.Error()},
		{"invalid code", core.ErrInvalidCode, http.StatusUnauthorized, core.ErrInvalidCode.Error()},
		{"already completed", core.ErrAlreadyCompleted, http.StatusConflict, core.ErrAlreadyCompleted.Error()},
		{"forbidden", core.ErrForbidden, http.StatusForbidden, core.ErrForbidden.Error()},
		{
			name:     "delivery failure hides the transport detail",
			err:      errors.Wrap(errors.Wrap(core.ErrDeliveryFailed, "smtp: 535 bad credentials"), "requesting code"),
			wantCode: http.StatusBadGateway,
			wantMsg:  core.ErrDeliveryFailed.Error(),
		},
		{
			name:     "submission",
			err:      errors.Wrap(&core.SubmissionError{Missing: []int{3}}, "submitting"),
			wantCode: http.StatusUnprocessableEntity,
			wantMsg: echo.Map{
				"error":     "incomplete submission (unanswered questions: 3)",
				"questions": []int{3},
				"missing":   []int{3},
				"invalid":   []int{},
			},
		},
		{
			name:     "validation with fields",
			err:      core.NewValidationError(errors.New("invalid"), core.FieldError{Field: "text", Error: "this field is required"}),
			wantCode: http.StatusBadRequest,
			wantMsg:  map[string]string{"text": "this field is required"},
		},
		{
			name:     "validation wrapping a kind stays a validation error",
			err:      core.NewValidationError(core.ErrIncompleteSubmission),
			wantCode: http.StatusBadRequest,
			wantMsg:  core.ErrIncompleteSubmission.Error(),
		},
		{"http error", echo.NewHTTPError(http.StatusNotFound, "nope"), http.StatusNotFound, "nope"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := errorResponse(tt.err, translator)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}
