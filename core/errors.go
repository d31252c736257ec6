package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound             = errors.New("not found")
	ErrMismatch             = errors.New("email does not match our records")
	ErrRateLimited          = errors.New("a code was requested too recently, please wait before trying again")
	ErrInvalidCode          = errors.New("invalid or expired code")
	ErrIncompleteSubmission = errors.New("incomplete submission")
	ErrAlreadyCompleted     = errors.New("survey already completed")
	ErrForbidden            = errors.New("permission denied")
	ErrDeliveryFailed       = errors.New("could not deliver the code")
	ErrPersistence          = errors.New("storage unavailable")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// Unwrap lets errors.Is match the underlying kind (e.g. ErrIncompleteSubmission).
func (err ValidationError) Unwrap() error { return err.Err }

// SubmissionError lists the display order numbers of questions that are missing or invalid.
type SubmissionError struct {
	Missing []int
	Invalid []int
}

func (err *SubmissionError) Error() string {
	parts := make([]string, 0, 2)
	if len(err.Missing) > 0 {
		parts = append(parts, "unanswered questions: "+joinInts(err.Missing))
	}
	if len(err.Invalid) > 0 {
		parts = append(parts, "invalid answers for questions: "+joinInts(err.Invalid))
	}
	return fmt.Sprintf("%s (%s)", ErrIncompleteSubmission.Error(), strings.Join(parts, "; "))
}

func (err *SubmissionError) Unwrap() error { return ErrIncompleteSubmission }

// OrderNumbers returns every offending order number, sorted.
func (err *SubmissionError) OrderNumbers() []int {
	all := make([]int, 0, len(err.Missing)+len(err.Invalid))
	all = append(all, err.Missing...)
	all = append(all, err.Invalid...)
	sort.Ints(all)
	return all
}

func joinInts(ns []int) string {
	strs := make([]string, 0, len(ns))
	for _, n := range ns {
		strs = append(strs, strconv.Itoa(n))
	}
	return strings.Join(strs, ", ")
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	var s *shutdown
	return errors.As(err, &s)
}
