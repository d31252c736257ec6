package student

import (
	"math"
	"net/mail"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khaosat/core"
)

type Student struct {
	ID          string    `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	Name        string    `json:"name" db:"name"`
	Score       float64   `json:"score" db:"score"`
	Completed   bool      `json:"completed" db:"completed"`
	CompletedAt null.Time `json:"completed_at" db:"completed_at"` // UTC
}

// EmailMatches compares addresses the way students type them: trimmed and case-insensitive.
func (s Student) EmailMatches(email string) bool {
	return strings.EqualFold(core.CleanString(s.Email), core.CleanString(email))
}

// NewStudent is one roster row: identity fields and score. Completion state is never part of it.
type NewStudent struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Clean normalizes the row and reports the first invalid field.
func (ns *NewStudent) Clean() *core.FieldError {
	ns.ID = core.CleanString(ns.ID)
	ns.Email = core.CleanString(ns.Email)
	ns.Name = core.CleanString(ns.Name)

	switch {
	case ns.ID == "":
		return &core.FieldError{Field: "id", Error: "this field is required"}
	case ns.Email == "":
		return &core.FieldError{Field: "email", Error: "this field is required"}
	case !validEmail(ns.Email):
		return &core.FieldError{Field: "email", Error: "must be a valid email address"}
	case ns.Name == "":
		return &core.FieldError{Field: "name", Error: "this field is required"}
	case math.IsNaN(ns.Score) || math.IsInf(ns.Score, 0):
		return &core.FieldError{Field: "score", Error: "must be a number"}
	}
	return nil
}

// UpdateStudent defines what an admin may change on an existing Student. Nil means unchanged.
type UpdateStudent struct {
	Email *string  `json:"email"`
	Name  *string  `json:"name"`
	Score *float64 `json:"score"`
}

func (us *UpdateStudent) Clean() error {
	var flds []core.FieldError
	if us.Email != nil {
		email := core.CleanString(*us.Email)
		switch {
		case email == "":
			flds = append(flds, core.FieldError{Field: "email", Error: "this field is required"})
		case !validEmail(email):
			flds = append(flds, core.FieldError{Field: "email", Error: "must be a valid email address"})
		default:
			us.Email = &email
		}
	}
	if us.Name != nil {
		name := core.CleanString(*us.Name)
		if name == "" {
			flds = append(flds, core.FieldError{Field: "name", Error: "this field is required"})
		}
		us.Name = &name
	}
	if us.Score != nil && (math.IsNaN(*us.Score) || math.IsInf(*us.Score, 0)) {
		flds = append(flds, core.FieldError{Field: "score", Error: "must be a number"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid student data"), flds...)
	}
	return nil
}

func (us UpdateStudent) IsEmpty() bool {
	return us.Email == nil && us.Name == nil && us.Score == nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
