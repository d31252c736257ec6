package student

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
)

type (
	Repository interface {
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		QueryStudents(ctx context.Context, exec ...core.DBExecutor) ([]Student, error)
		// UpsertStudents inserts new rows and refreshes email, name & score of existing ones.
		// It must never touch completion state.
		UpsertStudents(ctx context.Context, rows []NewStudent, exec ...core.DBExecutor) error
		UpdateStudent(ctx context.Context, id string, data UpdateStudent, exec ...core.DBExecutor) (Student, error)
		// DeleteStudent removes the student's responses and codes, then the student.
		DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// Service is the Roster Manager.
	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// Get returns a student by ID. Not authorization-checked: used by the login flow.
func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(id))
}

func (svc *Service) List(ctx context.Context, sess core.Session) ([]Student, error) {
	if err := sess.RequireAdmin(); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx)
}

// Upsert imports roster rows. The whole batch is rejected when any row is invalid.
func (svc *Service) Upsert(ctx context.Context, sess core.Session, rows []NewStudent) (int, error) {
	if err := sess.RequireAdmin(); err != nil {
		return 0, err
	}

	seen := make(map[string]int, len(rows))
	for i := range rows {
		if fErr := rows[i].Clean(); fErr != nil {
			fErr.Field = fmt.Sprintf("rows[%d].%s", i+1, fErr.Field)
			return 0, core.NewValidationError(errors.Errorf("invalid roster row %d", i+1), *fErr)
		}
		if prev, ok := seen[rows[i].ID]; ok {
			return 0, core.NewValidationError(
				errors.Errorf("duplicate student id %q in rows %d and %d", rows[i].ID, prev, i+1),
				core.FieldError{Field: fmt.Sprintf("rows[%d].id", i+1), Error: "duplicate student id"},
			)
		}
		seen[rows[i].ID] = i + 1
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		return svc.repo.UpsertStudents(ctx, rows, tx)
	})
	if err != nil {
		return 0, errors.Wrap(err, "upserting students")
	}
	return len(rows), nil
}

func (svc *Service) Update(ctx context.Context, sess core.Session, id string, data UpdateStudent) (Student, error) {
	if err := sess.RequireAdmin(); err != nil {
		return Student{}, err
	}
	if err := data.Clean(); err != nil {
		return Student{}, err
	}
	id = core.CleanString(id)
	if data.IsEmpty() {
		return svc.repo.GetStudent(ctx, id)
	}
	return svc.repo.UpdateStudent(ctx, id, data)
}

// Delete removes a student together with all of their responses.
func (svc *Service) Delete(ctx context.Context, sess core.Session, id string) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}
	id = core.CleanString(id)
	return core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repo.GetStudent(ctx, id, tx); err != nil {
			return err
		}
		return svc.repo.DeleteStudent(ctx, id, tx)
	})
}
