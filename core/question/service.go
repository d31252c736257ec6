package question

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
)

const errOrderTaken = "another question already uses this order number"

type (
	Repository interface {
		CountQuestions(ctx context.Context, exec ...core.DBExecutor) (int, error)
		// QueryQuestions returns all questions ordered by OrderNo.
		QueryQuestions(ctx context.Context, exec ...core.DBExecutor) ([]Question, error)
		GetQuestion(ctx context.Context, id int, exec ...core.DBExecutor) (Question, error)
		NextOrderNo(ctx context.Context, exec ...core.DBExecutor) (int, error)
		OrderNoTaken(ctx context.Context, orderNo, excludedID int, exec ...core.DBExecutor) (bool, error)
		CreateQuestions(ctx context.Context, questions []Question, exec ...core.DBExecutor) ([]Question, error)
		UpdateQuestion(ctx context.Context, q Question, exec ...core.DBExecutor) (Question, error)
		// DeleteQuestion removes the question along with the responses referencing it.
		DeleteQuestion(ctx context.Context, id int, exec ...core.DBExecutor) error
		// DeleteAllQuestions wipes every response, then every question.
		DeleteAllQuestions(ctx context.Context, exec ...core.DBExecutor) error
	}

	// Service is the Question Bank Manager.
	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// List returns the active question bank ordered by OrderNo.
func (svc *Service) List(ctx context.Context) ([]Question, error) {
	return svc.repo.QueryQuestions(ctx)
}

func (svc *Service) Get(ctx context.Context, id int) (Question, error) {
	return svc.repo.GetQuestion(ctx, id)
}

// SeedIfEmpty installs the default questionnaire when there are no questions yet.
// It reports whether anything was inserted.
func (svc *Service) SeedIfEmpty(ctx context.Context) (bool, error) {
	var seeded bool
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		n, err := svc.repo.CountQuestions(ctx, tx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if _, err = svc.repo.CreateQuestions(ctx, Defaults(), tx); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	return seeded, errors.Wrap(err, "seeding questions")
}

// ResetToDefault wipes every response and question and reinstalls the default questionnaire.
func (svc *Service) ResetToDefault(ctx context.Context, sess core.Session) ([]Question, error) {
	if err := sess.RequireAdmin(); err != nil {
		return nil, err
	}
	var questions []Question
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.repo.DeleteAllQuestions(ctx, tx); err != nil {
			return err
		}
		var err error
		questions, err = svc.repo.CreateQuestions(ctx, Defaults(), tx)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "resetting questions")
	}
	return questions, nil
}

func (svc *Service) Create(ctx context.Context, sess core.Session, nq NewQuestion) (Question, error) {
	if err := sess.RequireAdmin(); err != nil {
		return Question{}, err
	}

	q := nq.question()
	var created Question
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if nq.OrderNo == nil {
			next, err := svc.repo.NextOrderNo(ctx, tx)
			if err != nil {
				return err
			}
			q.OrderNo = next
		}
		q.clean()
		if err := q.validate(); err != nil {
			return err
		}
		if err := svc.checkOrderNo(ctx, tx, q); err != nil {
			return err
		}
		qs, err := svc.repo.CreateQuestions(ctx, []Question{q}, tx)
		if err != nil {
			return err
		}
		created = qs[0]
		return nil
	})
	return created, err
}

func (svc *Service) Update(ctx context.Context, sess core.Session, id int, uq UpdateQuestion) (Question, error) {
	if err := sess.RequireAdmin(); err != nil {
		return Question{}, err
	}

	var updated Question
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		orig, err := svc.repo.GetQuestion(ctx, id, tx)
		if err != nil {
			return err
		}
		q, err := uq.apply(orig)
		if err != nil {
			return err
		}
		q.clean()
		if err = q.validate(); err != nil {
			return err
		}
		if q.OrderNo != orig.OrderNo {
			if err = svc.checkOrderNo(ctx, tx, q); err != nil {
				return err
			}
		}
		updated, err = svc.repo.UpdateQuestion(ctx, q, tx)
		return err
	})
	return updated, err
}

// Delete removes a question and every response to it.
func (svc *Service) Delete(ctx context.Context, sess core.Session, id int) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}
	return core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if _, err := svc.repo.GetQuestion(ctx, id, tx); err != nil {
			return err
		}
		return svc.repo.DeleteQuestion(ctx, id, tx)
	})
}

func (svc *Service) checkOrderNo(ctx context.Context, tx core.DBExecutor, q Question) error {
	taken, err := svc.repo.OrderNoTaken(ctx, q.OrderNo, q.ID, tx)
	if err != nil {
		return err
	}
	if taken {
		return core.NewValidationError(errInvalidQuestion, core.FieldError{Field: "order_no", Error: errOrderTaken})
	}
	return nil
}
