package response

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
	"github.com/trezcool/khaosat/core/student"
)

// NowFunc is swapped out in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }

type (
	Repository interface {
		InsertResponses(ctx context.Context, responses []Response, exec ...core.DBExecutor) error
		// MarkCompleted flips the completion flag of a not yet completed student.
		// It reports false when the student was already completed.
		MarkCompleted(ctx context.Context, studentID string, at time.Time, exec ...core.DBExecutor) (bool, error)
		// ResetCompletion clears the completion flag of every student.
		ResetCompletion(ctx context.Context, exec ...core.DBExecutor) error
		DeleteAllResponses(ctx context.Context, exec ...core.DBExecutor) (int64, error)
		// QueryStudentAnswers lists every question, ordered by order_no, with the student's answer if any.
		QueryStudentAnswers(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]StudentAnswer, error)
	}

	StudentGetter interface {
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error)
	}

	QuestionLister interface {
		QueryQuestions(ctx context.Context, exec ...core.DBExecutor) ([]question.Question, error)
	}

	// Service is the Response Collector.
	Service struct {
		db        core.DB
		repo      Repository
		students  StudentGetter
		questions QuestionLister
	}
)

var errNoQuestions = errors.New("there are no questions to answer")

func NewService(db core.DB, repo Repository, students StudentGetter, questions QuestionLister) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		students:  students,
		questions: questions,
	}
}

// Submit stores the answers of the calling student and marks their survey as completed.
// Either every answer and the completion flag are persisted, or nothing is.
func (svc *Service) Submit(ctx context.Context, sess core.Session, answers []Answer) error {
	studentID, err := sess.RequireStudent()
	if err != nil {
		return err
	}

	return core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		stud, err := svc.students.GetStudent(ctx, studentID, tx)
		if err != nil {
			return err
		}
		if stud.Completed {
			return core.ErrAlreadyCompleted
		}

		questions, err := svc.questions.QueryQuestions(ctx, tx)
		if err != nil {
			return err
		}
		now := NowFunc()
		rows, err := buildResponses(stud.ID, questions, answers, now)
		if err != nil {
			return err
		}

		if err = svc.repo.InsertResponses(ctx, rows, tx); err != nil {
			return err
		}
		ok, err := svc.repo.MarkCompleted(ctx, stud.ID, now, tx)
		if err != nil {
			return err
		}
		if !ok {
			return core.ErrAlreadyCompleted
		}
		return nil
	})
}

// buildResponses checks that answers cover every question with a value of the right kind.
func buildResponses(studentID string, questions []question.Question, answers []Answer, now time.Time) ([]Response, error) {
	if len(questions) == 0 {
		return nil, core.NewValidationError(errNoQuestions)
	}

	known := make(map[int]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	byQuestion := make(map[int]Answer, len(answers))
	var unknown []core.FieldError
	for _, a := range answers {
		if !known[a.QuestionID] {
			unknown = append(unknown, core.FieldError{
				Field: "answers",
				Error: fmt.Sprintf("unknown question id %d", a.QuestionID),
			})
			continue
		}
		byQuestion[a.QuestionID] = a
	}
	if len(unknown) > 0 {
		return nil, core.NewValidationError(core.ErrIncompleteSubmission, unknown...)
	}

	subErr := new(core.SubmissionError)
	rows := make([]Response, 0, len(questions))
	for _, q := range questions {
		a, ok := byQuestion[q.ID]
		row := Response{StudentID: studentID, QuestionID: q.ID, CreatedAt: now}

		switch {
		case q.IsScale():
			switch {
			case !ok || a.Value == nil:
				subErr.Missing = append(subErr.Missing, q.OrderNo)
				continue
			case !question.InRange(*a.Value):
				subErr.Invalid = append(subErr.Invalid, q.OrderNo)
				continue
			}
			row.ValueInt = null.IntFrom(*a.Value)
		default:
			var text string
			if ok && a.Text != nil {
				text = core.CleanString(*a.Text)
			}
			if text == "" {
				subErr.Missing = append(subErr.Missing, q.OrderNo)
				continue
			}
			row.ValueText = null.StringFrom(text)
		}
		rows = append(rows, row)
	}

	if len(subErr.Missing) > 0 || len(subErr.Invalid) > 0 {
		sort.Ints(subErr.Missing)
		sort.Ints(subErr.Invalid)
		return nil, subErr
	}
	return rows, nil
}

// Profile returns the calling student's own view.
func (svc *Service) Profile(ctx context.Context, sess core.Session) (Profile, error) {
	studentID, err := sess.RequireStudent()
	if err != nil {
		return Profile{}, err
	}
	stud, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return Profile{}, err
	}

	p := newProfile(stud)
	if !stud.Completed {
		return p, nil
	}
	answers, err := svc.repo.QueryStudentAnswers(ctx, stud.ID)
	if err != nil {
		return Profile{}, err
	}
	for i := range answers {
		answers[i].setLabel()
	}
	p.Answers = answers
	return p, nil
}

// ResetAll deletes every response and clears every completion flag, opening a new survey cycle.
func (svc *Service) ResetAll(ctx context.Context, sess core.Session) (int64, error) {
	if err := sess.RequireAdmin(); err != nil {
		return 0, err
	}
	var deleted int64
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if deleted, err = svc.repo.DeleteAllResponses(ctx, tx); err != nil {
			return err
		}
		return svc.repo.ResetCompletion(ctx, tx)
	})
	if err != nil {
		return 0, errors.Wrap(err, "resetting responses")
	}
	return deleted, nil
}
