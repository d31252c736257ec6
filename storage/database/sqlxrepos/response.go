package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/response"
)

type responseRepository struct {
	repo
}

var _ response.Repository = (*responseRepository)(nil) // interface compliance check

func NewResponseRepository(exec core.DBExecutor) *responseRepository {
	return &responseRepository{repo{exec: exec}}
}

func (r responseRepository) InsertResponses(ctx context.Context, responses []response.Response, exec ...core.DBExecutor) error {
	ex := r.getExec(exec)
	q := ex.Rebind(`
		INSERT INTO responses (student_id, question_id, value_int, value_text, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	for _, resp := range responses {
		_, err := ex.ExecContext(ctx, q, resp.StudentID, resp.QuestionID, resp.ValueInt, resp.ValueText, resp.CreatedAt.UTC())
		if err != nil {
			return errors.Wrapf(err, "inserting response to question %d", resp.QuestionID)
		}
	}
	return nil
}

func (r responseRepository) MarkCompleted(ctx context.Context, studentID string, at time.Time, exec ...core.DBExecutor) (bool, error) {
	ex := r.getExec(exec)
	q := ex.Rebind("UPDATE students SET completed = ?, completed_at = ? WHERE id = ? AND completed = ?")
	res, err := ex.ExecContext(ctx, q, true, at.UTC(), studentID, false)
	if err != nil {
		return false, errors.Wrap(err, "marking student as completed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "marking student as completed")
	}
	return n == 1, nil
}

func (r responseRepository) ResetCompletion(ctx context.Context, exec ...core.DBExecutor) error {
	ex := r.getExec(exec)
	q := ex.Rebind("UPDATE students SET completed = ?, completed_at = NULL")
	if _, err := ex.ExecContext(ctx, q, false); err != nil {
		return errors.Wrap(err, "resetting completion")
	}
	return nil
}

func (r responseRepository) DeleteAllResponses(ctx context.Context, exec ...core.DBExecutor) (int64, error) {
	res, err := r.getExec(exec).ExecContext(ctx, "DELETE FROM responses")
	if err != nil {
		return 0, errors.Wrap(err, "deleting responses")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r responseRepository) QueryStudentAnswers(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]response.StudentAnswer, error) {
	ex := r.getExec(exec)
	q := ex.Rebind(`
		SELECT q.id AS question_id, q.group_name, q.order_no, q.text, q.qtype,
			q.low_label, q.mid_label, q.high_label, r.value_int, r.value_text
		FROM questions q
		LEFT JOIN responses r ON r.question_id = q.id AND r.student_id = ?
		ORDER BY q.order_no`)
	answers := make([]response.StudentAnswer, 0)
	if err := ex.SelectContext(ctx, &answers, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student answers")
	}
	return answers, nil
}
