package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/question"
)

const questionColumns = "id, group_name, order_no, text, qtype, low_label, mid_label, high_label"

type questionRepository struct {
	repo
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(exec core.DBExecutor) *questionRepository {
	return &questionRepository{repo{exec: exec}}
}

func (r questionRepository) CountQuestions(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var n int
	if err := r.getExec(exec).GetContext(ctx, &n, "SELECT COUNT(*) FROM questions"); err != nil {
		return 0, errors.Wrap(err, "counting questions")
	}
	return n, nil
}

func (r questionRepository) QueryQuestions(ctx context.Context, exec ...core.DBExecutor) ([]question.Question, error) {
	questions := make([]question.Question, 0)
	q := "SELECT " + questionColumns + " FROM questions ORDER BY order_no"
	if err := r.getExec(exec).SelectContext(ctx, &questions, q); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	return questions, nil
}

func (r questionRepository) GetQuestion(ctx context.Context, id int, exec ...core.DBExecutor) (question.Question, error) {
	ex := r.getExec(exec)
	var qn question.Question
	q := ex.Rebind("SELECT " + questionColumns + " FROM questions WHERE id = ?")
	if err := ex.GetContext(ctx, &qn, q, id); err != nil {
		return question.Question{}, trapNoRowsErr(err, "getting question")
	}
	return qn, nil
}

func (r questionRepository) NextOrderNo(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var n int
	if err := r.getExec(exec).GetContext(ctx, &n, "SELECT COALESCE(MAX(order_no), 0) + 1 FROM questions"); err != nil {
		return 0, errors.Wrap(err, "getting next order number")
	}
	return n, nil
}

func (r questionRepository) OrderNoTaken(ctx context.Context, orderNo, excludedID int, exec ...core.DBExecutor) (bool, error) {
	ex := r.getExec(exec)
	var n int
	q := ex.Rebind("SELECT COUNT(*) FROM questions WHERE order_no = ? AND id <> ?")
	if err := ex.GetContext(ctx, &n, q, orderNo, excludedID); err != nil {
		return false, errors.Wrap(err, "checking order number")
	}
	return n > 0, nil
}

func (r questionRepository) CreateQuestions(ctx context.Context, questions []question.Question, exec ...core.DBExecutor) ([]question.Question, error) {
	ex := r.getExec(exec)
	q := ex.Rebind(`
		INSERT INTO questions (group_name, order_no, text, qtype, low_label, mid_label, high_label)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	created := make([]question.Question, 0, len(questions))
	for _, qn := range questions {
		err := ex.GetContext(
			ctx, &qn.ID, q,
			qn.GroupName, qn.OrderNo, qn.Text, qn.Type, qn.LowLabel, qn.MidLabel, qn.HighLabel,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "inserting question %d", qn.OrderNo)
		}
		created = append(created, qn)
	}
	return created, nil
}

func (r questionRepository) UpdateQuestion(ctx context.Context, qn question.Question, exec ...core.DBExecutor) (question.Question, error) {
	ex := r.getExec(exec)
	q := ex.Rebind(`
		UPDATE questions
		SET group_name = ?, order_no = ?, text = ?, qtype = ?, low_label = ?, mid_label = ?, high_label = ?
		WHERE id = ?`)
	res, err := ex.ExecContext(
		ctx, q,
		qn.GroupName, qn.OrderNo, qn.Text, qn.Type, qn.LowLabel, qn.MidLabel, qn.HighLabel, qn.ID,
	)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "updating question")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return question.Question{}, core.ErrNotFound
	}
	return qn, nil
}

func (r questionRepository) DeleteQuestion(ctx context.Context, id int, exec ...core.DBExecutor) error {
	ex := r.getExec(exec)
	if _, err := ex.ExecContext(ctx, ex.Rebind("DELETE FROM responses WHERE question_id = ?"), id); err != nil {
		return errors.Wrap(err, "deleting question responses")
	}
	if _, err := ex.ExecContext(ctx, ex.Rebind("DELETE FROM questions WHERE id = ?"), id); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return nil
}

func (r questionRepository) DeleteAllQuestions(ctx context.Context, exec ...core.DBExecutor) error {
	ex := r.getExec(exec)
	if _, err := ex.ExecContext(ctx, "DELETE FROM responses"); err != nil {
		return errors.Wrap(err, "deleting responses")
	}
	if _, err := ex.ExecContext(ctx, "DELETE FROM questions"); err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	return nil
}
