package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/result"
)

type resultRepository struct {
	repo
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(exec core.DBExecutor) *resultRepository {
	return &resultRepository{repo{exec: exec}}
}

func (r resultRepository) QueryExportRows(ctx context.Context, exec ...core.DBExecutor) ([]result.ExportRow, error) {
	q := `
		SELECT r.id AS response_id, s.id AS student_id, s.name AS student_name, s.email AS student_email, s.score,
			q.id AS question_id, q.group_name, q.order_no, q.text AS question_text, q.qtype,
			q.low_label, q.mid_label, q.high_label, r.value_int, r.value_text, r.created_at
		FROM responses r
		JOIN students s ON s.id = r.student_id
		JOIN questions q ON q.id = r.question_id
		ORDER BY r.id`
	rows := make([]result.ExportRow, 0)
	if err := r.getExec(exec).SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying export rows")
	}
	return rows, nil
}

func (r resultRepository) CountStudents(ctx context.Context, exec ...core.DBExecutor) (int, int, error) {
	var counts struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}
	q := `SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed FROM students`
	if err := r.getExec(exec).GetContext(ctx, &counts, q); err != nil {
		return 0, 0, errors.Wrap(err, "counting students")
	}
	return counts.Total, counts.Completed, nil
}
