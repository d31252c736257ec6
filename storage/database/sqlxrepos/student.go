package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/student"
)

const studentColumns = "id, email, name, score, completed, completed_at"

type studentRepository struct {
	repo
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{repo{exec: exec}}
}

func (r studentRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	ex := r.getExec(exec)
	var stud student.Student
	q := ex.Rebind("SELECT " + studentColumns + " FROM students WHERE id = ?")
	if err := ex.GetContext(ctx, &stud, q, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, "getting student")
	}
	return stud, nil
}

func (r studentRepository) QueryStudents(ctx context.Context, exec ...core.DBExecutor) ([]student.Student, error) {
	students := make([]student.Student, 0)
	q := "SELECT " + studentColumns + " FROM students ORDER BY id"
	if err := r.getExec(exec).SelectContext(ctx, &students, q); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (r studentRepository) UpsertStudents(ctx context.Context, rows []student.NewStudent, exec ...core.DBExecutor) error {
	ex := r.getExec(exec)
	q := ex.Rebind(`
		INSERT INTO students (id, email, name, score) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, name = excluded.name, score = excluded.score`)
	for _, row := range rows {
		if _, err := ex.ExecContext(ctx, q, row.ID, row.Email, row.Name, row.Score); err != nil {
			return errors.Wrapf(err, "upserting student %s", row.ID)
		}
	}
	return nil
}

func (r studentRepository) UpdateStudent(ctx context.Context, id string, data student.UpdateStudent, exec ...core.DBExecutor) (student.Student, error) {
	ex := r.getExec(exec)

	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if data.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *data.Email)
	}
	if data.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *data.Name)
	}
	if data.Score != nil {
		sets = append(sets, "score = ?")
		args = append(args, *data.Score)
	}
	if len(sets) == 0 {
		return r.GetStudent(ctx, id, ex)
	}
	args = append(args, id)

	q := ex.Rebind("UPDATE students SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	res, err := ex.ExecContext(ctx, q, args...)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, core.ErrNotFound
	}
	return r.GetStudent(ctx, id, ex)
}

func (r studentRepository) DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ex := r.getExec(exec)
	for _, q := range []string{
		"DELETE FROM responses WHERE student_id = ?",
		"DELETE FROM one_time_codes WHERE student_id = ?",
		"DELETE FROM students WHERE id = ?",
	} {
		if _, err := ex.ExecContext(ctx, ex.Rebind(q), id); err != nil {
			return errors.Wrap(err, "deleting student")
		}
	}
	return nil
}
