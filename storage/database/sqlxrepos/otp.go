package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/otp"
)

type codeRepository struct {
	repo
}

var _ otp.Repository = (*codeRepository)(nil) // interface compliance check

func NewCodeRepository(exec core.DBExecutor) *codeRepository {
	return &codeRepository{repo{exec: exec}}
}

func (r codeRepository) LatestCode(ctx context.Context, studentID string, exec ...core.DBExecutor) (otp.Code, error) {
	ex := r.getExec(exec)
	var code otp.Code
	q := ex.Rebind(`
		SELECT id, student_id, code_hash, expires_at, created_at, used
		FROM one_time_codes WHERE student_id = ?
		ORDER BY id DESC LIMIT 1`)
	if err := ex.GetContext(ctx, &code, q, studentID); err != nil {
		return otp.Code{}, trapNoRowsErr(err, "getting latest code")
	}
	return code, nil
}

func (r codeRepository) CreateCode(ctx context.Context, code otp.Code, exec ...core.DBExecutor) (otp.Code, error) {
	ex := r.getExec(exec)
	q := ex.Rebind(`
		INSERT INTO one_time_codes (student_id, code_hash, expires_at, created_at, used)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := ex.GetContext(ctx, &code.ID, q, code.StudentID, code.CodeHash, code.ExpiresAt.UTC(), code.CreatedAt.UTC(), code.Used)
	if err != nil {
		return otp.Code{}, errors.Wrap(err, "inserting code")
	}
	return code, nil
}

func (r codeRepository) MarkUsed(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error) {
	ex := r.getExec(exec)
	res, err := ex.ExecContext(ctx, ex.Rebind("UPDATE one_time_codes SET used = ? WHERE id = ? AND used = ?"), true, id, false)
	if err != nil {
		return false, errors.Wrap(err, "marking code as used")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "marking code as used")
	}
	return n == 1, nil
}
