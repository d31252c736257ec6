package otp

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/student"
)

const templateName = "otp_code"

type (
	Repository interface {
		// LatestCode returns the most recently issued code of a student, or core.ErrNotFound.
		LatestCode(ctx context.Context, studentID string, exec ...core.DBExecutor) (Code, error)
		CreateCode(ctx context.Context, code Code, exec ...core.DBExecutor) (Code, error)
		// MarkUsed flags an unused code as used. It reports false when the code was already consumed.
		MarkUsed(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error)
	}

	StudentGetter interface {
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error)
	}

	// Service is the OTP Authenticator.
	Service struct {
		db       core.DB
		repo     Repository
		students StudentGetter
		mailSvc  core.EmailService
		conf     core.OTPConfig
	}
)

func NewService(db core.DB, repo Repository, students StudentGetter, mailSvc core.EmailService, conf core.OTPConfig) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		students: students,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

// RequestCode issues a fresh code for the student and emails it.
// The code row is committed before delivery; a delivery failure does not revoke it.
func (svc *Service) RequestCode(ctx context.Context, studentID, email string) error {
	studentID = core.CleanString(studentID)
	stud, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if !stud.EmailMatches(email) {
		return core.ErrMismatch
	}

	var plain string
	err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		now := NowFunc()
		latest, err := svc.repo.LatestCode(ctx, stud.ID, tx)
		switch {
		case err == nil:
			if now.Sub(latest.CreatedAt) < svc.conf.Cooldown {
				return core.ErrRateLimited
			}
		case !errors.Is(err, core.ErrNotFound):
			return err
		}

		if plain, err = generateCode(); err != nil {
			return errors.Wrap(err, "generating code")
		}
		_, err = svc.repo.CreateCode(ctx, Code{
			StudentID: stud.ID,
			CodeHash:  hashCode(plain),
			ExpiresAt: now.Add(svc.conf.CodeTTL),
			CreatedAt: now,
		}, tx)
		return err
	})
	if err != nil {
		return err
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: stud.Name, Address: stud.Email}},
		Subject:      "Mã OTP đăng nhập khảo sát",
		TemplateName: templateName,
		TemplateData: map[string]interface{}{
			"Name":       stud.Name,
			"Code":       plain,
			"TTLMinutes": int(svc.conf.CodeTTL.Minutes()),
		},
	}
	if err = svc.mailSvc.Send(ctx, msg); err != nil {
		return errors.Wrap(core.ErrDeliveryFailed, err.Error())
	}
	return nil
}

// VerifyCode checks code against the latest code issued to the student and consumes it on success.
// Only storage failures are returned as errors.
func (svc *Service) VerifyCode(ctx context.Context, studentID, code string) (bool, error) {
	studentID = core.CleanString(studentID)
	code = core.CleanString(code)

	var ok bool
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		latest, err := svc.repo.LatestCode(ctx, studentID, tx)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil
			}
			return err
		}
		if latest.Used || latest.Expired(NowFunc()) || !latest.Matches(code) {
			return nil
		}
		ok, err = svc.repo.MarkUsed(ctx, latest.ID, tx)
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}
