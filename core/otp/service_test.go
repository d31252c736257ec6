package otp_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khaosat/core"
	"github.com/trezcool/khaosat/core/otp"
	"github.com/trezcool/khaosat/services/email"
	"github.com/trezcool/khaosat/storage/database/sqlxrepos"
	"github.com/trezcool/khaosat/tests"
)

var codeRegex = regexp.MustCompile(`^[0-9]{6}$`)

type failingMailer struct{}

func (failingMailer) Send(context.Context, *core.EmailMessage) error {
	return errors.New("smtp: connection refused")
}

type clock struct{ now time.Time }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func setup(t *testing.T, mailer ...core.EmailService) (*otp.Service, core.DB, *clock) {
	db := testutil.OpenDB(t)
	conf := testutil.NewConfig()

	var mailSvc core.EmailService = emailsvc.NewConsoleServiceMock(conf)
	if len(mailer) > 0 {
		mailSvc = mailer[0]
	}
	emailsvc.ResetSentMessages()

	clk := &clock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	otp.NowFunc = func() time.Time { return clk.now }
	t.Cleanup(func() { otp.NowFunc = func() time.Time { return time.Now().UTC() } })

	testutil.CreateStudent(t, db, "S001", "a@x.com", "Nguyen Van A", 8)
	svc := otp.NewService(
		db,
		sqlxrepos.NewCodeRepository(db),
		sqlxrepos.NewStudentRepository(db),
		mailSvc,
		conf.OTP,
	)
	return svc, db, clk
}

// lastCode extracts the plaintext code from the last captured email.
func lastCode(t *testing.T) string {
	t.Helper()
	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok, "no email sent")
	data, ok := msg.TemplateData.(map[string]interface{})
	require.True(t, ok)
	code, _ := data["Code"].(string)
	require.Regexp(t, codeRegex, code)
	assert.Contains(t, msg.TextContent, code)
	assert.Equal(t, "a@x.com", msg.To[0].Address)
	return code
}

func TestService_RequestCode(t *testing.T) {
	svc, db, clk := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.RequestCode(ctx, "S999", "a@x.com"), core.ErrNotFound)
	assert.ErrorIs(t, svc.RequestCode(ctx, "S001", "b@x.com"), core.ErrMismatch)

	require.NoError(t, svc.RequestCode(ctx, " S001 ", " A@X.com "))
	code := lastCode(t)

	latest, err := sqlxrepos.NewCodeRepository(db).LatestCode(ctx, "S001")
	require.NoError(t, err)
	assert.NotEqual(t, code, latest.CodeHash, "only the hash is stored")
	assert.True(t, latest.Matches(code))
	assert.True(t, latest.ExpiresAt.Equal(clk.now.Add(core.DefaultOTPCodeTTL)))
	assert.False(t, latest.Used)

	clk.advance(30 * time.Second)
	assert.ErrorIs(t, svc.RequestCode(ctx, "S001", "a@x.com"), core.ErrRateLimited)

	clk.advance(31 * time.Second)
	require.NoError(t, svc.RequestCode(ctx, "S001", "a@x.com"))
}

func TestService_VerifyCode(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	ok, err := svc.VerifyCode(ctx, "S001", "123456")
	require.NoError(t, err)
	assert.False(t, ok, "no code issued yet")

	require.NoError(t, svc.RequestCode(ctx, "S001", "a@x.com"))
	code := lastCode(t)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	ok, err = svc.VerifyCode(ctx, "S001", wrong)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.VerifyCode(ctx, "S001", code)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyCode(ctx, "S001", code)
	require.NoError(t, err)
	assert.False(t, ok, "a code is single-use")
}

func TestService_VerifyCode_expired(t *testing.T) {
	svc, _, clk := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestCode(ctx, "S001", "a@x.com"))
	code := lastCode(t)

	clk.advance(core.DefaultOTPCodeTTL + time.Second)
	ok, err := svc.VerifyCode(ctx, "S001", code)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_VerifyCode_onlyLatest(t *testing.T) {
	svc, _, clk := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestCode(ctx, "S001", "a@x.com"))
	first := lastCode(t)

	clk.advance(core.DefaultOTPCooldown)
	require.NoError(t, svc.RequestCode(ctx, "S001", "a@x.com"))
	second := lastCode(t)

	if first != second {
		ok, err := svc.VerifyCode(ctx, "S001", first)
		require.NoError(t, err)
		assert.False(t, ok, "older codes are superseded")
	}
	ok, err := svc.VerifyCode(ctx, "S001", second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_RequestCode_deliveryFailure(t *testing.T) {
	svc, db, _ := setup(t, failingMailer{})
	ctx := context.Background()

	err := svc.RequestCode(ctx, "S001", "a@x.com")
	assert.ErrorIs(t, err, core.ErrDeliveryFailed)

	_, err = sqlxrepos.NewCodeRepository(db).LatestCode(ctx, "S001")
	assert.NoError(t, err, "the code is kept even if delivery fails")
	assert.ErrorIs(t, svc.RequestCode(ctx, "S001", "a@x.com"), core.ErrRateLimited)
}
