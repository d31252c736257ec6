package emailsvc

import (
	"context"
	"crypto/tls"
	"net/smtp"
	"time"

	"github.com/knadh/smtppool"
	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
)

type smtpService struct {
	appName    string
	from       string
	subjPrefix string
	timeout    time.Duration
	pool       *smtppool.Pool
}

var _ core.EmailService = (*smtpService)(nil)

func NewSMTPService(conf *core.Config) (*smtpService, error) {
	sc := conf.Email.SMTP
	var auth smtp.Auth
	if sc.User != "" || sc.Password != "" {
		auth = smtp.PlainAuth("", sc.User, sc.Password, sc.Host)
	}

	pool, err := smtppool.New(smtppool.Opt{
		Host:            sc.Host,
		Port:            sc.Port,
		MaxConns:        sc.Connections,
		IdleTimeout:     conf.Email.SendTimeout,
		PoolWaitTimeout: conf.Email.SendTimeout,
		TLSConfig: &tls.Config{
			InsecureSkipVerify: sc.InsecureSkipVerify,
			ServerName:         sc.Host,
		},
		Auth: auth,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating smtp pool")
	}

	from := conf.Email.FromAddress()
	return &smtpService{
		appName:    conf.AppName,
		from:       from.String(),
		subjPrefix: "[" + conf.AppName + "] ",
		timeout:    conf.Email.SendTimeout,
		pool:       pool,
	}, nil
}

func (svc smtpService) Send(ctx context.Context, msg *core.EmailMessage) error {
	if err := msg.Render(svc.appName); err != nil {
		return errors.Wrap(err, "rendering email")
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return nil
	}

	email := smtppool.Email{
		From:    svc.from,
		To:      msg.Recipients(),
		Subject: svc.subjPrefix + msg.Subject,
		Text:    []byte(msg.TextContent),
		HTML:    []byte(msg.HTMLContent),
	}

	// smtppool is not context aware: race the send against ctx and the configured timeout
	if svc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.timeout)
		defer cancel()
	}
	done := make(chan error, 1)
	go func() { done <- svc.pool.Send(email) }()

	select {
	case err := <-done:
		return errors.Wrap(err, "sending email")
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "sending email")
	}
}

func (svc smtpService) Close() {
	svc.pool.Close()
}
