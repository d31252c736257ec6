package emailsvc

import (
	"github.com/pkg/errors"

	"github.com/trezcool/khaosat/core"
)

// supported backends
const (
	BackendConsole  = "console"
	BackendSMTP     = "smtp"
	BackendSendgrid = "sendgrid"
)

// Closer is implemented by backends holding connections.
type Closer interface {
	Close()
}

// NewService picks the delivery backend named in the configuration.
func NewService(conf *core.Config) (core.EmailService, error) {
	switch conf.Email.Backend {
	case "", BackendConsole:
		return NewConsoleService(conf), nil
	case BackendSMTP:
		svc, err := NewSMTPService(conf)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case BackendSendgrid:
		if conf.Email.SendgridAPIKey == "" {
			return nil, errors.New("the sendgrid backend requires an API key")
		}
		return NewSendgridService(conf), nil
	}
	return nil, errors.Errorf("unknown email backend %q", conf.Email.Backend)
}
