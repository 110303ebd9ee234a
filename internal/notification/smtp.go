package notification

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPNotifier delivers messages as HTML email.
type SMTPNotifier struct {
	from   string
	sender mailSender
}

// NewSMTPNotifier builds an SMTP notifier from cfg.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, errors.New("smtp host, port and sender address are required")
	}
	return &SMTPNotifier{
		from:   cfg.From,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}, nil
}

// Send dials the server and delivers message.
func (n *SMTPNotifier) Send(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if message.Destination == "" {
		return ErrNoDestination
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.from, "Info")
	m.SetHeader("To", message.Destination)
	m.SetHeader("Subject", message.Subject)
	m.SetBody("text/html", message.Body)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s email: %w", message.Kind, err)
	}
	return nil
}
