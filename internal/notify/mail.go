package notify

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"hr-request-backend/config"
	"hr-request-backend/internal/model"
)

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
}

type MailNotifier struct {
	dialer Dialer
	from   string
	loc    *time.Location
}

func NewMailNotifier(cfg config.SMTPConfig, loc *time.Location) *MailNotifier {
	return NewMailNotifierWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password), cfg.From, loc)
}

func NewMailNotifierWithDialer(d Dialer, from string, loc *time.Location) *MailNotifier {
	return &MailNotifier{dialer: d, from: from, loc: loc}
}

func (n *MailNotifier) NotifyReviewer(ctx context.Context, reviewer model.Employee, req model.Request) error {
	if reviewer.Email == "" {
		return ErrNoContact
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetAddressHeader("To", reviewer.Email, reviewer.Name)
	m.SetHeader("Subject", subject(req))
	m.SetBody("text/plain", body(reviewer, req, n.loc))

	s, err := n.dialer.Dial()
	if err != nil {
		return fmt.Errorf("notify: dial smtp: %w", err)
	}
	defer s.Close()

	if err := gomail.Send(s, m); err != nil {
		return fmt.Errorf("notify: send to %s: %w", reviewer.Email, err)
	}
	return nil
}
