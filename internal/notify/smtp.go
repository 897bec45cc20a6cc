package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/sdnyco/ichi/config"
)

// sendMailFunc matches smtp.SendMail; swapped in tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPTransport sends one message per recipient over SMTP.
type SMTPTransport struct {
	addr     string
	auth     smtp.Auth
	from     string
	sendMail sendMailFunc
}

func NewSMTPTransport(cfg config.MailConfig) *SMTPTransport {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPTransport{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:     auth,
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, msg PingEmail) error {
	subject, body, err := Render(msg)
	if err != nil {
		return fmt.Errorf("render ping email: %w", err)
	}

	var errs error
	for _, rcpt := range msg.Recipients {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, &RecipientError{Recipient: rcpt, Err: err})
			continue
		}
		raw := buildMessage(t.from, rcpt, subject, body)
		if err := t.sendMail(t.addr, t.auth, envelopeAddress(t.from), []string{rcpt}, raw); err != nil {
			errs = multierr.Append(errs, &RecipientError{Recipient: rcpt, Err: err})
		}
	}
	return errs
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// envelopeAddress strips a display name: "ichi <a@b>" -> "a@b".
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return from
}
