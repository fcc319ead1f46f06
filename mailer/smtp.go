package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var _ Mailer = (*SMTPMailer)(nil)

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Account  string
	Password string
	From     string
}

// SMTPMailer sends through an SMTP relay using STARTTLS when offered and
// PLAIN auth when an account is configured. The whole conversation, dial
// included, ends when the context passed to SendMail does.
type SMTPMailer struct {
	cfg     SMTPConfig
	dialer  *net.Dialer
	nowTime func() time.Time
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.Account
	}
	return &SMTPMailer{
		cfg:     cfg,
		dialer:  &net.Dialer{},
		nowTime: time.Now,
	}
}

func (m *SMTPMailer) SendMail(ctx context.Context, msg Message) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.Wrap(err, "[SMTPMailer.SendMail]")
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return false, errors.New("[SMTPMailer.SendMail] header values must not contain line breaks")
	}

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, errors.Wrapf(err, "[SMTPMailer.SendMail] dial relay %s", addr)
	}
	defer conn.Close()

	// Expire the connection once ctx is done so a stalled relay cannot hold
	// the caller past its deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := m.converse(conn, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, errors.Wrapf(ctxErr, "[SMTPMailer.SendMail] relay %s: %v", addr, err)
		}
		return false, errors.Wrapf(err, "[SMTPMailer.SendMail] relay %s", addr)
	}
	return true, nil
}

// converse runs one SMTP session on conn: greeting, optional STARTTLS and
// AUTH, then a single message.
func (m *SMTPMailer) converse(conn net.Conn, msg Message) error {
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return errors.Wrap(err, "greeting")
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return errors.Wrap(err, "starttls")
		}
	}
	if m.cfg.Account != "" {
		if ok, _ := client.Extension("AUTH"); !ok {
			return errors.New("relay does not offer AUTH")
		}
		if err := client.Auth(smtp.PlainAuth("", m.cfg.Account, m.cfg.Password, m.cfg.Host)); err != nil {
			return errors.Wrap(err, "auth")
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return errors.Wrap(err, "mail from")
	}
	if err := client.Rcpt(msg.To); err != nil {
		return errors.Wrap(err, "rcpt to")
	}
	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "data")
	}
	if _, err := w.Write(m.compose(msg)); err != nil {
		return errors.Wrap(err, "write message")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "end of data")
	}
	return client.Quit()
}

func (m *SMTPMailer) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", m.nowTime().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
