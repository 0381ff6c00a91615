// Package smtp dispatches confirmation and password-reset mail. Delivery is
// best effort: callers run it off the request path and only log failures.
package smtp

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Mailer interface {
	SendConfirmation(email, username, token string) error
	SendReset(email, username, token string) error
	Enabled() bool
}

type Config struct {
	Host      string
	Port      string
	User      string
	Password  string
	From      string
	Security  string // ssl, starttls or none
	PublicURL string
}

type mailer struct {
	cfg Config
}

type noopMailer struct{}

func (noopMailer) SendConfirmation(string, string, string) error { return nil }
func (noopMailer) SendReset(string, string, string) error        { return nil }
func (noopMailer) Enabled() bool                                 { return false }

// New returns a no-op mailer when the SMTP host or sender is not configured.
func New(cfg Config) Mailer {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.From = strings.TrimSpace(cfg.From)
	cfg.Security = strings.ToLower(strings.TrimSpace(cfg.Security))
	if cfg.Security == "" {
		cfg.Security = "ssl"
	}
	if cfg.Port == "" {
		cfg.Port = "465"
	}
	if cfg.Host == "" || cfg.From == "" {
		return noopMailer{}
	}
	return &mailer{cfg: cfg}
}

func (m *mailer) Enabled() bool { return true }

func (m *mailer) SendConfirmation(email, username, token string) error {
	link := fmt.Sprintf("%s/api/v1/auth/confirmed_email/%s", m.cfg.PublicURL, token)
	body := fmt.Sprintf("Hi %s,\n\nConfirm your email by following the link below:\n%s\n\nIf you did not sign up, ignore this message.", username, link)
	return m.send(email, "Confirm your email", body)
}

func (m *mailer) SendReset(email, username, token string) error {
	link := fmt.Sprintf("%s/api/v1/auth/reset_password_template/%s", m.cfg.PublicURL, token)
	body := fmt.Sprintf("Hi %s,\n\nYou requested a password reset. Use the link below:\n%s\n\nIf you did not request this, ignore the message.", username, link)
	return m.send(email, "Reset password", body)
}

func (m *mailer) send(to, subject, body string) error {
	msg := message(m.cfg.From, to, subject, body)
	op := func() error {
		switch m.cfg.Security {
		case "ssl", "smtps":
			return m.sendSSL(to, msg)
		case "none":
			return smtp.SendMail(m.addr(), m.auth(), m.cfg.From, []string{to}, msg)
		default:
			return m.sendSTARTTLS(to, msg)
		}
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 15 * time.Second
	return backoff.Retry(op, bo)
}

func (m *mailer) addr() string { return net.JoinHostPort(m.cfg.Host, m.cfg.Port) }

func (m *mailer) auth() smtp.Auth {
	if m.cfg.User == "" {
		return nil
	}
	return smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
}

func (m *mailer) sendSSL(to string, msg []byte) error {
	conn, err := tls.Dial("tcp", m.addr(), &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()
	return m.deliver(client, to, msg)
}

func (m *mailer) sendSTARTTLS(to string, msg []byte) error {
	client, err := smtp.Dial(m.addr())
	if err != nil {
		return err
	}
	defer client.Close()
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return err
		}
	}
	return m.deliver(client, to, msg)
}

func (m *mailer) deliver(client *smtp.Client, to string, msg []byte) error {
	if auth := m.auth(); auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func message(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
