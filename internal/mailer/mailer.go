// Package mailer renders and delivers transactional mail. Delivery runs
// through a RabbitMQ queue (see queue.go) so HTTP requests never block on
// an SMTP round trip.
package mailer

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"

	"contacts/internal/config"
)

// Mailer sends HTML mail over SMTP. With MailSSL set it dials implicit
// TLS (port 465 style); otherwise it relies on smtp.SendMail and
// opportunistic STARTTLS.
type Mailer struct {
	cfg config.Config
}

func New(cfg config.Config) *Mailer { return &Mailer{cfg: cfg} }

// SendVerification delivers the confirm-your-email message. The link
// points at the API's own confirmation endpoint.
func (m *Mailer) SendVerification(to, username, token string) error {
	link := fmt.Sprintf("%s/api/users/confirmed_email/%s",
		strings.TrimRight(m.cfg.AppBaseURL, "/"), url.PathEscape(token))
	body, err := render(verifyEmailTmpl, map[string]string{
		"Username": username,
		"Link":     link,
	})
	if err != nil {
		return err
	}
	return m.send(to, "Confirm your email", body)
}

// SendPasswordReset delivers the reset message. The link points at the
// frontend, which collects the new password and calls the API.
func (m *Mailer) SendPasswordReset(to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s",
		strings.TrimRight(m.cfg.FrontendBaseURL, "/"), url.QueryEscape(token))
	body, err := render(passwordResetTmpl, map[string]string{
		"Link": link,
	})
	if err != nil {
		return err
	}
	return m.send(to, "Reset your password", body)
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	msg := m.buildMessage(to, subject, htmlBody)
	addr := fmt.Sprintf("%s:%d", m.cfg.MailHost, m.cfg.MailPort)

	var auth smtp.Auth
	if m.cfg.MailUsername != "" && m.cfg.MailPassword != "" {
		auth = smtp.PlainAuth("", m.cfg.MailUsername, m.cfg.MailPassword, m.cfg.MailHost)
	}

	if !m.cfg.MailSSL {
		return smtp.SendMail(addr, auth, m.cfg.MailFrom, []string{to}, msg)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.MailHost})
	if err != nil {
		return fmt.Errorf("smtp tls dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.MailHost)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.MailFrom); err != nil {
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
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (m *Mailer) buildMessage(to, subject, htmlBody string) []byte {
	b := &strings.Builder{}
	fmt.Fprintf(b, "From: %s <%s>\r\n", m.cfg.MailFromName, m.cfg.MailFrom)
	fmt.Fprintf(b, "To: %s\r\n", to)
	fmt.Fprintf(b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
