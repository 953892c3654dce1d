package mail

import (
	"fmt"
	"html"
	"net/smtp"

	"github.com/ManuelReschke/UrbanFix/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

// Mailer delivers a single HTML message.
type Mailer interface {
	SendMail(to string, subject string, body string) error
}

// SMTPMailer sends emails via the SMTP_* settings.
type SMTPMailer struct{}

func (SMTPMailer) SendMail(to string, subject string, body string) error {
	return SendMail(to, subject, body)
}

// Enabled reports whether an SMTP host is configured.
func Enabled() bool {
	return env.GetEnv("SMTP_HOST", "") != ""
}

func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "25")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Debugf("[Mail] SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
	} else {
		log.Infof("[Mail] Email sent to %s via %s", to, addr)
	}
	return err
}

// StatusChangedMessage builds the citizen notification for a status change.
func StatusChangedMessage(name, reportID, from, to string) (string, string) {
	subject := fmt.Sprintf("Complaint %s is now %s", reportID, to)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>the status of your complaint <strong>%s</strong> changed from <em>%s</em> to <em>%s</em>.</p>"+
			"<p>You can track it any time with its report ID.</p>",
		html.EscapeString(name), html.EscapeString(reportID), html.EscapeString(from), html.EscapeString(to),
	)
	return subject, body
}
