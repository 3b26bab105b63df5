// Package email is the mail-relay boundary. The core only needs "send this
// OTP to this address"; transport details stay behind the Mailer interface.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"time"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer delivers through a plain SMTP relay.
type SMTPMailer struct {
	addr string // host:port
	auth smtp.Auth
	from string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: host + ":" + port,
		auth: auth,
		from: from,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.from, to, subject, body)
	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg))
}

// OTPMessage renders the verification mail body.
func OTPMessage(code string, ttl time.Duration) (subject, body string) {
	subject = "Your JobNest verification code"
	body = fmt.Sprintf(
		"Thank you for signing up with JobNest.\n\n"+
			"Your one-time verification code is: %s\n\n"+
			"The code expires in %d minutes. If you did not request this, please ignore this email.\n",
		code, int(ttl.Minutes()))
	return subject, body
}
