package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends email via unauthenticated SMTP (Mailpit-compatible).
type SMTPSender struct {
	addr string
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host, port, from string) *SMTPSender {
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@autobook.local"
	}
	return &SMTPSender{
		addr: strings.TrimSpace(host) + ":" + strings.TrimSpace(port),
		from: from,
		send: smtp.SendMail,
	}
}

// Send ignores ctx: net/smtp has no context support. The dispatcher bounds
// the whole fan-out instead.
func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	return s.send(s.addr, nil, s.from, []string{to}, buildMessage(s.from, to, subject, body))
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from, to, subject, strings.ReplaceAll(body, "\n", "\r\n"),
	))
}
