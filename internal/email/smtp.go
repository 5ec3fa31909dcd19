package email

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
)

// SMTPSender sends through a plain SMTP relay with PLAIN auth
type SMTPSender struct {
	host      string
	port      string
	user      string
	password  string
	fromEmail string
	send      func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host, port, user, password, fromEmail string) (*SMTPSender, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: smtp host is required", ErrInvalidConfig)
	}
	if fromEmail == "" {
		fromEmail = user
	}
	if !validAddress(fromEmail) {
		return nil, fmt.Errorf("%w: sender email must be a valid email address", ErrInvalidConfig)
	}

	return &SMTPSender{
		host:      host,
		port:      port,
		user:      user,
		password:  password,
		fromEmail: fromEmail,
		send:      smtp.SendMail,
	}, nil
}

func (s *SMTPSender) SendEmail(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}

	addr := net.JoinHostPort(s.host, s.port)
	if err := s.send(addr, auth, s.fromEmail, []string{msg.To}, s.buildMessage(msg)); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(msg Message) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, msg.To, mime.QEncoding.Encode("utf-8", msg.Subject), msg.HTMLBody,
	))
}
