package email

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
)

// Sender submits a rendered message to a transport
type Sender interface {
	SendEmail(ctx context.Context, msg Message) error
}

// Message is a rendered transactional email
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	// Tag groups messages in provider analytics
	Tag string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient is not a valid address", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.HTMLBody) == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

func validAddress(addr string) bool {
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr
}
