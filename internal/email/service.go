package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/redmonkez12/go-auth-starter/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateKind identifies a transactional email
type TemplateKind string

const (
	TemplateVerifyEmail   TemplateKind = "verify-email"
	TemplateResetPassword TemplateKind = "reset-password"
)

// TemplateData is the payload rendered into every template
type TemplateData struct {
	Username  string
	Email     string
	Token     string
	ExpiresIn time.Duration
}

type templateSpec struct {
	file    string
	subject string
	path    string
}

var templates = map[TemplateKind]templateSpec{
	TemplateVerifyEmail:   {file: "verify_email.html", subject: "Verify your email", path: "/verify-email"},
	TemplateResetPassword: {file: "reset_password.html", subject: "Reset your password", path: "/reset-password"},
}

// Service renders templates and hands them to a Sender
type Service struct {
	sender       Sender
	frontendURL  string
	supportEmail string
	tmpl         *template.Template
}

func NewService(sender Sender, frontendURL, supportEmail string) (*Service, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"duration": humanizeDuration,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	return &Service{
		sender:       sender,
		frontendURL:  strings.TrimRight(frontendURL, "/"),
		supportEmail: supportEmail,
		tmpl:         tmpl,
	}, nil
}

// Send renders the template of the given kind and submits it.
// Success means the transport accepted the message, not that it was delivered.
func (s *Service) Send(ctx context.Context, kind TemplateKind, to string, data TemplateData) error {
	logger := logging.GetLoggerFromContext(ctx)

	tpl, ok := templates[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTemplate, kind)
	}

	actionURL, err := s.ActionURL(kind, data.Token)
	if err != nil {
		return err
	}

	body, err := s.render(tpl, actionURL, data)
	if err != nil {
		logger.Error("failed to render email template", "template", kind, "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	err = s.sender.SendEmail(ctx, Message{
		To:       to,
		Subject:  tpl.subject,
		HTMLBody: body,
		Tag:      string(kind),
	})
	if err != nil {
		return err
	}

	logger.Info("email sent", "template", kind)
	return nil
}

// ActionURL is the frontend link carrying the token
func (s *Service) ActionURL(kind TemplateKind, token string) (string, error) {
	tpl, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, kind)
	}
	return s.frontendURL + tpl.path + "?" + url.Values{"token": {token}}.Encode(), nil
}

func (s *Service) render(tpl templateSpec, actionURL string, data TemplateData) (string, error) {
	view := struct {
		TemplateData
		ActionURL    string
		SupportEmail string
		Year         int
	}{
		TemplateData: data,
		ActionURL:    actionURL,
		SupportEmail: s.supportEmail,
		Year:         time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, tpl.file, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
