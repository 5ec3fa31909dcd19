package email

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-auth-starter/internal/logging"
)

type recordingSender struct {
	messages []Message
	err      error
}

func (r *recordingSender) SendEmail(_ context.Context, msg Message) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, msg)
	return nil
}

func TestServiceSendRendersTemplates(t *testing.T) {
	tests := []struct {
		kind        TemplateKind
		subject     string
		wantURL     string
		wantExpires string
	}{
		{
			kind:        TemplateVerifyEmail,
			subject:     "Verify your email",
			wantURL:     "https://app.example.com/verify-email?token=tok-123",
			wantExpires: "24 hours",
		},
		{
			kind:        TemplateResetPassword,
			subject:     "Reset your password",
			wantURL:     "https://app.example.com/reset-password?token=tok-123",
			wantExpires: "24 hours",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			sender := &recordingSender{}
			svc, err := NewService(sender, "https://app.example.com/", "support@example.com")
			require.NoError(t, err)

			err = svc.Send(context.Background(), tt.kind, "ada@example.com", TemplateData{
				Username:  "Ada <script>",
				Email:     "ada@example.com",
				Token:     "tok-123",
				ExpiresIn: 24 * time.Hour,
			})
			require.NoError(t, err)
			require.Len(t, sender.messages, 1)

			msg := sender.messages[0]
			assert.Equal(t, "ada@example.com", msg.To)
			assert.Equal(t, tt.subject, msg.Subject)
			assert.Equal(t, string(tt.kind), msg.Tag)
			assert.Contains(t, msg.HTMLBody, tt.wantURL)
			assert.Contains(t, msg.HTMLBody, tt.wantExpires)
			assert.Contains(t, msg.HTMLBody, "Hello, Ada &lt;script&gt;")
			assert.NotContains(t, msg.HTMLBody, "<script>")
		})
	}
}

func TestServiceSendErrors(t *testing.T) {
	sendErr := errors.New("smtp down")
	svc, err := NewService(&recordingSender{err: sendErr}, "https://app.example.com", "")
	require.NoError(t, err)

	err = svc.Send(context.Background(), TemplateVerifyEmail, "ada@example.com", TemplateData{Token: "t"})
	assert.ErrorIs(t, err, sendErr)

	err = svc.Send(context.Background(), TemplateKind("newsletter"), "ada@example.com", TemplateData{})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestActionURLEscapesToken(t *testing.T) {
	svc, err := NewService(&recordingSender{}, "https://app.example.com", "")
	require.NoError(t, err)

	got, err := svc.ActionURL(TemplateResetPassword, "a+b/c=")
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/reset-password?token=a%2Bb%2Fc%3D", got)
}

func TestHumanizeDuration(t *testing.T) {
	assert.Equal(t, "24 hours", humanizeDuration(24*time.Hour))
	assert.Equal(t, "1 hour", humanizeDuration(time.Hour))
	assert.Equal(t, "90 minutes", humanizeDuration(90*time.Minute))
	assert.Equal(t, "10 minutes", humanizeDuration(10*time.Minute))
	assert.Equal(t, "30 seconds", humanizeDuration(30*time.Second))
}

func TestMessageValidate(t *testing.T) {
	valid := Message{To: "ada@example.com", Subject: "Hi", HTMLBody: "<p>hi</p>"}
	assert.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(m *Message){
		"no recipient":  func(m *Message) { m.To = "" },
		"bad recipient": func(m *Message) { m.To = "not-an-email" },
		"no subject":    func(m *Message) { m.Subject = " " },
		"no body":       func(m *Message) { m.HTMLBody = "" },
	} {
		t.Run(name, func(t *testing.T) {
			msg := valid
			mutate(&msg)
			assert.ErrorIs(t, msg.Validate(), ErrInvalidMessage)
		})
	}
}

func TestNewPostmarkSenderConfig(t *testing.T) {
	_, err := NewPostmarkSender("server", "account", "sender@example.com", "support@example.com")
	require.NoError(t, err)

	tests := []struct {
		name                            string
		server, account, sender, support string
		wantMsg                         string
	}{
		{name: "no server token", account: "a", sender: "s@example.com", wantMsg: "server token"},
		{name: "no account token", server: "s", sender: "s@example.com", wantMsg: "account token"},
		{name: "bad sender", server: "s", account: "a", sender: "nope", wantMsg: "sender email"},
		{name: "bad support", server: "s", account: "a", sender: "s@example.com", support: "nope", wantMsg: "support email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewPostmarkSender(tt.server, tt.account, tt.sender, tt.support)
			assert.Nil(t, sender)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSMTPSender(t *testing.T) {
	sender, err := NewSMTPSender("smtp.example.com", "587", "mailer@example.com", "secret", "")
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	sender.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err = sender.SendEmail(context.Background(), Message{To: "ada@example.com", Subject: "Réinitialiser", HTMLBody: "<p>hi</p>"})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "mailer@example.com", gotFrom)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: =?utf-8?q?")
	assert.Contains(t, string(gotMsg), "Content-Type: text/html; charset=UTF-8")
	assert.True(t, strings.HasSuffix(string(gotMsg), "<p>hi</p>\r\n"))

	sender.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 try later") }
	err = sender.SendEmail(context.Background(), Message{To: "ada@example.com", Subject: "x", HTMLBody: "y"})
	assert.ErrorIs(t, err, ErrSendFailed)

	_, err = NewSMTPSender("", "25", "", "", "a@example.com")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(&logging.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))})

	msg := Message{To: "ada@example.com", Subject: "Verify", HTMLBody: `<a href="https://app.example.com/verify-email?token=secret-token">`}
	require.NoError(t, sender.SendEmail(context.Background(), msg))
	assert.Contains(t, buf.String(), `"to":"ada@example.com"`)
	assert.Contains(t, buf.String(), `"subject":"Verify"`)
	assert.NotContains(t, buf.String(), "secret-token")

	var debugBuf bytes.Buffer
	debugSender := NewLogSender(&logging.Logger{Logger: slog.New(slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))})
	require.NoError(t, debugSender.SendEmail(context.Background(), msg))
	assert.Contains(t, debugBuf.String(), "secret-token")

	assert.ErrorIs(t, sender.SendEmail(context.Background(), Message{}), ErrInvalidMessage)
}
