package accounts

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
)

// Notifier renders and dispatches the account emails. The rendered links
// point at the frontend, which relays uid and token back to the API.
type Notifier struct {
	config Config
	mail   Mailer
	engine *django.Engine
	logger Logger
}

func NewNotifier(config Config, mail Mailer) (*Notifier, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to scope email templates")
	}

	engine := django.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	return &Notifier{
		config: config,
		mail:   mail,
		engine: engine,
		logger: defLogger{},
	}, nil
}

func (n *Notifier) WithLogger(logger Logger) *Notifier {
	if logger != nil {
		n.logger = logger
	}
	return n
}

func (n *Notifier) SendVerificationEmail(ctx context.Context, user *User, uid, token string) error {
	subject := fmt.Sprintf("[%s]: Verify Your Email", n.config.GetSiteName())
	return n.send(ctx, user, "emails/verify_email", subject, uid, token)
}

func (n *Notifier) SendPasswordResetEmail(ctx context.Context, user *User, uid, token string) error {
	subject := fmt.Sprintf("[%s]: Reset Your Password", n.config.GetSiteName())
	return n.send(ctx, user, "emails/reset_password", subject, uid, token)
}

func (n *Notifier) send(ctx context.Context, user *User, template, subject, uid, token string) error {
	var buf bytes.Buffer
	err := n.engine.Render(&buf, template, map[string]any{
		"first_name":    user.FirstName,
		"site_name":     n.config.GetSiteName(),
		"domain":        n.config.GetDomain(),
		"contact_email": n.config.GetContactEmail(),
		"uid":           uid,
		"token":         token,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template").
			WithMetadata(map[string]any{"template": template})
	}

	return n.mail.Send(ctx, Email{
		To:      user.Email,
		Subject: subject,
		HTML:    buf.String(),
	})
}

// LogMailer writes outgoing mail to the logger instead of the network. It is
// the default for local development and tests.
type LogMailer struct {
	logger Logger
}

func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	m.logger.Info("outgoing email", "to", email.To, "subject", email.Subject)
	m.logger.Debug("email body", "html", email.HTML)
	return nil
}
