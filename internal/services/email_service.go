package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"mathapp/internal/config"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	contextutils "mathapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

// EmailServiceInterface defines the interface for email functionality
type EmailServiceInterface interface {
	SendWelcomeEmail(ctx context.Context, user *models.User) error
	SendPremiumConfirmation(ctx context.Context, user *models.User) error
	SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error
	IsEnabled() bool
}

// EmailService sends transactional mail over SMTP using gomail
type EmailService struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer
}

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "welcome"}}
<p>Bonjour {{.Username}},</p>
<p>Bienvenue ! Ton compte est prêt. Choisis un exercice et commence à gagner des points.</p>
<p><a href="{{.AppURL}}">Commencer à s'entraîner</a></p>
{{end}}

{{define "premium"}}
<p>Bonjour {{.Username}},</p>
<p>Ton accès premium est activé. Tous les exercices sont maintenant débloqués.</p>
<p><a href="{{.AppURL}}">Retourner aux exercices</a></p>
{{end}}
`))

// NewEmailService creates a new EmailService instance. The dialer is only
// configured when email is enabled and an SMTP host is set; otherwise sends
// are logged and skipped.
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &EmailService{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
	}
}

// IsEnabled reports whether the service is configured to actually send
func (e *EmailService) IsEnabled() bool {
	return e.cfg.Email.Enabled && e.dialer != nil
}

// SendWelcomeEmail greets a freshly signed-up user
func (e *EmailService) SendWelcomeEmail(ctx context.Context, user *models.User) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "send_welcome_email", observability.AttributeUserID(user.ID))
	defer observability.FinishSpan(span, &err)

	if !user.Email.Valid || user.Email.String == "" {
		e.logger.Info(ctx, "User has no email address, skipping welcome email", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}

	data := map[string]interface{}{
		"Username": user.Username,
		"AppURL":   e.cfg.Server.AppBaseURL,
	}
	return e.SendEmail(ctx, user.Email.String, "Bienvenue !", "welcome", data)
}

// SendPremiumConfirmation notifies a user their premium access is live
func (e *EmailService) SendPremiumConfirmation(ctx context.Context, user *models.User) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "send_premium_confirmation", observability.AttributeUserID(user.ID))
	defer observability.FinishSpan(span, &err)

	if !user.Email.Valid || user.Email.String == "" {
		e.logger.Info(ctx, "User has no email address, skipping premium confirmation", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}

	data := map[string]interface{}{
		"Username": user.Username,
		"AppURL":   e.cfg.Server.AppBaseURL,
	}
	return e.SendEmail(ctx, user.Email.String, "Ton accès premium est activé", "premium", data)
}

// SendEmail renders the named template and sends it
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceEmailFunction(ctx, "send_email",
		attribute.String("email.subject", subject),
		attribute.String("email.template", templateName))
	defer observability.FinishSpan(span, &err)

	if !e.IsEnabled() {
		e.logger.Info(ctx, "Email disabled, skipping send", map[string]interface{}{
			"template": templateName,
		})
		return nil
	}

	var body bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&body, templateName, data); err != nil {
		return contextutils.WrapError(err, "failed to render email template")
	}

	m := mail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", e.cfg.Email.SMTP.FromName, e.cfg.Email.SMTP.FromAddress))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body.String())

	if err := e.dialer.DialAndSend(m); err != nil {
		return contextutils.WrapError(err, "failed to send email")
	}

	e.logger.Info(ctx, "Email sent", map[string]interface{}{
		"template": templateName,
	})
	return nil
}
