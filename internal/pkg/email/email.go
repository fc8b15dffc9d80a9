package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/calculation"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxRetries = 3

// EmailService sends calculation run summaries. It also serves as the run
// notifier of the calculation service.
type EmailService interface {
	SendRunSummary(ctx context.Context, to []string, run calculation.Run) error
	NotifyRunFinished(ctx context.Context, run calculation.Run) error
}

type emailServiceImpl struct {
	cfg       config.SMTPConfig
	templates *template.Template
	send      func(ctx context.Context, msg *mail.Msg) error
}

func NewEmailService(cfg config.SMTPConfig) (EmailService, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	s := &emailServiceImpl{
		cfg:       cfg,
		templates: tmpl,
	}
	s.send = s.dialAndSend
	return s, nil
}

type runSummaryData struct {
	RunID     string
	Status    calculation.RunStatus
	DateFrom  string
	DateTo    string
	External  bool
	Processed int
	Total     int
	Message   string
	LogsLink  string
}

// SendRunSummary mails the outcome of a calculation run.
func (s *emailServiceImpl) SendRunSummary(ctx context.Context, to []string, run calculation.Run) error {
	data := runSummaryData{
		RunID:     run.ID,
		Status:    run.Status,
		DateFrom:  run.DateFrom.Format("2006-01-02"),
		DateTo:    run.DateTo.Format("2006-01-02"),
		External:  run.ImportFromExternal,
		Processed: run.ProcessedCount,
		Total:     run.TotalCount,
		Message:   run.Message,
	}
	if s.cfg.AppURL != "" {
		data.LogsLink = fmt.Sprintf("%s/api/v1/attendance-calculations/%s/logs", s.cfg.AppURL, run.ID)
	}

	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "run_summary.html", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	subject := fmt.Sprintf("Attendance calculation %s: %s to %s", run.Status, data.DateFrom, data.DateTo)
	return s.sendHTML(ctx, to, subject, body.String())
}

// NotifyRunFinished sends the run summary to the configured recipients.
func (s *emailServiceImpl) NotifyRunFinished(ctx context.Context, run calculation.Run) error {
	if len(s.cfg.Recipients) == 0 {
		return nil
	}
	return s.SendRunSummary(ctx, s.cfg.Recipients, run)
}

func (s *emailServiceImpl) sendHTML(ctx context.Context, to []string, subject, htmlBody string) error {
	if s.cfg.Host == "" {
		slog.Warn("SMTP not configured, skipping email send", "to", to, "subject", subject)
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.send(ctx, msg)
		if err == nil {
			slog.Info("Email sent successfully", "to", to, "subject", subject, "attempt", attempt)
			return nil
		}

		lastErr = err
		slog.Error("Failed to send email",
			"to", to,
			"subject", subject,
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", err,
		)

		// Exponential backoff: 1s, 2s.
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<(attempt-1)) * time.Second):
			}
		}
	}

	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}

func (s *emailServiceImpl) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
