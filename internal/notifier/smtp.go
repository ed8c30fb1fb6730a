package notifier

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/user/paywatch/internal/domain"
)

// Config carries the mail-relay connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// sender is satisfied by *gomail.Dialer; tests substitute a capture stub.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP sends one HTML alert email per failure through an authenticated
// mail-relay session.
type SMTP struct {
	config Config
	sender sender
	logger *zap.Logger
}

func NewSMTP(cfg Config, logger *zap.Logger) *SMTP {
	return &SMTP{
		config: cfg,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

var alertTemplate = template.Must(template.New("alert").Parse(`<html>
<body>
  <h2>Payment failure detected</h2>
  <table border="1" cellpadding="6" cellspacing="0">
    <tr><td><b>Payment ID</b></td><td class="payment-id">{{.ID}}</td></tr>
    <tr><td><b>Customer</b></td><td class="customer">{{.CustomerID}}</td></tr>
    <tr><td><b>Email</b></td><td class="email">{{.Email}}</td></tr>
    <tr><td><b>Amount</b></td><td class="amount">{{.AmountWithCurrency}}</td></tr>
    <tr><td><b>Reason</b></td><td class="reason">{{.FailureReason}}</td></tr>
    <tr><td><b>Date</b></td><td class="date">{{.ObservedAt.Format "2006-01-02 15:04:05 MST"}}</td></tr>
  </table>
</body>
</html>`))

// Notify formats and sends the alert. Any dial, auth, or send error is
// returned to the caller; there is no retry.
func (s *SMTP) Notify(ctx context.Context, rec domain.FailureRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := renderAlertBody(rec)
	if err != nil {
		return fmt.Errorf("render alert: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", s.config.To)
	m.SetHeader("Subject", fmt.Sprintf("[ALERT] Payment failure: %s", rec.ID))
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@paywatch>", uuid.NewString()))
	m.SetBody("text/html", body)

	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error("alert email failed", zap.String("payment_id", rec.ID), zap.Error(err))
		return fmt.Errorf("mail relay: %w", err)
	}

	s.logger.Info("alert email sent", zap.String("payment_id", rec.ID), zap.String("to", s.config.To))
	return nil
}

func renderAlertBody(rec domain.FailureRecord) (string, error) {
	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, rec); err != nil {
		return "", err
	}
	return buf.String(), nil
}
