package notification

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/safarilabs/travel-payments/internal/payment/domain"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Mailer struct {
	log    *slog.Logger
	dialer *gomail.Dialer
	from   string
}

func NewMailer(log *slog.Logger, cfg SMTPConfig) *Mailer {
	if cfg.From == "" {
		cfg.From = "noreply@travelapp.com"
	}
	return &Mailer{
		log:    log,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (m *Mailer) Send(ev domain.EmailNotification) error {
	var subject, body string
	switch ev.Kind {
	case domain.IntentConfirmationEmail:
		subject = fmt.Sprintf("Payment Confirmation - Booking %s", ev.BookingReference)
		body = confirmationBody(ev)
	case domain.IntentFailureEmail:
		subject = fmt.Sprintf("Payment Failed - Booking %s", ev.BookingReference)
		body = failureBody(ev)
	default:
		return fmt.Errorf("unknown notification kind %q", ev.Kind)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", ev.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", ev.Kind, ev.Email, err)
	}
	m.log.Info("notification sent", "kind", ev.Kind, "payment_id", ev.PaymentID, "to", ev.Email)
	return nil
}

func confirmationBody(ev domain.EmailNotification) string {
	paidAt := ""
	if ev.PaymentDate != nil {
		paidAt = ev.PaymentDate.Format(time.RFC1123)
	}
	return fmt.Sprintf(`Dear %s,

Your payment has been successfully processed!

Payment Details:
- Booking Reference: %s
- Amount: %s %s
- Transaction ID: %s
- Payment Date: %s

Thank you for choosing our travel services!

Best regards,
Travel App Team
`, ev.FirstName, ev.BookingReference, ev.Currency, ev.Amount, ev.TransactionRef, paidAt)
}

func failureBody(ev domain.EmailNotification) string {
	return fmt.Sprintf(`Dear %s,

Unfortunately, your payment could not be processed.

Payment Details:
- Booking Reference: %s
- Amount: %s %s
- Transaction ID: %s

Please try again or contact our support team for assistance.

Best regards,
Travel App Team
`, ev.FirstName, ev.BookingReference, ev.Currency, ev.Amount, ev.TransactionRef)
}
