package domain

import "time"

// EmailNotification is the payload published for each email intent. The
// notification worker composes the message from it without reading the
// payments table.
type EmailNotification struct {
	Kind             IntentKind `json:"kind"`
	PaymentID        string     `json:"payment_id"`
	BookingReference string     `json:"booking_reference"`
	Amount           string     `json:"amount"`
	Currency         string     `json:"currency"`
	Email            string     `json:"email"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	TransactionRef   string     `json:"transaction_ref"`
	PaymentDate      *time.Time `json:"payment_date,omitempty"`
}

func NewEmailNotification(kind IntentKind, p Payment) EmailNotification {
	return EmailNotification{
		Kind:             kind,
		PaymentID:        p.ID.String(),
		BookingReference: p.BookingReference,
		Amount:           p.Amount.StringFixed(2),
		Currency:         p.Currency,
		Email:            p.Payer.Email,
		FirstName:        p.Payer.FirstName,
		LastName:         p.Payer.LastName,
		TransactionRef:   p.TransactionRef,
		PaymentDate:      p.PaymentDate,
	}
}
