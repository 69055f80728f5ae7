package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether provider events may still move the payment.
// Everything except pending is closed to provider events; cancelled is
// only ever set outside the reconciliation path.
func (s Status) Terminal() bool {
	return s != StatusPending
}

type Payer struct {
	Email     string
	FirstName string
	LastName  string
}

type Payment struct {
	ID               uuid.UUID
	BookingReference string
	Amount           decimal.Decimal
	Currency         string
	Status           Status
	TransactionRef   string
	ProviderRef      string
	CheckoutURL      string
	Payer            Payer
	PaymentDate      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewPayment(bookingRef string, amount decimal.Decimal, currency string, payer Payer, txRef, providerRef, checkoutURL string) Payment {
	now := time.Now().UTC()
	return Payment{
		ID:               uuid.New(),
		BookingReference: bookingRef,
		Amount:           amount,
		Currency:         currency,
		Status:           StatusPending,
		TransactionRef:   txRef,
		ProviderRef:      providerRef,
		CheckoutURL:      checkoutURL,
		Payer:            payer,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// NewTransactionRef builds the correlation key sent to the provider at
// initialization, e.g. TX_BK3F2A91CD_1714070000.
func NewTransactionRef(bookingRef string, now time.Time) string {
	return fmt.Sprintf("TX_%s_%d", bookingRef, now.Unix())
}
