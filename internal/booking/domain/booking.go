package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Booking struct {
	ID          uuid.UUID
	Reference   string
	Destination string
	TravelDate  time.Time
	ReturnDate  *time.Time
	Travelers   int
	TotalAmount decimal.Decimal
	Status      Status
	PaymentID   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(reference, destination string, travelDate time.Time, returnDate *time.Time, travelers int, total decimal.Decimal) Booking {
	if reference == "" {
		reference = NewReference()
	}
	now := time.Now().UTC()
	return Booking{
		ID:          uuid.New(),
		Reference:   reference,
		Destination: destination,
		TravelDate:  travelDate,
		ReturnDate:  returnDate,
		Travelers:   travelers,
		TotalAmount: total,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewReference generates a human-facing booking reference, e.g. BK3F2A91CD.
func NewReference() string {
	return fmt.Sprintf("BK%s", strings.ToUpper(uuid.New().String()[:8]))
}

// Confirm marks the booking confirmed and links the payment that paid
// for it. Reports whether anything changed; reapplying is a no-op.
func (b *Booking) Confirm(paymentID uuid.UUID, now time.Time) bool {
	if b.Status == StatusConfirmed && b.PaymentID != nil && *b.PaymentID == paymentID {
		return false
	}
	if b.Status == StatusCancelled {
		return false
	}
	b.Status = StatusConfirmed
	b.PaymentID = &paymentID
	b.UpdatedAt = now
	return true
}
