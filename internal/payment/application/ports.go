package application

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	bookingdomain "github.com/safarilabs/travel-payments/internal/booking/domain"
	"github.com/safarilabs/travel-payments/internal/payment/domain"
)

// DecideFunc computes the transition for a payment loaded under the
// repository's per-payment lock. The booking is nil when no booking
// with the payment's reference exists.
type DecideFunc func(p domain.Payment, b *bookingdomain.Booking) domain.Decision

type PaymentRepository interface {
	// Create persists a new pending payment. Returns
	// domain.ErrDuplicateBooking when an active payment already exists
	// for the booking reference.
	Create(ctx context.Context, p domain.Payment) error
	Get(ctx context.Context, id uuid.UUID) (domain.Payment, error)
	GetByTransactionRef(ctx context.Context, txRef string) (domain.Payment, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Payment, error)
	// ApplyReconcile loads the payment (and booking, if any) for txRef
	// under mutual exclusion, applies decide, and persists the decision
	// atomically together with outbox events for each emitted intent.
	// Returns domain.ErrNotFound when txRef matches no payment.
	ApplyReconcile(ctx context.Context, txRef, traceparent string, decide DecideFunc) (domain.ReconcileOutcome, error)
}

type CheckoutRequest struct {
	TransactionRef   string
	BookingReference string
	Amount           decimal.Decimal
	Currency         string
	Email            string
	FirstName        string
	LastName         string
}

type CheckoutSession struct {
	ProviderRef string
	CheckoutURL string
}

// ProviderGateway is the payment provider's REST API: initialize a
// checkout session, or re-query the authoritative status of one.
type ProviderGateway interface {
	Initialize(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	Verify(ctx context.Context, txRef string) (domain.ProviderStatus, error)
}
