package domain

import (
	"time"

	bookingdomain "github.com/safarilabs/travel-payments/internal/booking/domain"
)

// ProviderStatus is the normalized three-way outcome of a provider
// event. Mapping from provider vocabulary happens at the boundary
// (webhook decoder / gateway client), never here.
type ProviderStatus string

const (
	ProviderSuccess ProviderStatus = "success"
	ProviderFailed  ProviderStatus = "failed"
	ProviderOther   ProviderStatus = "other"
)

type IntentKind string

const (
	IntentConfirmationEmail IntentKind = "SendConfirmationEmail"
	IntentFailureEmail      IntentKind = "SendFailureEmail"
)

// Intent is a side effect the caller must execute after the transition
// is durably committed.
type Intent struct {
	Kind      IntentKind
	PaymentID string
}

// Decision is the full result of reconciling one provider event against
// the current stored state, computed under the per-payment lock.
type Decision struct {
	Payment        Payment
	Booking        *bookingdomain.Booking
	Changed        bool
	BookingChanged bool
	Intents        []Intent
}

// ReconcileOutcome is what callers of the engine observe.
type ReconcileOutcome struct {
	PaymentID        string   `json:"payment_id"`
	Status           Status   `json:"payment_status"`
	BookingReference string   `json:"booking_reference"`
	BookingConfirmed bool     `json:"booking_confirmed"`
	Intents          []Intent `json:"-"`
}

// Reconcile applies one normalized provider event to a payment and its
// optionally-present booking. It is a pure function: callers are
// responsible for loading state under mutual exclusion and persisting
// the decision atomically.
//
// Duplicate and out-of-order deliveries are absorbed here: any event
// arriving once the payment has left pending is a no-op with zero
// intents, so the same terminal event delivered via the verify call and
// via the webhook produces exactly one set of side effects between them.
func Reconcile(p Payment, b *bookingdomain.Booking, status ProviderStatus, now time.Time) Decision {
	d := Decision{Payment: p, Booking: b}

	if p.Status.Terminal() {
		return d
	}

	switch status {
	case ProviderSuccess:
		d.Payment.Status = StatusCompleted
		d.Payment.PaymentDate = &now
		d.Payment.UpdatedAt = now
		d.Changed = true
		if b != nil {
			d.BookingChanged = b.Confirm(p.ID, now)
		}
		d.Intents = append(d.Intents, Intent{Kind: IntentConfirmationEmail, PaymentID: p.ID.String()})
	case ProviderFailed:
		d.Payment.Status = StatusFailed
		d.Payment.UpdatedAt = now
		d.Changed = true
		d.Intents = append(d.Intents, Intent{Kind: IntentFailureEmail, PaymentID: p.ID.String()})
	default:
		// pending or unrecognized: re-affirm pending, nothing to do
	}

	return d
}

// Outcome projects the decision into the caller-facing result.
func (d Decision) Outcome() ReconcileOutcome {
	return ReconcileOutcome{
		PaymentID:        d.Payment.ID.String(),
		Status:           d.Payment.Status,
		BookingReference: d.Payment.BookingReference,
		BookingConfirmed: d.BookingChanged,
		Intents:          d.Intents,
	}
}
