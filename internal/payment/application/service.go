package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	bookingdomain "github.com/safarilabs/travel-payments/internal/booking/domain"
	"github.com/safarilabs/travel-payments/internal/payment/domain"
)

type Service struct {
	log      *slog.Logger
	payments PaymentRepository
	gateway  ProviderGateway
	now      func() time.Time
}

func NewService(log *slog.Logger, payments PaymentRepository, gateway ProviderGateway) *Service {
	return &Service{
		log:      log,
		payments: payments,
		gateway:  gateway,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type InitiateRequest struct {
	BookingReference string
	Amount           decimal.Decimal
	Currency         string
	Email            string
	FirstName        string
	LastName         string
}

type InitiateResult struct {
	PaymentID      uuid.UUID
	TransactionRef string
	ProviderRef    string
	CheckoutURL    string
}

// Initiate opens a checkout session with the provider and records the
// pending payment. The record is written only after the gateway call
// succeeds, so a gateway failure leaves nothing behind.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	if err := req.validate(); err != nil {
		return InitiateResult{}, err
	}

	txRef := domain.NewTransactionRef(req.BookingReference, s.now())
	session, err := s.gateway.Initialize(ctx, CheckoutRequest{
		TransactionRef:   txRef,
		BookingReference: req.BookingReference,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Email:            req.Email,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
	})
	if err != nil {
		return InitiateResult{}, fmt.Errorf("initialize checkout: %w", err)
	}

	p := domain.NewPayment(req.BookingReference, req.Amount, req.Currency, domain.Payer{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, txRef, session.ProviderRef, session.CheckoutURL)

	if err := s.payments.Create(ctx, p); err != nil {
		return InitiateResult{}, err
	}

	s.log.Info("payment initiated", "payment_id", p.ID, "booking_reference", p.BookingReference, "transaction_ref", txRef)
	return InitiateResult{
		PaymentID:      p.ID,
		TransactionRef: txRef,
		ProviderRef:    session.ProviderRef,
		CheckoutURL:    session.CheckoutURL,
	}, nil
}

func (r InitiateRequest) validate() error {
	switch {
	case r.BookingReference == "":
		return fmt.Errorf("booking_reference is required: %w", domain.ErrValidation)
	case !r.Amount.IsPositive():
		return fmt.Errorf("amount must be positive: %w", domain.ErrValidation)
	case len(r.Currency) != 3:
		return fmt.Errorf("currency must be a 3-letter code: %w", domain.ErrValidation)
	case r.Email == "":
		return fmt.Errorf("email is required: %w", domain.ErrValidation)
	case r.FirstName == "" || r.LastName == "":
		return fmt.Errorf("first_name and last_name are required: %w", domain.ErrValidation)
	}
	return nil
}

// Verify re-queries the provider for the transaction's authoritative
// status and feeds it through the reconciliation engine. This is the
// synchronous entry point; it races the webhook for the same
// transaction and the engine absorbs whichever arrives second.
func (s *Service) Verify(ctx context.Context, txRef, traceparent string) (domain.ReconcileOutcome, error) {
	if _, err := s.payments.GetByTransactionRef(ctx, txRef); err != nil {
		return domain.ReconcileOutcome{}, err
	}

	status, err := s.gateway.Verify(ctx, txRef)
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("verify transaction %s: %w", txRef, err)
	}

	return s.Reconcile(ctx, txRef, status, traceparent)
}

// Reconcile applies one normalized provider event to the stored state.
// Both entry points (verify and webhook) funnel through here.
func (s *Service) Reconcile(ctx context.Context, txRef string, status domain.ProviderStatus, traceparent string) (domain.ReconcileOutcome, error) {
	now := s.now()
	outcome, err := s.payments.ApplyReconcile(ctx, txRef, traceparent, func(p domain.Payment, b *bookingdomain.Booking) domain.Decision {
		return domain.Reconcile(p, b, status, now)
	})
	if err != nil {
		return domain.ReconcileOutcome{}, err
	}

	s.log.Info("payment reconciled",
		"transaction_ref", txRef,
		"provider_status", status,
		"payment_status", outcome.Status,
		"intents", len(outcome.Intents),
	)
	return outcome, nil
}

func (s *Service) Status(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	return s.payments.Get(ctx, id)
}

func (s *Service) PaymentsByEmail(ctx context.Context, email string) ([]domain.Payment, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrValidation)
	}
	return s.payments.ListByEmail(ctx, email)
}
