package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingdomain "github.com/safarilabs/travel-payments/internal/booking/domain"
	"github.com/safarilabs/travel-payments/internal/payment/domain"
	"github.com/safarilabs/travel-payments/pkg/logging"
)

// memoryLedger implements PaymentRepository with the same contract as
// the Postgres repository: unique booking reference on Create, and
// decide-then-persist under a per-payment lock in ApplyReconcile.
type memoryLedger struct {
	mu       sync.Mutex
	payments map[string]domain.Payment // keyed by transaction ref
	bookings map[string]*bookingdomain.Booking
	locks    map[string]*sync.Mutex
	outbox   []domain.Intent
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		payments: make(map[string]domain.Payment),
		bookings: make(map[string]*bookingdomain.Booking),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *memoryLedger) Create(_ context.Context, p domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.BookingReference == p.BookingReference {
			return fmt.Errorf("booking %s: %w", p.BookingReference, domain.ErrDuplicateBooking)
		}
	}
	m.payments[p.TransactionRef] = p
	return nil
}

func (m *memoryLedger) Get(_ context.Context, id uuid.UUID) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Payment{}, domain.ErrNotFound
}

func (m *memoryLedger) GetByTransactionRef(_ context.Context, txRef string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memoryLedger) ListByEmail(_ context.Context, email string) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, p := range m.payments {
		if p.Payer.Email == email {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryLedger) ApplyReconcile(_ context.Context, txRef, _ string, decide DecideFunc) (domain.ReconcileOutcome, error) {
	m.mu.Lock()
	lock, ok := m.locks[txRef]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[txRef] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	p, ok := m.payments[txRef]
	b := m.bookings[p.BookingReference]
	m.mu.Unlock()
	if !ok {
		return domain.ReconcileOutcome{}, domain.ErrNotFound
	}

	d := decide(p, b)

	m.mu.Lock()
	defer m.mu.Unlock()
	if d.Changed {
		m.payments[txRef] = d.Payment
	}
	m.outbox = append(m.outbox, d.Intents...)
	return d.Outcome(), nil
}

func (m *memoryLedger) addBooking(b bookingdomain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.Reference] = &b
}

func (m *memoryLedger) intents() []domain.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Intent(nil), m.outbox...)
}

type fakeGateway struct {
	mu          sync.Mutex
	initErr     error
	verifyErr   error
	status      domain.ProviderStatus
	initCalls   int
	verifyCalls int
}

func (g *fakeGateway) Initialize(_ context.Context, req CheckoutRequest) (CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	if g.initErr != nil {
		return CheckoutSession{}, g.initErr
	}
	return CheckoutSession{
		ProviderRef: "chapa-" + req.TransactionRef,
		CheckoutURL: "https://checkout.example/" + req.TransactionRef,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, _ string) (domain.ProviderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return domain.ProviderOther, g.verifyErr
	}
	return g.status, nil
}

func newTestService(t *testing.T) (*Service, *memoryLedger, *fakeGateway) {
	t.Helper()
	ledger := newMemoryLedger()
	gateway := &fakeGateway{status: domain.ProviderSuccess}
	return NewService(logging.New(), ledger, gateway), ledger, gateway
}

func validInitiate() InitiateRequest {
	return InitiateRequest{
		BookingReference: "BK1",
		Amount:           decimal.NewFromFloat(50000.00),
		Currency:         "NGN",
		Email:            "ada@example.com",
		FirstName:        "Ada",
		LastName:         "Obi",
	}
}

func TestInitiateCreatesPendingPayment(t *testing.T) {
	svc, ledger, _ := newTestService(t)

	res, err := svc.Initiate(context.Background(), validInitiate())
	require.NoError(t, err)
	assert.NotEmpty(t, res.CheckoutURL)
	assert.Contains(t, res.TransactionRef, "TX_BK1_")

	p, err := ledger.GetByTransactionRef(context.Background(), res.TransactionRef)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, p.Status)
	assert.Nil(t, p.PaymentDate)
}

func TestInitiateValidation(t *testing.T) {
	svc, _, gateway := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*InitiateRequest)
	}{
		{"missing booking reference", func(r *InitiateRequest) { r.BookingReference = "" }},
		{"zero amount", func(r *InitiateRequest) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *InitiateRequest) { r.Amount = decimal.NewFromInt(-5) }},
		{"bad currency", func(r *InitiateRequest) { r.Currency = "NAIRA" }},
		{"missing email", func(r *InitiateRequest) { r.Email = "" }},
		{"missing name", func(r *InitiateRequest) { r.FirstName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validInitiate()
			tt.mutate(&req)
			_, err := svc.Initiate(context.Background(), req)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	// validation failures never reach the gateway
	assert.Equal(t, 0, gateway.initCalls)
}

func TestInitiateDuplicateBooking(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Initiate(context.Background(), validInitiate())
	require.NoError(t, err)

	_, err = svc.Initiate(context.Background(), validInitiate())
	require.ErrorIs(t, err, domain.ErrDuplicateBooking)
}

func TestInitiateGatewayFailureLeavesNoRecord(t *testing.T) {
	svc, ledger, gateway := newTestService(t)
	gateway.initErr = fmt.Errorf("connect timeout: %w", domain.ErrGateway)

	_, err := svc.Initiate(context.Background(), validInitiate())
	require.ErrorIs(t, err, domain.ErrGateway)

	payments, err := ledger.ListByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestVerifyUnknownTransactionSkipsGateway(t *testing.T) {
	svc, _, gateway := newTestService(t)

	_, err := svc.Verify(context.Background(), "TX_NOPE_1", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, gateway.verifyCalls)
}

func TestVerifyGatewayError(t *testing.T) {
	svc, _, gateway := newTestService(t)
	res, err := svc.Initiate(context.Background(), validInitiate())
	require.NoError(t, err)

	gateway.verifyErr = fmt.Errorf("status 503: %w", domain.ErrGateway)
	_, err = svc.Verify(context.Background(), res.TransactionRef, "")
	require.ErrorIs(t, err, domain.ErrGateway)
}

func TestReconcileUnknownTransaction(t *testing.T) {
	svc, ledger, _ := newTestService(t)

	_, err := svc.Reconcile(context.Background(), "does-not-exist", domain.ProviderSuccess, "")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, ledger.intents())
}

func TestVerifyCompletesPaymentAndConfirmsBooking(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	ledger.addBooking(bookingdomain.New("BK1", "Zanzibar", time.Now().AddDate(0, 1, 0), nil, 2, decimal.NewFromInt(50000)))

	res, err := svc.Initiate(context.Background(), validInitiate())
	require.NoError(t, err)

	outcome, err := svc.Verify(context.Background(), res.TransactionRef, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, outcome.Status)
	assert.True(t, outcome.BookingConfirmed)

	intents := ledger.intents()
	require.Len(t, intents, 1)
	assert.Equal(t, domain.IntentConfirmationEmail, intents[0].Kind)

	b := ledger.bookings["BK1"]
	assert.Equal(t, bookingdomain.StatusConfirmed, b.Status)
}

func TestRepeatedVerifyIsIdempotent(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	res, err := svc.Initiate(context.Background(), validInitiate())
	require.NoError(t, err)

	first, err := svc.Verify(context.Background(), res.TransactionRef, "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, first.Status)

	p, err := ledger.GetByTransactionRef(context.Background(), res.TransactionRef)
	require.NoError(t, err)
	require.NotNil(t, p.PaymentDate)
	firstPaidAt := *p.PaymentDate

	for i := 0; i < 3; i++ {
		outcome, err := svc.Verify(context.Background(), res.TransactionRef, "")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, outcome.Status)
		assert.Empty(t, outcome.Intents)
	}

	p, err = ledger.GetByTransactionRef(context.Background(), res.TransactionRef)
	require.NoError(t, err)
	require.NotNil(t, p.PaymentDate)
	assert.Equal(t, firstPaidAt, *p.PaymentDate)
	assert.Len(t, ledger.intents(), 1)
}

func TestFailedEventAfterCompletionIsIgnored(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	res, err := svc.Initiate(context.Background(), validInitiate())
	require.NoError(t, err)

	_, err = svc.Reconcile(context.Background(), res.TransactionRef, domain.ProviderSuccess, "")
	require.NoError(t, err)

	outcome, err := svc.Reconcile(context.Background(), res.TransactionRef, domain.ProviderFailed, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, outcome.Status)
	assert.Empty(t, outcome.Intents)
	assert.Len(t, ledger.intents(), 1)
}

// The verify call and the webhook race on the same transaction. Exactly
// one of them may perform the transition and emit the confirmation
// intent; the other must observe the terminal state and do nothing.
func TestConcurrentReconcileEmitsExactlyOneIntent(t *testing.T) {
	for round := 0; round < 20; round++ {
		svc, ledger, _ := newTestService(t)
		ledger.addBooking(bookingdomain.New("BK1", "Zanzibar", time.Now().AddDate(0, 1, 0), nil, 2, decimal.NewFromInt(50000)))
		res, err := svc.Initiate(context.Background(), validInitiate())
		require.NoError(t, err)

		var wg sync.WaitGroup
		outcomes := make([]domain.ReconcileOutcome, 2)
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i], errs[i] = svc.Reconcile(context.Background(), res.TransactionRef, domain.ProviderSuccess, "")
			}(i)
		}
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.Equal(t, domain.StatusCompleted, outcomes[0].Status)
		assert.Equal(t, domain.StatusCompleted, outcomes[1].Status)

		emitted := len(outcomes[0].Intents) + len(outcomes[1].Intents)
		assert.Equal(t, 1, emitted, "round %d: exactly one delivery owns the side effects", round)
		assert.Len(t, ledger.intents(), 1)
	}
}

func TestPaymentsByEmailRequiresEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.PaymentsByEmail(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestStatusUnknownPayment(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Status(context.Background(), uuid.New())
	require.True(t, errors.Is(err, domain.ErrNotFound))
}
