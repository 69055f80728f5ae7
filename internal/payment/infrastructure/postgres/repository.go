package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	bookingdomain "github.com/safarilabs/travel-payments/internal/booking/domain"
	"github.com/safarilabs/travel-payments/internal/payment/application"
	"github.com/safarilabs/travel-payments/internal/payment/domain"
)

const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const paymentColumns = `id, booking_reference, amount, currency, status, transaction_ref, provider_ref, checkout_url, payer_email, payer_first_name, payer_last_name, payment_date, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, p domain.Payment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.BookingReference, p.Amount, p.Currency, p.Status, p.TransactionRef, p.ProviderRef,
		p.CheckoutURL, p.Payer.Email, p.Payer.FirstName, p.Payer.LastName, p.PaymentDate, p.CreatedAt, p.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("booking %s: %w", p.BookingReference, domain.ErrDuplicateBooking)
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	return r.scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
}

func (r *Repository) GetByTransactionRef(ctx context.Context, txRef string) (domain.Payment, error) {
	return r.scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_ref=$1`, txRef))
}

func (r *Repository) ListByEmail(ctx context.Context, email string) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payer_email=$1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ApplyReconcile runs the decide-then-mutate sequence as one
// transaction. The payment row (and booking row, when present) is
// locked with FOR UPDATE, so the verify call and the webhook racing on
// the same transaction serialize here: the second arrival observes the
// already-terminal status and decides a no-op. Outbox rows for the
// emitted intents commit atomically with the transition, never before.
func (r *Repository) ApplyReconcile(ctx context.Context, txRef, traceparent string, decide application.DecideFunc) (domain.ReconcileOutcome, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.ReconcileOutcome{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	p, err := r.scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_ref=$1 FOR UPDATE`, txRef))
	if err != nil {
		return domain.ReconcileOutcome{}, err
	}

	var b *bookingdomain.Booking
	bk, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_reference=$1 FOR UPDATE`, p.BookingReference))
	switch {
	case err == nil:
		b = &bk
	case errors.Is(err, pgx.ErrNoRows):
		// booking may not exist yet; the payment still transitions
	default:
		return domain.ReconcileOutcome{}, err
	}

	d := decide(p, b)

	if d.Changed {
		_, err = tx.Exec(ctx, `UPDATE payments SET status=$2, payment_date=$3, updated_at=$4 WHERE id=$1`,
			d.Payment.ID, d.Payment.Status, d.Payment.PaymentDate, d.Payment.UpdatedAt)
		if err != nil {
			return domain.ReconcileOutcome{}, err
		}
	}
	if d.BookingChanged {
		_, err = tx.Exec(ctx, `UPDATE bookings SET status=$2, payment_id=$3, updated_at=$4 WHERE id=$1`,
			d.Booking.ID, d.Booking.Status, d.Booking.PaymentID, d.Booking.UpdatedAt)
		if err != nil {
			return domain.ReconcileOutcome{}, err
		}
	}

	for _, intent := range d.Intents {
		payload, err := json.Marshal(domain.NewEmailNotification(intent.Kind, d.Payment))
		if err != nil {
			return domain.ReconcileOutcome{}, err
		}
		headers := map[string]string{"source": "payment-service"}
		_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
			VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
			"payment", intent.PaymentID, string(intent.Kind), payload, headers, traceparent)
		if err != nil {
			return domain.ReconcileOutcome{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ReconcileOutcome{}, err
	}
	return d.Outcome(), nil
}

func (r *Repository) scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	var providerRef, checkoutURL *string
	var paymentDate *time.Time
	err := row.Scan(&p.ID, &p.BookingReference, &p.Amount, &p.Currency, &p.Status, &p.TransactionRef,
		&providerRef, &checkoutURL, &p.Payer.Email, &p.Payer.FirstName, &p.Payer.LastName,
		&paymentDate, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Payment{}, err
	}
	if providerRef != nil {
		p.ProviderRef = *providerRef
	}
	if checkoutURL != nil {
		p.CheckoutURL = *checkoutURL
	}
	p.PaymentDate = paymentDate
	return p, nil
}
