package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safarilabs/travel-payments/internal/booking/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const bookingColumns = `id, booking_reference, destination, travel_date, return_date, travelers, total_amount, status, payment_id, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, b domain.Booking) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		b.ID, b.Reference, b.Destination, b.TravelDate, b.ReturnDate, b.Travelers,
		b.TotalAmount, b.Status, b.PaymentID, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (domain.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_reference=$1`, reference))
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	var returnDate *time.Time
	var paymentID *uuid.UUID
	err := row.Scan(&b.ID, &b.Reference, &b.Destination, &b.TravelDate, &returnDate, &b.Travelers,
		&b.TotalAmount, &b.Status, &paymentID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, err
	}
	b.ReturnDate = returnDate
	b.PaymentID = paymentID
	return b, nil
}
