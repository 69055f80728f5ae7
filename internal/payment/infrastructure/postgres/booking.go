package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	bookingdomain "github.com/safarilabs/travel-payments/internal/booking/domain"
)

// The reconciliation engine is the only writer of the booking
// confirmation fields, so the booking row participates directly in the
// reconcile transaction here rather than through the booking context's
// repository.

const bookingColumns = `id, booking_reference, destination, travel_date, return_date, travelers, total_amount, status, payment_id, created_at, updated_at`

func scanBooking(row pgx.Row) (bookingdomain.Booking, error) {
	var b bookingdomain.Booking
	var returnDate *time.Time
	var paymentID *uuid.UUID
	err := row.Scan(&b.ID, &b.Reference, &b.Destination, &b.TravelDate, &returnDate, &b.Travelers,
		&b.TotalAmount, &b.Status, &paymentID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return bookingdomain.Booking{}, err
	}
	b.ReturnDate = returnDate
	b.PaymentID = paymentID
	return b, nil
}
