package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safarilabs/travel-payments/internal/booking/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, b domain.Booking) error
	Get(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	GetByReference(ctx context.Context, reference string) (domain.Booking, error)
}

type Service struct {
	log  *slog.Logger
	repo BookingRepository
}

func NewService(log *slog.Logger, repo BookingRepository) *Service {
	return &Service{log: log, repo: repo}
}

type CreateRequest struct {
	Reference   string
	Destination string
	TravelDate  time.Time
	ReturnDate  *time.Time
	Travelers   int
	TotalAmount decimal.Decimal
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (domain.Booking, error) {
	if req.Destination == "" {
		return domain.Booking{}, fmt.Errorf("destination is required: %w", domain.ErrValidation)
	}
	if req.Travelers < 1 {
		req.Travelers = 1
	}

	b := domain.New(req.Reference, req.Destination, req.TravelDate, req.ReturnDate, req.Travelers, req.TotalAmount)
	if err := s.repo.Create(ctx, b); err != nil {
		return domain.Booking{}, err
	}

	s.log.Info("booking created", "booking_id", b.ID, "booking_reference", b.Reference)
	return b, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.repo.Get(ctx, id)
}
