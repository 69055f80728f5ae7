package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safarilabs/travel-payments/internal/booking/application"
	"github.com/safarilabs/travel-payments/internal/booking/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.createBooking)
	r.Get("/{bookingID}", h.getBooking)

	return r
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type createBookingReq struct {
	Reference   string          `json:"booking_reference"`
	Destination string          `json:"destination"`
	TravelDate  time.Time       `json:"travel_date"`
	ReturnDate  *time.Time      `json:"return_date"`
	Travelers   int             `json:"number_of_travelers"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "invalid JSON body"})
		return
	}

	b, err := h.service.Create(r.Context(), application.CreateRequest{
		Reference:   req.Reference,
		Destination: req.Destination,
		TravelDate:  req.TravelDate,
		ReturnDate:  req.ReturnDate,
		Travelers:   req.Travelers,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	respond(w, http.StatusCreated, envelope{Success: true, Message: "Booking created", Data: projection(b)})
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "invalid booking id"})
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respond(w, http.StatusOK, envelope{Success: true, Message: "OK", Data: projection(b)})
}

func projection(b domain.Booking) map[string]any {
	proj := map[string]any{
		"booking_id":          b.ID.String(),
		"booking_reference":   b.Reference,
		"destination":         b.Destination,
		"travel_date":         b.TravelDate,
		"number_of_travelers": b.Travelers,
		"total_amount":        b.TotalAmount.StringFixed(2),
		"booking_status":      b.Status,
		"created_at":          b.CreatedAt,
	}
	if b.ReturnDate != nil {
		proj["return_date"] = b.ReturnDate
	}
	if b.PaymentID != nil {
		proj["payment_id"] = b.PaymentID.String()
	}
	return proj
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		respond(w, http.StatusBadRequest, envelope{Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		respond(w, http.StatusNotFound, envelope{Message: "booking not found"})
	default:
		h.log.Error("unhandled error", "err", err)
		respond(w, http.StatusInternalServerError, envelope{Message: "internal server error"})
	}
}

func respond(w http.ResponseWriter, status int, e envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(e)
}
