package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/safarilabs/travel-payments/internal/payment/application"
	"github.com/safarilabs/travel-payments/internal/payment/domain"
	"github.com/safarilabs/travel-payments/internal/payment/infrastructure/chapa"
)

type Handler struct {
	log           *slog.Logger
	service       *application.Service
	webhookSecret string
	tracer        trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, webhookSecret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: webhookSecret,
		tracer:        otel.Tracer("payment-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/initiate", h.initiatePayment)
	r.Post("/verify", h.verifyPayment)
	r.Post("/webhook", h.webhook)
	r.Get("/status/{paymentID}", h.paymentStatus)
	r.Get("/mine", h.userPayments)

	return r
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type initiateReq struct {
	BookingReference string          `json:"booking_reference"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Email            string          `json:"email"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
}

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "InitiatePayment")
	defer span.End()

	var req initiateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "invalid JSON body"})
		return
	}
	if req.Currency == "" {
		req.Currency = "NGN"
	}

	res, err := h.service.Initiate(ctx, application.InitiateRequest{
		BookingReference: req.BookingReference,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Email:            req.Email,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	respond(w, http.StatusOK, envelope{Success: true, Message: "Payment initiated successfully", Data: map[string]string{
		"payment_id":      res.PaymentID.String(),
		"checkout_url":    res.CheckoutURL,
		"transaction_ref": res.TransactionRef,
		"provider_ref":    res.ProviderRef,
	}})
}

type verifyReq struct {
	TransactionRef string `json:"transaction_ref"`
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "VerifyPayment")
	defer span.End()

	var req verifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "invalid JSON body"})
		return
	}
	if req.TransactionRef == "" {
		respond(w, http.StatusBadRequest, envelope{Message: "transaction_ref is required"})
		return
	}

	outcome, err := h.service.Verify(ctx, req.TransactionRef, traceparentFrom(ctx, r))
	if err != nil {
		h.respondError(w, err)
		return
	}

	respond(w, http.StatusOK, envelope{Success: true, Message: "Payment verification completed", Data: outcome})
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentWebhook")
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "unreadable body"})
		return
	}

	event, err := chapa.ParseWebhook(body, r.Header.Get(chapa.SignatureHeader), h.webhookSecret)
	if err != nil {
		if errors.Is(err, chapa.ErrBadSignature) {
			h.log.Warn("webhook signature rejected", "remote", r.RemoteAddr)
		}
		respond(w, http.StatusBadRequest, envelope{Message: "invalid webhook payload"})
		return
	}

	outcome, err := h.service.Reconcile(ctx, event.TransactionRef, event.Status, traceparentFrom(ctx, r))
	if err != nil {
		h.respondError(w, err)
		return
	}

	respond(w, http.StatusOK, envelope{Success: true, Message: "Webhook processed successfully", Data: outcome})
}

func (h *Handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "invalid payment id"})
		return
	}

	p, err := h.service.Status(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	respond(w, http.StatusOK, envelope{Success: true, Message: "OK", Data: paymentProjection(p)})
}

func (h *Handler) userPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.PaymentsByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	data := make([]map[string]any, 0, len(payments))
	for _, p := range payments {
		data = append(data, paymentProjection(p))
	}
	respond(w, http.StatusOK, envelope{Success: true, Message: "OK", Data: data})
}

func paymentProjection(p domain.Payment) map[string]any {
	proj := map[string]any{
		"payment_id":        p.ID.String(),
		"booking_reference": p.BookingReference,
		"amount":            p.Amount.StringFixed(2),
		"currency":          p.Currency,
		"payment_status":    p.Status,
		"transaction_ref":   p.TransactionRef,
		"provider_ref":      p.ProviderRef,
		"checkout_url":      p.CheckoutURL,
		"created_at":        p.CreatedAt,
		"updated_at":        p.UpdatedAt,
	}
	if p.PaymentDate != nil {
		proj["payment_date"] = p.PaymentDate
	}
	return proj
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		respond(w, http.StatusBadRequest, envelope{Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		respond(w, http.StatusNotFound, envelope{Message: "payment not found"})
	case errors.Is(err, domain.ErrDuplicateBooking):
		respond(w, http.StatusConflict, envelope{Message: "payment already initiated for this booking"})
	case errors.Is(err, domain.ErrGateway):
		respond(w, http.StatusBadGateway, envelope{Message: "payment provider unavailable"})
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

func traceparentFrom(ctx context.Context, r *http.Request) string {
	if tp := r.Header.Get("traceparent"); tp != "" {
		return tp
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier["traceparent"]
}
