package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/safarilabs/travel-payments/internal/payment/application"
	"github.com/safarilabs/travel-payments/internal/payment/domain"
)

const (
	DefaultBaseURL = "https://api.chapa.co/v1"
	defaultTimeout = 10 * time.Second
)

// Config carries the provider credentials. It is injected at
// construction; nothing in this package reads the environment.
type Config struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

type Client struct {
	log  *slog.Logger
	cfg  Config
	http *http.Client
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		log:  log,
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type initializeRequest struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	TxRef         string        `json:"tx_ref"`
	Customization customization `json:"customization"`
}

type customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type initializeResponse struct {
	Status string `json:"status"`
	Data   struct {
		Reference   string `json:"reference"`
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

func (c *Client) Initialize(ctx context.Context, req application.CheckoutRequest) (application.CheckoutSession, error) {
	body, err := json.Marshal(initializeRequest{
		Amount:    req.Amount.StringFixed(2),
		Currency:  req.Currency,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		TxRef:     req.TransactionRef,
		Customization: customization{
			Title:       "Travel Booking Payment",
			Description: fmt.Sprintf("Payment for booking %s", req.BookingReference),
		},
	})
	if err != nil {
		return application.CheckoutSession{}, err
	}

	var resp initializeResponse
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &resp); err != nil {
		return application.CheckoutSession{}, err
	}

	return application.CheckoutSession{
		ProviderRef: resp.Data.Reference,
		CheckoutURL: resp.Data.CheckoutURL,
	}, nil
}

type verifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		Status string `json:"status"`
	} `json:"data"`
}

func (c *Client) Verify(ctx context.Context, txRef string) (domain.ProviderStatus, error) {
	var resp verifyResponse
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+txRef, nil, &resp); err != nil {
		return domain.ProviderOther, err
	}
	return NormalizeStatus(resp.Data.Status), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, domain.ErrGateway)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error("chapa request failed", "method", method, "path", path, "status", resp.StatusCode, "body", string(msg))
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, domain.ErrGateway)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %v: %w", method, path, err, domain.ErrGateway)
	}
	return nil
}

// NormalizeStatus maps provider vocabulary onto the engine's three-way
// status. Anything unrecognized is Other, which the engine treats as a
// pending re-affirmation.
func NormalizeStatus(raw string) domain.ProviderStatus {
	switch raw {
	case "success":
		return domain.ProviderSuccess
	case "failed":
		return domain.ProviderFailed
	default:
		return domain.ProviderOther
	}
}
