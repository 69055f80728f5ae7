package chapa

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/safarilabs/travel-payments/internal/payment/domain"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw
// webhook body, keyed with the shared webhook secret.
const SignatureHeader = "Chapa-Signature"

var ErrBadSignature = errors.New("webhook signature mismatch")

// WebhookEvent is the decoded, signature-verified provider callback.
// The raw status has already been normalized, so consumers never see
// provider vocabulary.
type WebhookEvent struct {
	TransactionRef string
	Status         domain.ProviderStatus
}

type webhookPayload struct {
	TxRef  string `json:"tx_ref"`
	Status string `json:"status"`
}

// ParseWebhook verifies the payload signature and decodes it into a
// normalized event. The payload is not trusted until the signature
// checks out.
func ParseWebhook(body []byte, signature, secret string) (WebhookEvent, error) {
	if !VerifySignature(body, signature, secret) {
		return WebhookEvent{}, ErrBadSignature
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode webhook payload: %v: %w", err, domain.ErrValidation)
	}
	if p.TxRef == "" {
		return WebhookEvent{}, fmt.Errorf("missing tx_ref: %w", domain.ErrValidation)
	}

	return WebhookEvent{
		TransactionRef: p.TxRef,
		Status:         NormalizeStatus(p.Status),
	}, nil
}

func VerifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
