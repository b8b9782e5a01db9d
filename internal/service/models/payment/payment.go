package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPaymentInitializationFailed = errors.New("payment initialization failed")
	ErrUnrecognizedMessage         = errors.New("unrecognized payment message")
	ErrMissingReference            = errors.New("payment reference is required")
	ErrMissingOrderID              = errors.New("order id is required")
	ErrPaymentNotVerified          = errors.New("payment not verified by gateway")
)

// Outcome is the result reported by the gateway for one payment attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ParseOutcome maps a gateway status to an outcome. Only "success" counts as
// success, everything else is a failure.
func ParseOutcome(status string) Outcome {
	if strings.EqualFold(strings.TrimSpace(status), string(OutcomeSuccess)) {
		return OutcomeSuccess
	}

	return OutcomeFailure
}

// Channel identifies how a signal reached the service.
type Channel string

const (
	ChannelEmbedded     Channel = "embedded"
	ChannelCallback     Channel = "callback"
	ChannelGatewayEvent Channel = "gateway_event"
	ChannelRPC          Channel = "rpc"
)

// Signal is one payment outcome notification for a reference.
type Signal struct {
	Reference string
	OrderID   string
	Outcome   Outcome
	Channel   Channel
}

// Validate checks that a signal can be reconciled.
func (s Signal) Validate() error {
	if s.Reference == "" {
		return ErrMissingReference
	}
	if s.OrderID == "" {
		return ErrMissingOrderID
	}

	return nil
}

// Metadata is attached to the gateway transaction for correlation.
type Metadata struct {
	OrderID string `json:"order_id"`
	AppID   string `json:"app_id,omitempty"`
}

// InitializeRequest opens a hosted checkout transaction.
type InitializeRequest struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"`
	Reference   string   `json:"reference"`
	CallbackURL string   `json:"callback_url,omitempty"`
	Metadata    Metadata `json:"metadata"`
}

// Initialization is what the gateway returns for a new transaction.
type Initialization struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
}

// Verification is the gateway's own record of a transaction.
type Verification struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

// Covers reports whether the gateway settled reference for at least amount.
func (v Verification) Covers(reference string, amount int64) bool {
	return ParseOutcome(v.Status) == OutcomeSuccess && v.Reference == reference && v.Amount >= amount
}

// Session is handed to whichever surface completes the payment.
type Session struct {
	OrderID          string `json:"orderId"`
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Amount           int64  `json:"amount"`
}

// NewReference builds a reference unique to one payment attempt: a millisecond
// timestamp followed by random hex.
func NewReference(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")

	return fmt.Sprintf("fd_%d_%s", now.UnixMilli(), random[:12])
}
