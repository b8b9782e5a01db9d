package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/payment"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const defaultBaseURL = "https://api.paystack.co"

// maxErrorBody limits how much of a failed response is kept in the error.
const maxErrorBody = 1 << 12

// Client talks to the hosted checkout API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

// NewClient creates a gateway client. A nil httpClient uses a client with a 15s timeout.
func NewClient(baseURL, secretKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: httpClient,
	}
}

// MustNewClient creates a gateway client from configuration.
func MustNewClient() *Client {
	secretKey := os.Getenv("PAYSTACK_SECRET_KEY")
	if secretKey == "" {
		panic("PAYSTACK_SECRET_KEY is not set")
	}

	timeoutSeconds := viper.GetInt("payment.gateway.timeout_seconds")
	if timeoutSeconds == 0 {
		timeoutSeconds = 15
	}

	return NewClient(
		viper.GetString("payment.gateway.base_url"),
		secretKey,
		&http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	)
}

// Initialize opens a checkout transaction for the reference.
func (c *Client) Initialize(ctx context.Context, req payment.InitializeRequest) (payment.Initialization, error) {
	ctx, span := otel.Tracer("paystack").Start(ctx, "Paystack.Initialize")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", req.Reference))

	body, err := json.Marshal(req)
	if err != nil {
		return payment.Initialization{}, fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	var parsed initializeResponse
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), &parsed); err != nil {
		span.RecordError(err)

		return payment.Initialization{}, err
	}

	if !parsed.Status {
		return payment.Initialization{}, fmt.Errorf("gateway rejected transaction: %s", parsed.Message)
	}
	if parsed.Data.AuthorizationURL == "" {
		return payment.Initialization{}, errors.New("gateway response has no authorization url")
	}

	reference := parsed.Data.Reference
	if reference == "" {
		reference = req.Reference
	}

	return payment.Initialization{
		AuthorizationURL: parsed.Data.AuthorizationURL,
		AccessCode:       parsed.Data.AccessCode,
		Reference:        reference,
	}, nil
}

// Verify asks the gateway how the transaction for reference was settled.
func (c *Client) Verify(ctx context.Context, reference string) (payment.Verification, error) {
	ctx, span := otel.Tracer("paystack").Start(ctx, "Paystack.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", reference))

	var parsed verifyResponse
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.do(ctx, http.MethodGet, path, nil, &parsed); err != nil {
		span.RecordError(err)

		return payment.Verification{}, err
	}

	if !parsed.Status {
		return payment.Verification{}, fmt.Errorf("gateway rejected verification: %s", parsed.Message)
	}

	return payment.Verification{
		Reference: parsed.Data.Reference,
		Status:    parsed.Data.Status,
		Amount:    parsed.Data.Amount,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}

		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return nil
}
