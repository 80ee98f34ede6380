package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aarvika/storefront-backend/pkg/config"
	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
	"github.com/aarvika/storefront-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	defaultBaseURL             = "https://api.razorpay.com/v1"
	responseBodyReadLimit int64 = 1024
)

var (
	errKeyIDRequired      = errors.New("razorpay key id is required")
	errKeySecretRequired  = errors.New("razorpay key secret is required")
	errInvalidRazorpayEnv = fmt.Errorf("razorpay environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps the Razorpay Orders REST API plus signature verification.
// The HTTP transport is built lazily on first use.
type Client struct {
	keyID       string
	keySecret   string
	environment string
	baseURL     string
	logg        *logger.Logger

	initOnce   sync.Once
	httpClient *http.Client
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client, for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient validates the configured credentials and returns a gateway client.
func NewClient(cfg config.RazorpayConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}
	if err := validateKeyID(env, keyID); err != nil {
		return nil, err
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := &Client{
		keyID:       keyID,
		keySecret:   keySecret,
		environment: env,
		baseURL:     strings.TrimRight(baseURL, "/"),
		logg:        logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Environment reports the normalized gateway environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// KeyID returns the public key identifier handed to the payment widget.
func (c *Client) KeyID() string {
	if c == nil {
		return ""
	}
	return c.keyID
}

// CreateOrderRequest describes the payload sent to the Orders API. Amounts
// are in paise, per the gateway contract.
type CreateOrderRequest struct {
	AmountPaise int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt,omitempty"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// Order is the gateway order handed back to the client for collection.
type Order struct {
	ID          string `json:"id"`
	AmountPaise int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// CreateOrder registers a pending order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not configured")
	}
	if req.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	if strings.TrimSpace(req.Currency) == "" {
		req.Currency = "INR"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal order request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("orders"), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client().Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute order request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "create order failed")
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode order response")
	}
	return &order, nil
}

// VerifySignature checks the checkout callback signature: HMAC-SHA256 of
// "orderID|paymentID" keyed with the secret, hex encoded, compared in
// constant time.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	if c == nil || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) client() *http.Client {
	c.initOnce.Do(func() {
		if c.httpClient == nil {
			c.httpClient = &http.Client{Timeout: 10 * time.Second}
		}
		if c.logg != nil {
			c.logg.Info(context.Background(), fmt.Sprintf("razorpay client initialized (%s)", c.environment))
		}
	})
	return c.httpClient
}

func (c *Client) buildURL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidRazorpayEnv
	}
}

func validateKeyID(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "rzp_test_") {
			return nil
		}
		return fmt.Errorf("razorpay environment %q requires a test key id (rzp_test_)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "rzp_live_") {
			return nil
		}
		return fmt.Errorf("razorpay environment %q requires a live key id (rzp_live_)", liveEnv)
	default:
		return errInvalidRazorpayEnv
	}
}
