package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/aarvika/storefront-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

var errFunctionURLRequired = errors.New("mailer function url is required")

// Client invokes the transactional-email cloud function over HTTP.
type Client struct {
	httpClient  *http.Client
	functionURL string
	apiKey      string
	fromEmail   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the mailer client pointed at the email function.
func NewClient(functionURL, apiKey, fromEmail string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimSpace(functionURL)
	if trimmedURL == "" {
		return nil, errFunctionURLRequired
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		functionURL: trimmedURL,
		apiKey:      strings.TrimSpace(apiKey),
		fromEmail:   strings.TrimSpace(fromEmail),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// OrderConfirmation is the payload for the post-payment confirmation email.
type OrderConfirmation struct {
	To          string `json:"to"`
	From        string `json:"from"`
	OrderNumber string `json:"order_number"`
	Name        string `json:"name"`
	Total       string `json:"total"`
}

// SendOrderConfirmation posts the confirmation payload to the email function.
// Callers treat failures as best-effort: log and move on.
func (c *Client) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "mailer client not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email is required")
	}
	if msg.From == "" {
		msg.From = c.fromEmail
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal confirmation payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.functionURL, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build mailer request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute mailer request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		msgBody, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msgBody))), "mailer request failed")
	}
	return nil
}
