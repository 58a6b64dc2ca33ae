package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/metro-ticketing/internal"
	"github.com/frahmantamala/metro-ticketing/internal/core/money"
)

// LatencyObserver receives the duration and outcome of every gateway call.
type LatencyObserver interface {
	ObserveGatewayCall(operation, outcome string, elapsed time.Duration)
}

type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
	Timeout   time.Duration
}

// Client talks to a Razorpay-compatible orders API. It never retries;
// callers decide whether a failed order creation is worth repeating.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	currency  string
	timeout   time.Duration
	http      *http.Client
	logger    *slog.Logger
	observer  LatencyObserver
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		currency:  currency,
		timeout:   timeout,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

func (c *Client) WithObserver(o LatencyObserver) *Client {
	c.observer = o
	return c
}

// KeyID is the public key the checkout widget needs.
func (c *Client) KeyID() string {
	return c.keyID
}

func Receipt(ticketID int64) string {
	return "receipt_ticket_" + strconv.FormatInt(ticketID, 10)
}

// CreateOrder registers an order for the given fare. Input is validated
// before any network traffic; every transport or protocol failure is
// reported as an upstream error wrapping the cause.
func (c *Client) CreateOrder(ctx context.Context, amount money.Amount, ticketID int64) (*OrderHandle, error) {
	if !amount.IsPositive() {
		return nil, internal.NewValidationFieldError("amount", "amount must be positive", internal.ErrCodeInvalidAmount)
	}
	if ticketID <= 0 {
		return nil, internal.NewValidationFieldError("ticketId", "ticket id must be positive", internal.ErrCodeValidationFailed)
	}

	start := time.Now()
	handle, err := c.createOrder(ctx, amount, ticketID)
	c.observe("create_order", err, time.Since(start))
	if err != nil {
		c.logger.Error("gateway order creation failed", "ticket_id", ticketID, "amount", amount.String(), "error", err)
		return nil, internal.NewUpstreamError("payment gateway unavailable", err)
	}

	c.logger.Info("gateway order created", "ticket_id", ticketID, "order_id", handle.OrderID, "amount", amount.String())
	return handle, nil
}

func (c *Client) createOrder(ctx context.Context, amount money.Amount, ticketID int64) (*OrderHandle, error) {
	body, err := json.Marshal(orderRequest{
		Amount:         amount.Minor(),
		Currency:       c.currency,
		Receipt:        Receipt(ticketID),
		PaymentCapture: 1,
		Notes:          map[string]string{"ticket_id": strconv.FormatInt(ticketID, 10)},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read order response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gwErr errorResponse
		if json.Unmarshal(respBody, &gwErr) == nil && gwErr.Error.Description != "" {
			return nil, fmt.Errorf("gateway returned %d: %s: %s", resp.StatusCode, gwErr.Error.Code, gwErr.Error.Description)
		}
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var order orderResponse
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("gateway response has no order id")
	}
	if order.Amount != 0 && order.Amount != amount.Minor() {
		return nil, fmt.Errorf("gateway order amount %d does not match requested %d", order.Amount, amount.Minor())
	}

	currency := order.Currency
	if currency == "" {
		currency = c.currency
	}
	return &OrderHandle{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: currency,
		Receipt:  order.Receipt,
		Status:   order.Status,
		KeyID:    c.keyID,
	}, nil
}

func (c *Client) observe(operation string, err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.observer.ObserveGatewayCall(operation, outcome, elapsed)
}
