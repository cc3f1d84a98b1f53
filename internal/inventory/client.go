// Package inventory is the HTTP client for the bus inventory and payment
// backend.  It only speaks the wire format; interpreting responses (success
// policy, race detection, pairing) is left to the booking core.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// IdempotencyHeader carries the payment identifier on /book so the backend
// can deduplicate retried confirmations.
const IdempotencyHeader = "Idempotency-Key"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// Client talks to the backend REST surface.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient returns a Client rooted at baseURL.  A nil httpClient gets a
// default with a 30 second overall timeout; per-call deadlines come from the
// caller's context.
func NewClient(baseURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// ListBuses fetches GET /buses.
func (c *Client) ListBuses(ctx context.Context) ([]model.Bus, error) {
	var out []model.Bus
	if _, _, err := c.do(ctx, "list buses", http.MethodGet, "/buses", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSeats fetches GET /buses/{busID}/seats.
func (c *Client) ListSeats(ctx context.Context, busID uint64) ([]SeatRecord, error) {
	var out []SeatRecord
	path := "/buses/" + strconv.FormatUint(busID, 10) + "/seats"
	if _, _, err := c.do(ctx, "list seats", http.MethodGet, path, nil, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder calls POST /create-order.  A non-2xx response is returned as
// a TransportError carrying the status; a 2xx response with success=false is
// returned as-is for the caller to interpret.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error) {
	var out CreateOrderResponse
	if _, _, err := c.do(ctx, "create order", http.MethodPost, "/create-order", req, nil, &out, true); err != nil {
		return CreateOrderResponse{}, err
	}
	return out, nil
}

// Book calls POST /book with the idempotency key header.  Unlike the other
// calls, 4xx responses are not errors: the decoded body and status are
// returned so the confirmer can tell a lost race from a rejected payment.
// Network failures and 5xx responses are TransportErrors.
func (c *Client) Book(ctx context.Context, req BookRequest, idempotencyKey string) (BookResponse, error) {
	var out BookResponse
	hdr := http.Header{}
	if idempotencyKey != "" {
		hdr.Set(IdempotencyHeader, idempotencyKey)
	}
	status, raw, err := c.do(ctx, "book", http.MethodPost, "/book", req, hdr, &out, false)
	out.Status = status
	out.Raw = strings.TrimSpace(string(raw))
	if err != nil {
		return out, err
	}
	return out, nil
}

// do performs one request.  When strict is true every non-2xx status is a
// TransportError; otherwise only 5xx is, and the body of a 4xx response is
// still decoded into out.  The raw body is returned alongside.
func (c *Client) do(ctx context.Context, op, method, path string, body any, hdr http.Header, out any, strict bool) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		rdr = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vals := range hdr {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("inventory request failed",
			zap.String("op", op), zap.String("path", path), zap.Duration("took", time.Since(started)), zap.Error(err))
		return 0, nil, &model.TransportError{Op: op, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, &model.TransportError{Op: op, Timeout: isTimeout(err), Err: err}
	}
	c.log.Debug("inventory request",
		zap.String("op", op), zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(started)))

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && (strict || resp.StatusCode >= 500) {
		return resp.StatusCode, raw, &model.TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(raw)))}
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			if !strict {
				// Plain-text bodies are left to the caller via raw.
				return resp.StatusCode, raw, nil
			}
			return resp.StatusCode, raw, &model.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return resp.StatusCode, raw, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
