package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"tabletrack.dev/app/internal/config"
	"tabletrack.dev/app/internal/metrics"
)

// RazorClient talks to a Razorpay-style orders API over HTTPS with basic
// auth. All calls run through a circuit breaker; the client timeout bounds
// how long an order-creation request may block.
type RazorClient struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	keyID   string
}

func NewRazorClient(cfg config.GatewayConfig, logger *slog.Logger) *RazorClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetTimeout(timeout).
		SetRetryCount(0) // retries stay with the caller; the breaker sees every failure

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.GatewayCircuitState.Set(state)
			logger.Warn("gateway circuit state changed", "from", from.String(), "to", to.String())
		},
	})

	return &RazorClient{http: httpc, breaker: breaker, keyID: cfg.KeyID}
}

func (c *RazorClient) KeyID() string { return c.keyID }

type remoteOrderRequest struct {
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type remoteOrderResponse struct {
	ID string `json:"id"`
}

func (c *RazorClient) CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (RemoteOrder, error) {
	body := remoteOrderRequest{
		Amount:   amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		Currency: currency,
		Receipt:  receipt,
	}

	result, err := c.breaker.Execute(func() (any, error) {
		var out remoteOrderResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			Post("/orders")
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("gateway returned %d", resp.StatusCode())
		}
		if resp.StatusCode() >= http.StatusBadRequest {
			// 4xx will not heal on retry; keep it out of ErrUnavailable
			return nil, &RequestError{Status: resp.StatusCode(), Body: string(resp.Body())}
		}
		if out.ID == "" {
			return nil, fmt.Errorf("gateway response missing order id")
		}
		return out, nil
	})
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			return RemoteOrder{}, err
		}
		return RemoteOrder{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return RemoteOrder{ID: result.(remoteOrderResponse).ID}, nil
}

// RequestError is a gateway 4xx: the request itself was rejected.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("gateway rejected request: status=%d", e.Status)
}
