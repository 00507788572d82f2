package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// RemoteOrder is the gateway-side intent object; ID becomes the payment
// record's remote_intent_id.
type RemoteOrder struct {
	ID string
}

// Client opens payment intents with the external gateway. There is
// deliberately no refund method: cancellation only flips the local
// payment status, and a real refund call is a future extension of this
// interface.
type Client interface {
	CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (RemoteOrder, error)
	KeyID() string
}

// ErrUnavailable marks the gateway as unreachable: timeouts, 5xx replies
// and an open circuit all collapse into it so callers can answer 503.
var ErrUnavailable = errors.New("payment gateway unavailable")

func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
