package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mock is an in-memory gateway for tests and local development. It hands
// out intent ids and remembers what was asked for; Fail makes every call
// answer ErrUnavailable.
type Mock struct {
	mu     sync.Mutex
	Orders map[string]MockOrder // keyed by intent id
	Fail   bool
	Key    string
}

type MockOrder struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
}

func NewMock() *Mock {
	return &Mock{Orders: make(map[string]MockOrder), Key: "rzp_test_mock"}
}

func (m *Mock) KeyID() string { return m.Key }

func (m *Mock) CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (RemoteOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return RemoteOrder{}, ErrUnavailable
	}
	id := "order_" + uuid.NewString()[:12]
	m.Orders[id] = MockOrder{Amount: amount, Currency: currency, Receipt: receipt}
	return RemoteOrder{ID: id}, nil
}
