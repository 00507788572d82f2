package payments

import "encoding/json"

type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentCaptured
	EventPaymentFailed
)

// PaymentEntity mirrors the gateway's webhook entity. order_id is the
// gateway's own order object (our remote intent id), id is the gateway
// payment id, created_at is unix seconds.
type PaymentEntity struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	Method    string `json:"method"`
	CreatedAt int64  `json:"created_at"`
}

type eventEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Event is the decoded webhook, a closed union over the kinds the
// reconciler dispatches on. Unknown names are kept for logging and
// otherwise ignored, so gateway-side additions don't break us.
type Event struct {
	Kind    EventKind
	Name    string
	Payment PaymentEntity
}

func ParseEvent(raw []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, err
	}
	ev := Event{Name: env.Event, Payment: env.Payload.Payment.Entity}
	switch env.Event {
	case "payment.captured":
		ev.Kind = EventPaymentCaptured
	case "payment.failed":
		ev.Kind = EventPaymentFailed
	default:
		ev.Kind = EventUnknown
	}
	return ev, nil
}
