package payments

import "testing"

func TestParseEvent(t *testing.T) {
	raw := []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_123",
					"order_id": "order_abc",
					"method": "upi",
					"created_at": 1700000000
				}
			}
		}
	}`)

	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Kind != EventPaymentCaptured {
		t.Errorf("kind = %v, want captured", ev.Kind)
	}
	if ev.Payment.ID != "pay_123" || ev.Payment.OrderID != "order_abc" {
		t.Errorf("entity = %+v", ev.Payment)
	}
	if ev.Payment.Method != "upi" || ev.Payment.CreatedAt != 1700000000 {
		t.Errorf("entity = %+v", ev.Payment)
	}
}

func TestParseEventKinds(t *testing.T) {
	cases := []struct {
		event string
		want  EventKind
	}{
		{"payment.captured", EventPaymentCaptured},
		{"payment.failed", EventPaymentFailed},
		{"refund.processed", EventUnknown},
		{"", EventUnknown},
	}
	for _, c := range cases {
		ev, err := ParseEvent([]byte(`{"event":"` + c.event + `"}`))
		if err != nil {
			t.Fatalf("parse %q: %v", c.event, err)
		}
		if ev.Kind != c.want {
			t.Errorf("event %q: kind = %v, want %v", c.event, ev.Kind, c.want)
		}
		if ev.Name != c.event {
			t.Errorf("event %q: name = %q", c.event, ev.Name)
		}
	}
}

func TestParseEventMalformed(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"event": `)); err == nil {
		t.Error("truncated JSON must fail to parse")
	}
}
