package payments_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tabletrack.dev/app/internal/gateway"
	"tabletrack.dev/app/internal/modules/catalog"
	"tabletrack.dev/app/internal/modules/orders"
	"tabletrack.dev/app/internal/modules/payments"
	"tabletrack.dev/app/internal/shared/apperr"
	"tabletrack.dev/app/internal/testutil"
)

func TestCreateIntent(t *testing.T) {
	db := testutil.NewDB(t)
	rec := testutil.NewRecorder()
	ords := orders.NewService(db, catalog.NewRepo(db), payments.NewLedger(), rec, "INR")
	gw := gateway.NewMock()
	svc := payments.NewIntentService(db, gw, testutil.Logger())

	item := testutil.SeedItem(t, db, "Biryani", "250.00", true)
	o, _, err := ords.Create(context.Background(), orders.CreateInput{
		CustomerID:      "cust-1",
		Lines:           []orders.CreateLine{{ItemID: item.ID, Quantity: 1}},
		DeliveryAddress: "12 MG Road",
		ContactNumber:   "+91 90000 00000",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	desc, err := svc.CreateIntent(context.Background(), payments.IntentInput{
		OrderID: o.ID, ActorUserID: "cust-1", Amount: decimal.RequireFromString("250.00"),
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}
	if desc.RemoteIntentID == "" {
		t.Fatal("descriptor has no intent id")
	}
	if !desc.Amount.Equal(o.TotalAmount) || desc.Currency != "INR" {
		t.Errorf("descriptor = %+v, want order amount and currency", desc)
	}
	if desc.KeyID != gw.KeyID() {
		t.Errorf("key id = %s, want %s", desc.KeyID, gw.KeyID())
	}

	// the gateway was asked for the exact total in our currency
	remote, ok := gw.Orders[desc.RemoteIntentID]
	if !ok {
		t.Fatal("intent id unknown to the gateway")
	}
	if !remote.Amount.Equal(o.TotalAmount) || remote.Receipt != o.ID {
		t.Errorf("remote order = %+v", remote)
	}

	// correlation id persisted for the webhook join
	var pay payments.Payment
	if err := db.First(&pay, "order_id = ?", o.ID).Error; err != nil {
		t.Fatalf("payment: %v", err)
	}
	if pay.RemoteIntentID == nil || *pay.RemoteIntentID != desc.RemoteIntentID {
		t.Errorf("remote_intent_id = %v, want %s", pay.RemoteIntentID, desc.RemoteIntentID)
	}
	if pay.Status != payments.StatusPending {
		t.Errorf("payment status = %s, want PENDING", pay.Status)
	}
}

func TestCreateIntentGuards(t *testing.T) {
	db := testutil.NewDB(t)
	rec := testutil.NewRecorder()
	ords := orders.NewService(db, catalog.NewRepo(db), payments.NewLedger(), rec, "INR")
	svc := payments.NewIntentService(db, gateway.NewMock(), testutil.Logger())

	item := testutil.SeedItem(t, db, "Biryani", "250.00", true)
	o, _, err := ords.Create(context.Background(), orders.CreateInput{
		CustomerID:      "cust-1",
		Lines:           []orders.CreateLine{{ItemID: item.ID, Quantity: 1}},
		DeliveryAddress: "12 MG Road",
		ContactNumber:   "+91 90000 00000",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	t.Run("unknown order", func(t *testing.T) {
		_, err := svc.CreateIntent(context.Background(), payments.IntentInput{OrderID: "missing"})
		if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.NotFound {
			t.Errorf("err = %v, want not_found", err)
		}
	})

	t.Run("other customer", func(t *testing.T) {
		_, err := svc.CreateIntent(context.Background(), payments.IntentInput{
			OrderID: o.ID, ActorUserID: "cust-2",
		})
		if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.Conflict {
			t.Errorf("err = %v, want conflict", err)
		}
	})

	t.Run("amount mismatch", func(t *testing.T) {
		_, err := svc.CreateIntent(context.Background(), payments.IntentInput{
			OrderID: o.ID, ActorUserID: "cust-1", Amount: decimal.RequireFromString("1.00"),
		})
		if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.Invalid {
			t.Errorf("err = %v, want invalid", err)
		}
	})

	t.Run("already paid", func(t *testing.T) {
		if err := db.Model(&payments.Payment{}).Where("order_id = ?", o.ID).
			Updates(map[string]any{"status": payments.StatusCompleted, "updated_at": time.Now()}).Error; err != nil {
			t.Fatalf("seed paid: %v", err)
		}
		_, err := svc.CreateIntent(context.Background(), payments.IntentInput{
			OrderID: o.ID, ActorUserID: "cust-1",
		})
		if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.Conflict {
			t.Errorf("err = %v, want conflict", err)
		}
	})
}

func TestCreateIntentGatewayUnavailable(t *testing.T) {
	db := testutil.NewDB(t)
	rec := testutil.NewRecorder()
	ords := orders.NewService(db, catalog.NewRepo(db), payments.NewLedger(), rec, "INR")

	item := testutil.SeedItem(t, db, "Biryani", "250.00", true)
	o, _, err := ords.Create(context.Background(), orders.CreateInput{
		CustomerID:      "cust-1",
		Lines:           []orders.CreateLine{{ItemID: item.ID, Quantity: 1}},
		DeliveryAddress: "12 MG Road",
		ContactNumber:   "+91 90000 00000",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	t.Run("not configured", func(t *testing.T) {
		svc := payments.NewIntentService(db, nil, testutil.Logger())
		_, err := svc.CreateIntent(context.Background(), payments.IntentInput{
			OrderID: o.ID, ActorUserID: "cust-1",
		})
		if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.Unavailable {
			t.Errorf("err = %v, want unavailable", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		gw := gateway.NewMock()
		gw.Fail = true
		svc := payments.NewIntentService(db, gw, testutil.Logger())
		_, err := svc.CreateIntent(context.Background(), payments.IntentInput{
			OrderID: o.ID, ActorUserID: "cust-1",
		})
		if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.Unavailable {
			t.Errorf("err = %v, want unavailable", err)
		}
	})
}

func TestCreateIntentResetsFailedPayment(t *testing.T) {
	db := testutil.NewDB(t)
	rec := testutil.NewRecorder()
	ords := orders.NewService(db, catalog.NewRepo(db), payments.NewLedger(), rec, "INR")
	svc := payments.NewIntentService(db, gateway.NewMock(), testutil.Logger())

	item := testutil.SeedItem(t, db, "Biryani", "250.00", true)
	o, _, err := ords.Create(context.Background(), orders.CreateInput{
		CustomerID:      "cust-1",
		Lines:           []orders.CreateLine{{ItemID: item.ID, Quantity: 1}},
		DeliveryAddress: "12 MG Road",
		ContactNumber:   "+91 90000 00000",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := db.Model(&payments.Payment{}).Where("order_id = ?", o.ID).
		Updates(map[string]any{"status": payments.StatusFailed, "updated_at": time.Now()}).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	desc, err := svc.CreateIntent(context.Background(), payments.IntentInput{
		OrderID: o.ID, ActorUserID: "cust-1",
	})
	if err != nil {
		t.Fatalf("retry intent: %v", err)
	}

	var pay payments.Payment
	if err := db.First(&pay, "order_id = ?", o.ID).Error; err != nil {
		t.Fatalf("payment: %v", err)
	}
	if pay.Status != payments.StatusPending {
		t.Errorf("payment status = %s, want PENDING after retry", pay.Status)
	}
	if pay.RemoteIntentID == nil || *pay.RemoteIntentID != desc.RemoteIntentID {
		t.Errorf("remote_intent_id = %v, want the fresh intent %s", pay.RemoteIntentID, desc.RemoteIntentID)
	}
}
