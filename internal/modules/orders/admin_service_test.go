package orders_test

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"tabletrack.dev/app/internal/modules/orders"
	"tabletrack.dev/app/internal/modules/payments"
	"tabletrack.dev/app/internal/notify"
	"tabletrack.dev/app/internal/shared/apperr"
	"tabletrack.dev/app/internal/testutil"
)

// seedConfirmedOrder creates a paid, CONFIRMED order the way the
// reconciler would leave it.
func seedConfirmedOrder(t *testing.T, db *gorm.DB, svc *orders.Service) orders.Order {
	t.Helper()
	item := testutil.SeedItem(t, db, "Paneer Tikka", "220.00", true)
	o, _, err := svc.Create(context.Background(), orders.CreateInput{
		CustomerID:      "cust-1",
		Lines:           []orders.CreateLine{{ItemID: item.ID, Quantity: 1}},
		DeliveryAddress: "12 MG Road",
		ContactNumber:   "+91 90000 00000",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := db.Model(&payments.Payment{}).Where("order_id = ?", o.ID).
		Updates(map[string]any{"status": payments.StatusCompleted, "updated_at": time.Now()}).Error; err != nil {
		t.Fatalf("seed paid: %v", err)
	}
	if err := db.Model(&orders.Order{}).Where("id = ?", o.ID).
		Update("status", orders.StatusConfirmed).Error; err != nil {
		t.Fatalf("seed confirmed: %v", err)
	}
	o.Status = orders.StatusConfirmed
	return o
}

func TestAdminTransitionWalksTheChain(t *testing.T) {
	db := testutil.NewDB(t)
	rec := testutil.NewRecorder()
	svc := newOrderService(t, db, rec)
	admin := orders.NewAdminService(db, payments.NewLedger(), rec)
	o := seedConfirmedOrder(t, db, svc)

	chain := []string{
		orders.StatusPreparing, orders.StatusPrepared,
		orders.StatusOutForDelivery, orders.StatusDelivered, orders.StatusCompleted,
	}
	for _, next := range chain {
		err := admin.Transition(context.Background(), orders.TransitionInput{
			OrderID: o.ID, ActorUserID: "admin-1", NewStatus: next,
		})
		if err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	var got orders.Order
	if err := db.First(&got, "id = ?", o.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != orders.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", got.Status)
	}

	var n int64
	if err := db.Model(&orders.OrderStatusEvent{}).Where("order_id = ?", o.ID).Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if n != int64(len(chain)) {
		t.Errorf("audit events = %d, want %d", n, len(chain))
	}
	if c := rec.Count(notify.ChannelAdmins, "order.status"); c != len(chain) {
		t.Errorf("admin order.status = %d, want %d", c, len(chain))
	}
}

func TestAdminTransitionRejectsSkipsAndBackwardMoves(t *testing.T) {
	db := testutil.NewDB(t)
	rec := testutil.NewRecorder()
	svc := newOrderService(t, db, rec)
	admin := orders.NewAdminService(db, payments.NewLedger(), rec)
	o := seedConfirmedOrder(t, db, svc)

	for _, bad := range []string{orders.StatusDelivered, orders.StatusPending, orders.StatusCompleted} {
		err := admin.Transition(context.Background(), orders.TransitionInput{
			OrderID: o.ID, ActorUserID: "admin-1", NewStatus: bad,
		})
		if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.Conflict {
			t.Errorf("CONFIRMED -> %s: err = %v, want conflict", bad, err)
		}
	}

	err := admin.Transition(context.Background(), orders.TransitionInput{
		OrderID: o.ID, ActorUserID: "admin-1", NewStatus: "SHIPPED",
	})
	if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.Invalid {
		t.Errorf("unknown status: err = %v, want invalid", err)
	}
}

func TestAdminTransitionRejectsUnpaidOrder(t *testing.T) {
	db := testutil.NewDB(t)
	rec := testutil.NewRecorder()
	svc := newOrderService(t, db, rec)
	admin := orders.NewAdminService(db, payments.NewLedger(), rec)

	item := testutil.SeedItem(t, db, "Samosa", "30.00", true)
	o, _, err := svc.Create(context.Background(), orders.CreateInput{
		CustomerID:      "cust-1",
		Lines:           []orders.CreateLine{{ItemID: item.ID, Quantity: 2}},
		DeliveryAddress: "12 MG Road",
		ContactNumber:   "+91 90000 00000",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// PENDING -> CONFIRMED is the reconciler's move, not an operator's
	err = admin.Transition(context.Background(), orders.TransitionInput{
		OrderID: o.ID, ActorUserID: "admin-1", NewStatus: orders.StatusConfirmed,
	})
	if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.Conflict {
		t.Fatalf("err = %v, want conflict", err)
	}

	var got orders.Order
	if err := db.First(&got, "id = ?", o.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != orders.StatusPending {
		t.Errorf("status = %s, want PENDING untouched", got.Status)
	}
}

func TestAdminCancelRefundsCompletedPayment(t *testing.T) {
	db := testutil.NewDB(t)
	rec := testutil.NewRecorder()
	svc := newOrderService(t, db, rec)
	admin := orders.NewAdminService(db, payments.NewLedger(), rec)
	o := seedConfirmedOrder(t, db, svc)

	err := admin.Transition(context.Background(), orders.TransitionInput{
		OrderID: o.ID, ActorUserID: "admin-1", NewStatus: orders.StatusCancelled, Note: "out of stock",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var pay payments.Payment
	if err := db.First(&pay, "order_id = ?", o.ID).Error; err != nil {
		t.Fatalf("payment: %v", err)
	}
	if pay.Status != payments.StatusRefunded {
		t.Errorf("payment status = %s, want REFUNDED", pay.Status)
	}
}
