package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tabletrack.dev/app/internal/notify"
	"tabletrack.dev/app/internal/shared/apperr"
)

// AdminService drives the operator side of the status machine:
// CONFIRMED → PREPARING → PREPARED → OUT_FOR_DELIVERY → DELIVERED →
// COMPLETED, plus cancellation. PENDING→CONFIRMED belongs to the payment
// reconciler and is rejected here.
type AdminService struct {
	db       *gorm.DB
	ledger   PaymentLedger
	notifier notify.Publisher
}

func NewAdminService(db *gorm.DB, ledger PaymentLedger, notifier notify.Publisher) *AdminService {
	return &AdminService{db: db, ledger: ledger, notifier: notifier}
}

type TransitionInput struct {
	OrderID     string
	ActorUserID string // admin user id
	NewStatus   string
	Note        string
}

func (s *AdminService) Transition(ctx context.Context, in TransitionInput) error {
	if in.OrderID == "" || in.ActorUserID == "" {
		return apperr.InvalidErr("Missing order or actor.", nil)
	}
	if !ValidStatus(in.NewStatus) {
		return apperr.InvalidErr("Unknown order status.", nil)
	}

	var from string
	var refunded bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o Order
		if err := tx.WithContext(ctx).First(&o, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundErr("Order not found.")
			}
			return err
		}
		from = o.Status

		if !CanTransition(from, in.NewStatus) {
			return apperr.ConflictErr("Illegal status transition.")
		}
		// forward moves out of PENDING require a confirmed payment
		if from == StatusPending && in.NewStatus != StatusCancelled {
			return apperr.ConflictErr("Order is awaiting payment.")
		}

		now := time.Now()
		res := tx.WithContext(ctx).
			Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, from). // optimistic guard
			Updates(map[string]any{"status": in.NewStatus, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.ConflictErr("Order changed state, try again.")
		}

		if in.NewStatus == StatusCancelled {
			var err error
			refunded, err = s.ledger.MarkRefundedInTx(ctx, tx, o.ID)
			if err != nil {
				return err
			}
		}

		var notePtr *string
		if in.Note != "" {
			n := in.Note
			notePtr = &n
		}
		ev := OrderStatusEvent{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			ActorID:    in.ActorUserID,
			FromStatus: from,
			ToStatus:   in.NewStatus,
			Note:       notePtr,
			CreatedAt:  now,
		}
		return tx.WithContext(ctx).Create(&ev).Error
	})
	if err != nil {
		return err
	}

	msg := "Order " + statusMessage(in.NewStatus)
	if refunded {
		msg += ", payment marked refunded"
	}
	payload := map[string]any{
		"order_id":   in.OrderID,
		"new_status": in.NewStatus,
		"message":    msg,
		"timestamp":  time.Now().Unix(),
	}
	s.notifier.Publish(notify.OrderChannel(in.OrderID), "order.status", payload)
	s.notifier.Publish(notify.ChannelAdmins, "order.status", payload)
	return nil
}

func statusMessage(status string) string {
	switch status {
	case StatusConfirmed:
		return "confirmed"
	case StatusPreparing:
		return "is being prepared"
	case StatusPrepared:
		return "is ready"
	case StatusOutForDelivery:
		return "is out for delivery"
	case StatusDelivered:
		return "has been delivered"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "updated"
	}
}
