package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger is the small seam the orders module uses to keep the payment
// record in lockstep with the order inside one transaction.
type Ledger struct{}

func NewLedger() *Ledger { return &Ledger{} }

func (Ledger) OpenPendingInTx(ctx context.Context, tx *gorm.DB, orderID string, amount decimal.Decimal, currency string) error {
	now := time.Now()
	p := Payment{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Amount:    amount,
		Currency:  currency,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.WithContext(ctx).Create(&p).Error
}

// MarkRefundedInTx flips a COMPLETED payment to REFUNDED. This is a
// compensating status marker on cancellation; no gateway refund API is
// called anywhere.
func (Ledger) MarkRefundedInTx(ctx context.Context, tx *gorm.DB, orderID string) (bool, error) {
	res := tx.WithContext(ctx).
		Model(&Payment{}).
		Where("order_id = ? AND status = ?", orderID, StatusCompleted).
		Updates(map[string]any{"status": StatusRefunded, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
