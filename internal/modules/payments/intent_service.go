package payments

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tabletrack.dev/app/internal/gateway"
	"tabletrack.dev/app/internal/modules/orders"
	"tabletrack.dev/app/internal/shared/apperr"
)

// IntentService opens the remote payment intent for an existing order.
// gw is nil when the gateway is not configured for this deployment.
type IntentService struct {
	db     *gorm.DB
	gw     gateway.Client
	logger *slog.Logger
}

func NewIntentService(db *gorm.DB, gw gateway.Client, logger *slog.Logger) *IntentService {
	return &IntentService{db: db, gw: gw, logger: logger}
}

type IntentInput struct {
	OrderID     string
	ActorUserID string
	IsAdmin     bool
	// Amount is the client's idea of what it is about to pay; zero means
	// "don't check". A mismatch is rejected before any gateway call.
	Amount decimal.Decimal
}

// IntentDescriptor is what the client SDK needs to open the gateway's
// checkout flow.
type IntentDescriptor struct {
	RemoteIntentID string          `json:"remote_intent_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	KeyID          string          `json:"key_id"`
}

func (s *IntentService) CreateIntent(ctx context.Context, in IntentInput) (IntentDescriptor, error) {
	if in.OrderID == "" {
		return IntentDescriptor{}, apperr.InvalidErr("Missing order id.", nil)
	}

	// Phase-1: preconditions, no writes yet.
	var pay Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ord orders.Order
		if err := tx.WithContext(ctx).First(&ord, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundErr("Order not found.")
			}
			return err
		}
		if !in.IsAdmin && in.ActorUserID != "" && ord.CustomerID != in.ActorUserID {
			return apperr.ConflictErr("Order belongs to another customer.")
		}

		if err := tx.WithContext(ctx).First(&pay, "order_id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// orders are never created without their payment record
				return apperr.Wrap(ErrNoPaymentRecord)
			}
			return err
		}
		if pay.Status == StatusCompleted {
			return apperr.ConflictErr("Order is already paid.")
		}
		if !in.Amount.IsZero() && !in.Amount.Equal(pay.Amount) {
			return apperr.InvalidErr("Amount does not match the order total.", nil)
		}
		return nil
	})
	if err != nil {
		return IntentDescriptor{}, err
	}

	if s.gw == nil {
		return IntentDescriptor{}, apperr.UnavailableErr("Payment gateway unavailable.")
	}

	// Phase-2: gateway call outside any transaction.
	ro, err := s.gw.CreateRemoteOrder(ctx, pay.Amount, pay.Currency, pay.OrderID)
	if err != nil {
		if gateway.IsUnavailable(err) {
			s.logger.Warn("gateway unreachable", "order_id", in.OrderID, "err", err)
			return IntentDescriptor{}, apperr.UnavailableErr("Payment gateway unavailable.")
		}
		return IntentDescriptor{}, apperr.Wrap(err)
	}

	// Phase-3: persist the correlation id. A previously FAILED attempt is
	// reset to PENDING so the customer can retry with the fresh intent.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"remote_intent_id": ro.ID,
			"updated_at":       time.Now(),
		}
		if pay.Status == StatusFailed {
			updates["status"] = StatusPending
		}
		return tx.WithContext(ctx).
			Model(&Payment{}).
			Where("id = ? AND status <> ?", pay.ID, StatusCompleted).
			Updates(updates).Error
	})
	if err != nil {
		return IntentDescriptor{}, apperr.Wrap(err)
	}

	return IntentDescriptor{
		RemoteIntentID: ro.ID,
		Amount:         pay.Amount,
		Currency:       pay.Currency,
		KeyID:          s.gw.KeyID(),
	}, nil
}
