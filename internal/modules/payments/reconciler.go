package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tabletrack.dev/app/internal/metrics"
	"tabletrack.dev/app/internal/modules/orders"
	"tabletrack.dev/app/internal/notify"
	"tabletrack.dev/app/internal/shared/apperr"
)

// Reconciler is the sole writer of PENDING→COMPLETED/FAILED on payment
// records and of PENDING→CONFIRMED on orders. Two entry points converge
// here: the client-submitted verification and the gateway webhook. Both
// funnel into one guarded conditional UPDATE, so whichever arrives first
// wins and the other observes a no-op.
type Reconciler struct {
	db       *gorm.DB
	notifier notify.Publisher
	logger   *slog.Logger

	verifySecret  string
	webhookSecret string
}

func NewReconciler(db *gorm.DB, notifier notify.Publisher, logger *slog.Logger, verifySecret, webhookSecret string) *Reconciler {
	return &Reconciler{
		db:            db,
		notifier:      notifier,
		logger:        logger,
		verifySecret:  verifySecret,
		webhookSecret: webhookSecret,
	}
}

type ConfirmInput struct {
	RemoteIntentID  string
	RemotePaymentID string
	Signature       string
	OrderID         string
}

type ConfirmResult struct {
	// Idempotent reports that the payment was already COMPLETED and this
	// call changed nothing (e.g. the webhook got there first).
	Idempotent bool
}

func (r *Reconciler) ConfirmPayment(ctx context.Context, in ConfirmInput) (ConfirmResult, error) {
	if in.RemoteIntentID == "" || in.RemotePaymentID == "" || in.Signature == "" || in.OrderID == "" {
		return ConfirmResult{}, apperr.InvalidErr("Missing payment verification fields.", nil)
	}
	if r.verifySecret == "" {
		return ConfirmResult{}, apperr.UnavailableErr("Payment gateway unavailable.")
	}

	expected := SignVerification(r.verifySecret, in.RemoteIntentID, in.RemotePaymentID)
	if !equalSignature(expected, in.Signature) {
		metrics.PaymentsFailed.WithLabelValues("verify").Inc()
		return ConfirmResult{}, apperr.SignatureErr("Payment verification failed.")
	}

	p, err := r.paymentByIntent(ctx, in.RemoteIntentID)
	if err != nil {
		return ConfirmResult{}, err
	}
	if p.OrderID != in.OrderID {
		return ConfirmResult{}, apperr.ConflictErr("Payment does not belong to this order.")
	}
	if p.Status == StatusCompleted {
		// webhook won the race; success, nothing to do
		return ConfirmResult{Idempotent: true}, nil
	}

	sig := in.Signature
	won, err := r.completeTx(ctx, completion{
		paymentID:       p.ID,
		orderID:         p.OrderID,
		remotePaymentID: in.RemotePaymentID,
		signature:       &sig,
		transactionDate: time.Now(),
	})
	if err != nil {
		return ConfirmResult{}, apperr.Wrap(err)
	}
	if !won {
		return ConfirmResult{Idempotent: true}, nil
	}

	metrics.PaymentsConfirmed.WithLabelValues("verify").Inc()
	r.publishCompleted(ctx, p.OrderID)
	return ConfirmResult{}, nil
}

// HandleWebhookEvent processes one raw gateway delivery. The gateway may
// deliver the same event any number of times; anything but a signature
// failure or malformed payload that cannot be applied returns an error so
// the caller answers non-2xx and the gateway redelivers.
func (r *Reconciler) HandleWebhookEvent(ctx context.Context, raw []byte, signatureHeader string) error {
	if r.webhookSecret == "" {
		return apperr.UnavailableErr("Payment gateway unavailable.")
	}

	expected := SignWebhook(r.webhookSecret, raw)
	if !equalSignature(expected, signatureHeader) {
		metrics.WebhookEvents.WithLabelValues("unverified", "signature_invalid").Inc()
		return apperr.SignatureErr("Webhook signature verification failed.")
	}

	ev, err := ParseEvent(raw)
	if err != nil {
		// the body will not change on redelivery; 400, no retry expected
		return apperr.InvalidErr("Malformed webhook payload.", nil)
	}

	switch ev.Kind {
	case EventPaymentCaptured:
		return r.handleCaptured(ctx, ev, raw)
	case EventPaymentFailed:
		return r.handleFailed(ctx, ev, raw)
	default:
		// forward-compatible with gateway additions
		r.logger.Info("ignoring webhook event", "event", ev.Name)
		metrics.WebhookEvents.WithLabelValues(ev.Name, "ignored").Inc()
		return nil
	}
}

func (r *Reconciler) handleCaptured(ctx context.Context, ev Event, raw []byte) error {
	p, err := r.paymentByIntent(ctx, ev.Payment.OrderID)
	if err != nil {
		// unknown intent: 500 so the gateway retries; the record may not
		// be visible yet if deliveries arrive out of order
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.NotFound {
			return apperr.Wrap(fmt.Errorf("webhook for unknown intent %q", ev.Payment.OrderID))
		}
		return err
	}

	var won bool
	var dup bool
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.insertEventInTx(ctx, tx, ev, raw); err != nil {
			if isDup(err) {
				dup = true
				return nil
			}
			return err
		}

		txnDate := time.Now()
		if ev.Payment.CreatedAt > 0 {
			txnDate = time.Unix(ev.Payment.CreatedAt, 0)
		}
		method := ev.Payment.Method
		var methodPtr *string
		if method != "" {
			methodPtr = &method
		}
		var err error
		won, err = r.completeInTx(ctx, tx, completion{
			paymentID:       p.ID,
			orderID:         p.OrderID,
			remotePaymentID: ev.Payment.ID,
			method:          methodPtr,
			transactionDate: txnDate,
		})
		return err
	})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Name, "error").Inc()
		return apperr.Wrap(err)
	}

	switch {
	case dup:
		metrics.WebhookEvents.WithLabelValues(ev.Name, "duplicate").Inc()
	case !won:
		// verification path got there first
		metrics.WebhookEvents.WithLabelValues(ev.Name, "noop").Inc()
	default:
		metrics.WebhookEvents.WithLabelValues(ev.Name, "processed").Inc()
		metrics.PaymentsConfirmed.WithLabelValues("webhook").Inc()
		r.publishCompleted(ctx, p.OrderID)
	}
	return nil
}

func (r *Reconciler) handleFailed(ctx context.Context, ev Event, raw []byte) error {
	p, err := r.paymentByIntent(ctx, ev.Payment.OrderID)
	if err != nil {
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.NotFound {
			return apperr.Wrap(fmt.Errorf("webhook for unknown intent %q", ev.Payment.OrderID))
		}
		return err
	}
	if p.Status == StatusCompleted {
		// a late failure notification must never downgrade a completed
		// payment
		metrics.WebhookEvents.WithLabelValues(ev.Name, "stale").Inc()
		return nil
	}

	var won bool
	var dup bool
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.insertEventInTx(ctx, tx, ev, raw); err != nil {
			if isDup(err) {
				dup = true
				return nil
			}
			return err
		}
		res := tx.WithContext(ctx).
			Model(&Payment{}).
			Where("id = ? AND status = ?", p.ID, StatusPending).
			Updates(map[string]any{"status": StatusFailed, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		won = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Name, "error").Inc()
		return apperr.Wrap(err)
	}

	switch {
	case dup:
		metrics.WebhookEvents.WithLabelValues(ev.Name, "duplicate").Inc()
	case !won:
		metrics.WebhookEvents.WithLabelValues(ev.Name, "noop").Inc()
	default:
		metrics.WebhookEvents.WithLabelValues(ev.Name, "processed").Inc()
		metrics.PaymentsFailed.WithLabelValues("webhook").Inc()
		// order stays PENDING so the customer may retry payment
		r.publishFailed(ctx, p.OrderID)
	}
	return nil
}

type completion struct {
	paymentID       string
	orderID         string
	remotePaymentID string
	signature       *string
	method          *string
	transactionDate time.Time
}

func (r *Reconciler) completeTx(ctx context.Context, c completion) (bool, error) {
	var won bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		won, err = r.completeInTx(ctx, tx, c)
		return err
	})
	return won, err
}

// completeInTx performs the guarded PENDING→COMPLETED transition as a
// single conditional write. RowsAffected tells us whether this caller won;
// there is no read-then-write window between the two entry points.
func (r *Reconciler) completeInTx(ctx context.Context, tx *gorm.DB, c completion) (bool, error) {
	now := time.Now()
	updates := map[string]any{
		"status":            StatusCompleted,
		"remote_payment_id": c.remotePaymentID,
		"transaction_date":  c.transactionDate,
		"updated_at":        now,
	}
	if c.signature != nil {
		updates["signature"] = *c.signature
	}
	if c.method != nil {
		updates["method"] = *c.method
	}

	res := tx.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND status <> ?", c.paymentID, StatusCompleted).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	// conditional as well: never resurrect a cancelled order
	return true, tx.WithContext(ctx).
		Model(&orders.Order{}).
		Where("id = ? AND status = ?", c.orderID, orders.StatusPending).
		Updates(map[string]any{"status": orders.StatusConfirmed, "updated_at": now}).Error
}

func (r *Reconciler) insertEventInTx(ctx context.Context, tx *gorm.DB, ev Event, raw []byte) error {
	ge := GatewayEvent{
		ID:              uuid.NewString(),
		EventType:       ev.Name,
		RemotePaymentID: ev.Payment.ID,
		PayloadJSON:     datatypes.JSON(raw),
		ReceivedAt:      time.Now(),
	}
	return tx.WithContext(ctx).Create(&ge).Error
}

func (r *Reconciler) paymentByIntent(ctx context.Context, remoteIntentID string) (Payment, error) {
	if remoteIntentID == "" {
		return Payment{}, apperr.InvalidErr("Missing payment intent id.", nil)
	}
	var p Payment
	err := r.db.WithContext(ctx).First(&p, "remote_intent_id = ?", remoteIntentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, apperr.NotFoundErr("Payment not found.")
		}
		return Payment{}, apperr.Wrap(err)
	}
	return p, nil
}

// Post-commit fan-out. This is the first moment an order becomes visible
// on the admin channel: unpaid orders never reach operational view.
func (r *Reconciler) publishCompleted(ctx context.Context, orderID string) {
	var ord orders.Order
	if err := r.db.WithContext(ctx).First(&ord, "id = ?", orderID).Error; err != nil {
		r.logger.Error("post-commit order read failed", "order_id", orderID, "err", err)
		return
	}

	now := time.Now().Unix()
	r.notifier.Publish(notify.CustomerChannel(ord.CustomerID), "payment.success", map[string]any{
		"order_id":  ord.ID,
		"amount":    ord.TotalAmount,
		"currency":  ord.Currency,
		"timestamp": now,
	})
	r.notifier.Publish(notify.OrderChannel(ord.ID), "order.confirmed", map[string]any{
		"order_id":   ord.ID,
		"new_status": orders.StatusConfirmed,
		"message":    "Payment received, order confirmed.",
		"timestamp":  now,
	})
	r.notifier.Publish(notify.ChannelAdmins, "order.new", map[string]any{
		"order_id":    ord.ID,
		"customer_id": ord.CustomerID,
		"amount":      ord.TotalAmount,
		"currency":    ord.Currency,
		"timestamp":   now,
	})
}

func (r *Reconciler) publishFailed(ctx context.Context, orderID string) {
	var ord orders.Order
	if err := r.db.WithContext(ctx).First(&ord, "id = ?", orderID).Error; err != nil {
		r.logger.Error("post-commit order read failed", "order_id", orderID, "err", err)
		return
	}
	r.notifier.Publish(notify.CustomerChannel(ord.CustomerID), "payment.failed", map[string]any{
		"order_id":  ord.ID,
		"message":   "Payment failed, you can retry from the order page.",
		"timestamp": time.Now().Unix(),
	})
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
