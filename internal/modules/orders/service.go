package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tabletrack.dev/app/internal/modules/catalog"
	"tabletrack.dev/app/internal/notify"
	"tabletrack.dev/app/internal/shared/apperr"
)

// Catalog is the external lookup this service needs from the menu
// subsystem. Availability is a plain read; there is no reservation, so two
// concurrent orders can both pass the check for the same scarce item.
type Catalog interface {
	GetItem(ctx context.Context, id string) (catalog.Item, error)
}

// PaymentLedger is implemented by the payments module. Both methods run
// inside the caller's transaction so the order and its payment record
// commit or roll back together.
type PaymentLedger interface {
	OpenPendingInTx(ctx context.Context, tx *gorm.DB, orderID string, amount decimal.Decimal, currency string) error
	// MarkRefundedInTx flips a COMPLETED payment to REFUNDED and reports
	// whether anything changed. Status marker only, no gateway call.
	MarkRefundedInTx(ctx context.Context, tx *gorm.DB, orderID string) (bool, error)
}

type Service struct {
	db       *gorm.DB
	catalog  Catalog
	ledger   PaymentLedger
	notifier notify.Publisher
	currency string
}

func NewService(db *gorm.DB, cat Catalog, ledger PaymentLedger, notifier notify.Publisher, currency string) *Service {
	return &Service{db: db, catalog: cat, ledger: ledger, notifier: notifier, currency: currency}
}

type CreateLine struct {
	ItemID   string
	Quantity int
}

type CreateInput struct {
	CustomerID      string
	Lines           []CreateLine
	DeliveryAddress string
	ContactNumber   string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Order, []OrderItem, error) {
	if in.CustomerID == "" || in.DeliveryAddress == "" || in.ContactNumber == "" {
		return Order{}, nil, apperr.InvalidErr("Missing order details.", nil)
	}
	if len(in.Lines) == 0 {
		return Order{}, nil, apperr.InvalidErr("Order has no items.", nil)
	}

	now := time.Now()
	orderID := uuid.NewString()
	total := decimal.Zero
	items := make([]OrderItem, 0, len(in.Lines))

	// Price snapshot: the catalog's current price is frozen onto the line;
	// later catalog changes never touch an existing order.
	for _, ln := range in.Lines {
		if ln.Quantity <= 0 {
			return Order{}, nil, apperr.InvalidErr("Quantity must be at least 1.", nil)
		}
		it, err := s.catalog.GetItem(ctx, ln.ItemID)
		if err != nil {
			if errors.Is(err, catalog.ErrItemNotFound) {
				return Order{}, nil, apperr.NotFoundErr("Menu item not found.")
			}
			return Order{}, nil, apperr.Wrap(err)
		}
		if !it.Available {
			return Order{}, nil, apperr.InvalidErr("Menu item is currently unavailable.", nil)
		}

		sub := it.Price.Mul(decimal.NewFromInt(int64(ln.Quantity)))
		total = total.Add(sub)
		items = append(items, OrderItem{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			MenuItemID:  it.ID,
			Name:        it.Name,
			Quantity:    ln.Quantity,
			PriceAtTime: it.Price,
			Subtotal:    sub,
			CreatedAt:   now,
		})
	}

	o := Order{
		ID:              orderID,
		CustomerID:      in.CustomerID,
		TotalAmount:     total,
		Currency:        s.currency,
		Status:          StatusPending,
		DeliveryAddress: in.DeliveryAddress,
		ContactNumber:   in.ContactNumber,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(&o).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
			return err
		}
		return s.ledger.OpenPendingInTx(ctx, tx, o.ID, total, s.currency)
	})
	if err != nil {
		return Order{}, nil, apperr.Wrap(err)
	}

	// No notification here: an order without a confirmed payment must not
	// reach the admin channel. The reconciler announces it after payment.
	return o, items, nil
}

type CancelInput struct {
	OrderID string
	ActorID string
	IsAdmin bool
	Note    string
}

func (s *Service) Cancel(ctx context.Context, in CancelInput) error {
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
		if !in.IsAdmin && o.CustomerID != in.ActorID {
			return apperr.ConflictErr("Order belongs to another customer.")
		}
		if !CanTransition(o.Status, StatusCancelled) {
			return apperr.ConflictErr("Order can no longer be cancelled.")
		}
		from = o.Status

		now := time.Now()
		res := tx.WithContext(ctx).
			Model(&Order{}).
			Where("id = ? AND status = ?", o.ID, from). // optimistic guard
			Updates(map[string]any{"status": StatusCancelled, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.ConflictErr("Order changed state, try again.")
		}

		var err error
		refunded, err = s.ledger.MarkRefundedInTx(ctx, tx, o.ID)
		if err != nil {
			return err
		}

		var notePtr *string
		if in.Note != "" {
			n := in.Note
			notePtr = &n
		}
		ev := OrderStatusEvent{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			ActorID:    in.ActorID,
			FromStatus: from,
			ToStatus:   StatusCancelled,
			Note:       notePtr,
			CreatedAt:  now,
		}
		return tx.WithContext(ctx).Create(&ev).Error
	})
	if err != nil {
		return err
	}

	msg := "Order cancelled."
	if refunded {
		msg = "Order cancelled, payment marked refunded."
	}
	s.publishStatus(in.OrderID, StatusCancelled, msg)
	return nil
}

func (s *Service) publishStatus(orderID, newStatus, message string) {
	payload := map[string]any{
		"order_id":   orderID,
		"new_status": newStatus,
		"message":    message,
		"timestamp":  time.Now().Unix(),
	}
	s.notifier.Publish(notify.OrderChannel(orderID), "order.status", payload)
	s.notifier.Publish(notify.ChannelAdmins, "order.status", payload)
}
