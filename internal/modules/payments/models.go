package payments

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusRefunded  = "REFUNDED"
)

// Payment is the single payment record per order, created PENDING in the
// same transaction as the order. remote_intent_id is the gateway-side
// correlation id and the join key for webhook delivery, which never sees
// our order ids.
type Payment struct {
	ID              string          `gorm:"type:char(36);primaryKey"`
	OrderID         string          `gorm:"type:char(36);not null;uniqueIndex:ux_payments_order_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency        string          `gorm:"type:char(3);not null"`
	Status          string          `gorm:"type:varchar(32);not null"`
	RemoteIntentID  *string         `gorm:"type:varchar(64);uniqueIndex:ux_payments_remote_intent_id"`
	RemotePaymentID *string         `gorm:"type:varchar(64)"`
	Signature       *string         `gorm:"type:varchar(128)"`
	Method          *string         `gorm:"type:varchar(32)"`
	TransactionDate *time.Time      `gorm:"precision:3"`
	CreatedAt       time.Time       `gorm:"precision:3;not null"`
	UpdatedAt       time.Time       `gorm:"precision:3;not null"`
}

func (Payment) TableName() string { return "payments" }

// GatewayEvent dedupes webhook deliveries. The row is inserted in the same
// transaction as the event's effects, so a failed apply rolls it back and
// the gateway's redelivery gets processed.
type GatewayEvent struct {
	ID              string         `gorm:"type:char(36);primaryKey"`
	EventType       string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_gateway_events_type_payment,priority:1"`
	RemotePaymentID string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_gateway_events_type_payment,priority:2"`
	PayloadJSON     datatypes.JSON `gorm:"type:json;not null"`
	ReceivedAt      time.Time      `gorm:"precision:3;not null"`
}

func (GatewayEvent) TableName() string { return "gateway_events" }
