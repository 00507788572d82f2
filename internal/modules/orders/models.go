package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              string          `gorm:"type:char(36);primaryKey"`
	CustomerID      string          `gorm:"type:char(36);not null;index:ix_orders_customer_id"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency        string          `gorm:"type:char(3);not null"`
	Status          string          `gorm:"type:varchar(32);not null;index:ix_orders_status"`
	DeliveryAddress string          `gorm:"type:varchar(512);not null"`
	ContactNumber   string          `gorm:"type:varchar(32);not null"`
	CreatedAt       time.Time       `gorm:"precision:3;not null"`
	UpdatedAt       time.Time       `gorm:"precision:3;not null"`
}

func (Order) TableName() string { return "orders" }

// OrderItem rows are written once with the order and never touched again;
// price_at_time freezes the catalog price at creation.
type OrderItem struct {
	ID          string          `gorm:"type:char(36);primaryKey"`
	OrderID     string          `gorm:"type:char(36);not null;index:ix_order_items_order_id"`
	MenuItemID  string          `gorm:"type:char(36);not null"`
	Name        string          `gorm:"type:varchar(255);not null"`
	Quantity    int             `gorm:"not null"`
	PriceAtTime decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time       `gorm:"precision:3;not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderStatusEvent is the audit row written alongside every status-machine
// transition (operator actions and cancellations).
type OrderStatusEvent struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	OrderID    string    `gorm:"type:char(36);not null;index:ix_order_status_events_order_id"`
	ActorID    string    `gorm:"type:char(36);not null"`
	FromStatus string    `gorm:"type:varchar(32);not null"`
	ToStatus   string    `gorm:"type:varchar(32);not null"`
	Note       *string   `gorm:"type:varchar(255)"`
	CreatedAt  time.Time `gorm:"precision:3;not null"`
}

func (OrderStatusEvent) TableName() string { return "order_status_events" }
