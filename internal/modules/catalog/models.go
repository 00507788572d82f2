package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is the menu-item row this core reads. The catalog CRUD surface
// lives in another subsystem; orders only need price and availability.
type Item struct {
	ID        string          `gorm:"type:char(36);primaryKey"`
	Name      string          `gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Available bool            `gorm:"not null;default:true"`
	CreatedAt time.Time       `gorm:"precision:3;not null"`
	UpdatedAt time.Time       `gorm:"precision:3;not null"`
}

func (Item) TableName() string { return "menu_items" }
