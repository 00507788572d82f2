package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrItemNotFound = errors.New("menu item not found")

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetItem(ctx context.Context, id string) (Item, error) {
	var it Item
	if err := r.db.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return it, nil
}
