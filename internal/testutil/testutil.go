package testutil

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tabletrack.dev/app/internal/modules/catalog"
	"tabletrack.dev/app/internal/modules/orders"
	"tabletrack.dev/app/internal/modules/payments"
)

// NewDB opens a fresh in-memory SQLite database migrated with the full
// schema. cache=shared with a single connection keeps the database alive
// and visible across gorm's pool.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&catalog.Item{},
		&orders.Order{},
		&orders.OrderItem{},
		&orders.OrderStatusEvent{},
		&payments.Payment{},
		&payments.GatewayEvent{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SeedItem inserts a menu item and returns it.
func SeedItem(t *testing.T, db *gorm.DB, name, price string, available bool) catalog.Item {
	t.Helper()
	it := catalog.Item{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Available: available,
	}
	if err := db.Create(&it).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if !available {
		// gorm replaces a zero-valued field with its default on create, so
		// Available=false must be written explicitly after the insert.
		if err := db.Model(&catalog.Item{}).Where("id = ?", it.ID).
			Update("available", false).Error; err != nil {
			t.Fatalf("seed item availability: %v", err)
		}
	}
	return it
}

// PublishedEvent is one recorded fan-out call.
type PublishedEvent struct {
	Channel string
	Event   string
	Payload any
}

// Recorder is a notify.Publisher that remembers everything it was asked
// to deliver.
type Recorder struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Publish(channel, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, PublishedEvent{Channel: channel, Event: event, Payload: payload})
}

// Count returns how many events matched the given channel and event name.
func (r *Recorder) Count(channel, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.Events {
		if e.Channel == channel && e.Event == event {
			n++
		}
	}
	return n
}
