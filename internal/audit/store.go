package audit

import (
	"context"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// StoreSink persists events to a local SQLite database. Writes are
// best-effort: failures are logged and dropped, never propagated.
type StoreSink struct {
	db *gorm.DB
}

// OpenStore opens (creating if needed) the audit database at path and
// migrates the schema.
func OpenStore(path string) (*StoreSink, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, err
	}
	return &StoreSink{db: db}, nil
}

func (s *StoreSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.db == nil {
		return
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		log.Printf("audit: write failed: %v", err)
	}
}

// Recent returns up to limit events, newest first.
func (s *StoreSink) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []Event
	err := s.db.WithContext(ctx).
		Order("time DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
