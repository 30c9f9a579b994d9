package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sonolens/api/internal/model"
)

// HistoryStore records the playlists users saved, in sqlite
type HistoryStore struct {
	db *gorm.DB
}

// OpenHistory opens (and creates if needed) the sqlite database at path and
// migrates the playlist_records table. ":memory:" gives a private in-memory database.
func OpenHistory(path string) (*HistoryStore, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening db file at '%s': %w", path, err)
	}

	if path == ":memory:" {
		// each pooled connection would otherwise see its own empty database
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := gdb.AutoMigrate(&model.PlaylistRecord{}); err != nil {
		return nil, fmt.Errorf("error migrating db at '%s': %w", path, err)
	}

	return &HistoryStore{db: gdb}, nil
}

// Record inserts a playlist record, filling in its ID and creation time when unset
func (s *HistoryStore) Record(ctx context.Context, rec *model.PlaylistRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("error inserting playlist record '%s': %w", rec.SpotifyPlaylistID, err)
	}
	return nil
}

// ListByUser returns a page of the user's records, newest first, plus the total count
func (s *HistoryStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.PlaylistRecord, int64, error) {
	var total int64
	q := s.db.WithContext(ctx).Model(&model.PlaylistRecord{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting playlist records: %w", err)
	}

	records := []model.PlaylistRecord{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).
		Error; err != nil {
		return nil, 0, fmt.Errorf("error listing playlist records: %w", err)
	}
	return records, total, nil
}

// Ping checks the database connection
func (s *HistoryStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *HistoryStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
