// Package storage is the device-local snapshot store: named JSON blobs in
// a sqlite file. Snapshots carry no version or expiry; readers decide how
// stale a value they are willing to show.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Blob struct {
	Name      string `gorm:"primaryKey"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (Blob) TableName() string { return "blobs" }

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.AutoMigrate(&Blob{}); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	return &Store{db: db}, nil
}

// PutJSON stores v under name, replacing any previous value.
func (s *Store) PutJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", name, err)
	}
	blob := Blob{Name: name, Data: data, UpdatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&blob).Error
}

// GetJSON loads the blob stored under name into out. The boolean reports
// whether a snapshot existed.
func (s *Store) GetJSON(name string, out any) (bool, error) {
	var blob Blob
	if err := s.db.First(&blob, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(blob.Data, out); err != nil {
		return false, fmt.Errorf("decode snapshot %q: %w", name, err)
	}
	return true, nil
}

func (s *Store) Delete(name string) error {
	return s.db.Delete(&Blob{}, "name = ?", name).Error
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
