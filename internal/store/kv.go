package store

import (
	"errors"
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCapacityExceeded is returned when a write would push the backing medium
// past its byte quota.
var ErrCapacityExceeded = errors.New("store: capacity exceeded")

// DefaultQuotaBytes mirrors the ~5MB budget browsers grant localStorage.
const DefaultQuotaBytes int64 = 5 * 1024 * 1024

// KV is the storage medium beneath the record store: a flat, synchronous
// key-value space with a fixed byte quota.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)
}

type kvEntry struct {
	Key   string `gorm:"column:key;primaryKey;size:190;not null"`
	Value string `gorm:"column:value;type:text;not null"`
}

// TableName provides the explicit table binding for GORM.
func (kvEntry) TableName() string {
	return "kv_entries"
}

// SQLiteKVConfig configures the durable key-value medium.
type SQLiteKVConfig struct {
	Path       string
	QuotaBytes int64
	Logger     *zap.Logger
}

// SQLiteKV persists the key-value space in a single SQLite table. The byte
// quota is enforced in code so capacity failures behave identically across
// media.
type SQLiteKV struct {
	db    *gorm.DB
	quota int64
}

// OpenSQLiteKV opens (or creates) the backing database and migrates the schema.
func OpenSQLiteKV(cfg SQLiteKVConfig) (*SQLiteKV, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: database path is required")
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, err
	}

	quota := cfg.QuotaBytes
	if quota <= 0 {
		quota = DefaultQuotaBytes
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("key-value store opened",
			zap.String("path", cfg.Path),
			zap.Int64("quota_bytes", quota))
	}

	return &SQLiteKV{db: db, quota: quota}, nil
}

// DB exposes the underlying connection so callers can close it on shutdown.
func (kv *SQLiteKV) DB() *gorm.DB {
	return kv.db
}

// Get returns the stored value and whether the key exists.
func (kv *SQLiteKV) Get(key string) (string, bool, error) {
	var entry kvEntry
	err := kv.db.Where("key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set stores the value, failing with ErrCapacityExceeded when the write would
// push total usage past the quota.
func (kv *SQLiteKV) Set(key, value string) error {
	used, err := kv.usedBytes()
	if err != nil {
		return err
	}

	var existing kvEntry
	err = kv.db.Where("key = ?", key).Take(&existing).Error
	if err == nil {
		used -= int64(len(existing.Key) + len(existing.Value))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if used+int64(len(key)+len(value)) > kv.quota {
		return ErrCapacityExceeded
	}

	return kv.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&kvEntry{Key: key, Value: value}).Error
}

// Delete removes the key; deleting an absent key is not an error.
func (kv *SQLiteKV) Delete(key string) error {
	return kv.db.Where("key = ?", key).Delete(&kvEntry{}).Error
}

// Keys lists every stored key.
func (kv *SQLiteKV) Keys() ([]string, error) {
	var keys []string
	if err := kv.db.Model(&kvEntry{}).Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (kv *SQLiteKV) usedBytes() (int64, error) {
	var total int64
	err := kv.db.Model(&kvEntry{}).
		Select("COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0)").
		Scan(&total).Error
	return total, err
}
