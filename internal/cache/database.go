package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mkarran/accessgate/internal/models"
)

var errStoreNotInitialised = errors.New("cache: database store not initialised")

// DatabaseStore keeps cache entries in the primary SQL database. It is the
// default backend when Redis is not configured; every instance sharing the
// database shares the cache.
type DatabaseStore struct {
	db *gorm.DB
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) conn(ctx context.Context) (*gorm.DB, error) {
	if s == nil {
		return nil, errStoreNotInitialised
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx), nil
}

// IncrementWithTTL bumps the counter stored under key, starting a fresh
// window when the entry is missing or expired. The row lock keeps concurrent
// increments from losing updates.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		window = time.Minute
	}

	now := time.Now()
	expiry := now.Add(window)
	var count int64

	err = conn.Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			count = 1
			return tx.Create(&models.CacheEntry{
				Key:       key,
				Value:     counterValue(count),
				ExpiresAt: expiry,
			}).Error
		case err != nil:
			return err
		}

		if entry.ExpiresAt.Before(now) {
			count = 1
		} else {
			previous, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count = previous + 1
		}
		entry.Value = counterValue(count)
		entry.ExpiresAt = expiry
		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return count, expiry.Sub(now), nil
}

// Set writes the value under key. A non-positive ttl stores the entry without
// an expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}

	entry := models.CacheEntry{Key: key, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	return conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

// Get reads the value under key. An expired entry counts as a miss and is
// purged on the way out.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, false, err
	}

	var entry models.CacheEntry
	err = conn.Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}

	return entry.Value, true, nil
}

// Delete removes the given keys. Missing keys are not an error.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	return conn.Where("key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

func counterValue(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}
