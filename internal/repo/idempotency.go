// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Idempotency
// model used to implement safe-retry semantics for POST endpoints.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-tasks-backend/internal/domain"
)

// GetIdempotency returns a live (non-expired) record for (collection, key)
// or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, collection, key string, now time.Time) (*domain.Idempotency, error) {
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		Where("expires_at IS NULL OR expires_at > ?", now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveIdempotency upserts the response recorded for (collection, key).
// A second save for the same pair overwrites body, status and expiry instead
// of failing. ttl <= 0 stores a record that never expires.
//
// There is no compare-and-set: two writers racing on a fresh key both
// succeed and the last one wins.
func SaveIdempotency(ctx context.Context, db *gorm.DB, collection, key string, body []byte, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		Collection: collection,
		Key:        key,
		Body:       body,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if ttl > 0 {
		exp := now.Add(ttl)
		rec.ExpiresAt = &exp
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "status", "updated_at", "expires_at"}),
		}).
		Create(rec).Error
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// IdempotencyRepo adapts the free functions above to the idempotency store
// contract used by the HTTP layer.
type IdempotencyRepo struct {
	DB  *gorm.DB
	TTL time.Duration

	now func() time.Time
}

// NewIdempotencyRepo returns a GORM-backed idempotency store. ttl <= 0 keeps
// records forever.
func NewIdempotencyRepo(db *gorm.DB, ttl time.Duration) *IdempotencyRepo {
	return &IdempotencyRepo{DB: db, TTL: ttl, now: time.Now}
}

// Find returns the stored response body for (collection, key).
func (r *IdempotencyRepo) Find(ctx context.Context, collection, key string) ([]byte, bool, error) {
	rec, err := GetIdempotency(ctx, r.DB, collection, key, r.now().UTC())
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec.Body, true, nil
}

// Save records body as the response for (collection, key).
func (r *IdempotencyRepo) Save(ctx context.Context, collection, key string, body []byte) error {
	_, err := SaveIdempotency(ctx, r.DB, collection, key, body, 201, r.TTL)
	return err
}
