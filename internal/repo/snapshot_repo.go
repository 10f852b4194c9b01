// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file maintains the task_snapshots read model.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-tasks-backend/internal/domain"
)

// UpsertSnapshot inserts or fully replaces the snapshot row keyed by s.ID.
func UpsertSnapshot(ctx context.Context, db *gorm.DB, s *domain.TaskSnapshot) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(s).Error
}

// DeleteSnapshot removes the snapshot for task id. Deleting a missing
// snapshot is not an error.
func DeleteSnapshot(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.TaskSnapshot{}).Error
}

// GetSnapshot returns the snapshot for task id or ErrNotFound.
func GetSnapshot(ctx context.Context, db *gorm.DB, id string) (*domain.TaskSnapshot, error) {
	var s domain.TaskSnapshot
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
