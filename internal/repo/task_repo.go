// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Task model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a task is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - InsertTask(ctx, db, task) -> *domain.Task, error
//     Inserts a new Task row with UUID primary key and UTC timestamps.
//
//   - ListTasks(ctx, db) -> []domain.Task, error
//     Returns all live tasks ordered by creation time ascending.
//
//   - GetTask(ctx, db, id) -> *domain.Task, error
//     Fetches a single task by ID, or ErrNotFound if missing.
//
//   - UpdateTaskFields(ctx, db, id, fields) -> *domain.Task, error
//     Applies a partial update and returns the post-update row atomically.
//
//   - DeleteTask(ctx, db, id) -> bool, error
//     Soft-deletes a task; false when nothing matched.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-tasks-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// InsertTask persists t with a freshly generated ID and UTC timestamps.
// Any ID already present on t is overwritten: identifiers are store-generated.
func InsertTask(ctx context.Context, db *gorm.DB, t *domain.Task) (*domain.Task, error) {
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// ListTasks returns every live task ordered by creation time (oldest first).
// It returns an empty slice when there are none.
func ListTasks(ctx context.Context, db *gorm.DB) ([]domain.Task, error) {
	out := []domain.Task{}
	err := db.WithContext(ctx).
		Order("created_at asc").
		Order("id asc").
		Find(&out).Error
	return out, err
}

// GetTask fetches a single task by its ID. If the record does not exist (or
// was deleted), it returns ErrNotFound.
func GetTask(ctx context.Context, db *gorm.DB, id string) (*domain.Task, error) {
	var t domain.Task
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTaskFields applies the given column updates to task id inside a
// transaction and returns the row as it is after the update. Unknown keys in
// fields are dropped; an empty map only bumps updated_at. If no live row
// matches id, it returns ErrNotFound.
func UpdateTaskFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Task, error) {
	set := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		if domain.IsUpdatableColumn(k) {
			set[k] = v
		}
	}
	set["updated_at"] = time.Now().UTC()

	var out domain.Task
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Task{}).Where("id = ?", id).Updates(set)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask soft-deletes task id and reports whether a live row was removed.
func DeleteTask(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Task{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
