// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed write,
// keyed by (collection, key). It enables safe retries for POST operations by
// returning the originally produced response body without re-executing side
// effects.
//
// ExpiresAt is nil when records are kept forever.
type Idempotency struct {
	ID         string     `gorm:"type:TEXT NOT NULL;primaryKey"`
	Collection string     `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_collection_key,priority:1"`
	Key        string     `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_collection_key,priority:2"`
	Body       []byte     `gorm:"type:BLOB NOT NULL"`
	Status     int        `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time  `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"type:DATETIME NOT NULL;autoUpdateTime"`
	ExpiresAt  *time.Time `gorm:"type:DATETIME;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
