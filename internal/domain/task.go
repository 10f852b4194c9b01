// Package domain defines the persistence models for tasks and their
// read-model snapshots. These types are mapped with GORM and form the core
// data layer of the tasks service.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Snapshot status values derived from Task.Concluida.
const (
	StatusOpen = "open"
	StatusDone = "done"
)

// Task represents a single to-do record.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), generated on insert.
//   - Titulo: optional short title; stored as "" when omitted.
//   - Descricao: required free-form description.
//   - Concluida: completion flag, false on creation unless supplied.
//   - Owner: subject of the identity that created the task (nullable).
//   - CreatedAt / UpdatedAt: UTC timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
//
// ID and Owner are never modified after creation.
type Task struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Titulo    string         `json:"titulo"     gorm:"type:varchar(255);not null;default:''"`
	Descricao string         `json:"descricao"  gorm:"type:text;not null"`
	Concluida bool           `json:"concluida"  gorm:"not null;default:false"`
	Owner     *string        `json:"owner,omitempty" gorm:"type:varchar(255);index:idx_task_owner"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_task_created"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Task.
func (Task) TableName() string { return "tasks" }

// Task columns a partial update may set.
const (
	ColTitulo    = "titulo"
	ColDescricao = "descricao"
	ColConcluida = "concluida"
)

// IsUpdatableColumn reports whether col may be changed by a partial update.
func IsUpdatableColumn(col string) bool {
	switch col {
	case ColTitulo, ColDescricao, ColConcluida:
		return true
	}
	return false
}

// Status maps the completion flag onto the snapshot status enumeration.
func (t Task) Status() string {
	if t.Concluida {
		return StatusDone
	}
	return StatusOpen
}

// TaskSnapshot is a derived, eventually-consistent projection of a Task.
// It shares the task ID and is never authoritative: a missing or stale
// snapshot must not affect task operations.
type TaskSnapshot struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Titulo    string    `json:"titulo"     gorm:"type:varchar(255);not null;default:''"`
	Descricao string    `json:"descricao"  gorm:"type:text;not null"`
	Owner     *string   `json:"owner,omitempty" gorm:"type:varchar(255)"`
	Status    string    `json:"status"     gorm:"type:varchar(8);not null;check:status IN ('open','done')"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for TaskSnapshot.
func (TaskSnapshot) TableName() string { return "task_snapshots" }

// SnapshotOf builds the projection row for t.
func SnapshotOf(t Task) TaskSnapshot {
	return TaskSnapshot{
		ID:        t.ID,
		Titulo:    t.Titulo,
		Descricao: t.Descricao,
		Owner:     t.Owner,
		Status:    t.Status(),
		UpdatedAt: t.UpdatedAt,
	}
}
