// Package services – TaskService
//
// This file implements the TaskService, which owns the task lifecycle. It
// normalizes and validates input, coordinates repository operations, and
// runs the best-effort secondary effects of every mutation: refreshing the
// task_snapshots projection and publishing a task event. Secondary-effect
// failures are logged and swallowed; they never change the result returned
// to the caller.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-tasks-backend/internal/domain"
	"github.com/tbourn/go-tasks-backend/internal/events"
)

// TaskRepo defines the repository contract required by TaskService.
type TaskRepo interface {
	// InsertTask persists a new task and assigns its ID.
	InsertTask(ctx context.Context, db *gorm.DB, t *domain.Task) (*domain.Task, error)

	// ListTasks returns every live task.
	ListTasks(ctx context.Context, db *gorm.DB) ([]domain.Task, error)

	// UpdateTaskFields applies a partial update and returns the updated row.
	UpdateTaskFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Task, error)

	// DeleteTask removes a task and reports whether one existed.
	DeleteTask(ctx context.Context, db *gorm.DB, id string) (bool, error)

	// TasksStats returns the live task count and the latest updated_at.
	TasksStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error)
}

// SnapshotRepo maintains the derived task_snapshots projection.
type SnapshotRepo interface {
	UpsertSnapshot(ctx context.Context, db *gorm.DB, s *domain.TaskSnapshot) error
	DeleteSnapshot(ctx context.Context, db *gorm.DB, id string) error
}

// CreateTaskInput is the validated payload for Create.
type CreateTaskInput struct {
	Titulo    *string
	Descricao string
	Concluida *bool
}

// UpdateTaskInput carries the fields to change; nil fields are left as is.
type UpdateTaskInput struct {
	Titulo    *string
	Descricao *string
	Concluida *bool
}

// TaskService provides task operations.
type TaskService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the task repository.
	Repo TaskRepo
	// Snapshots is optional; nil disables the projection.
	Snapshots SnapshotRepo
	// Events is optional; nil disables publishing.
	Events events.Publisher

	now func() time.Time
}

// NewTaskService constructs a TaskService. snaps and pub may be nil.
func NewTaskService(db *gorm.DB, r TaskRepo, snaps SnapshotRepo, pub events.Publisher) *TaskService {
	return &TaskService{
		DB:        db,
		Repo:      r,
		Snapshots: snaps,
		Events:    pub,
		now:       time.Now,
	}
}

// Create validates in and inserts a task owned by owner (empty owner is
// stored as NULL). Titulo defaults to "" and Concluida to false.
func (s *TaskService) Create(ctx context.Context, owner string, in CreateTaskInput) (*domain.Task, error) {
	desc := normalizeText(in.Descricao)
	if desc == "" {
		return nil, ErrDescricaoRequired
	}
	t := &domain.Task{Descricao: desc}
	if in.Titulo != nil {
		t.Titulo = normalizeText(*in.Titulo)
	}
	if in.Concluida != nil {
		t.Concluida = *in.Concluida
	}
	if owner != "" {
		o := owner
		t.Owner = &o
	}

	created, err := s.Repo.InsertTask(ctx, s.DB, t)
	if err != nil {
		return nil, err
	}

	s.projectSnapshot(ctx, created)
	s.publish(ctx, events.TypeTaskCreated, created.ID, owner, created)
	return created, nil
}

// List returns every live task, oldest first.
func (s *TaskService) List(ctx context.Context) ([]domain.Task, error) {
	return s.Repo.ListTasks(ctx, s.DB)
}

// Stats returns the live task count and latest update time, for ETags.
func (s *TaskService) Stats(ctx context.Context) (int64, *time.Time, error) {
	return s.Repo.TasksStats(ctx, s.DB)
}

// Update applies the non-nil fields of in to task id. A descricao that is
// present but blank is rejected. ErrTaskNotFound when id has no live task.
func (s *TaskService) Update(ctx context.Context, actor, id string, in UpdateTaskInput) (*domain.Task, error) {
	fields := make(map[string]any, 3)
	if in.Titulo != nil {
		fields[domain.ColTitulo] = normalizeText(*in.Titulo)
	}
	if in.Descricao != nil {
		desc := normalizeText(*in.Descricao)
		if desc == "" {
			return nil, ErrDescricaoRequired
		}
		fields[domain.ColDescricao] = desc
	}
	if in.Concluida != nil {
		fields[domain.ColConcluida] = *in.Concluida
	}

	updated, err := s.Repo.UpdateTaskFields(ctx, s.DB, id, fields)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	s.projectSnapshot(ctx, updated)
	s.publish(ctx, events.TypeTaskUpdated, updated.ID, actor, updated)
	return updated, nil
}

// Delete removes task id. ErrTaskNotFound when nothing was removed.
func (s *TaskService) Delete(ctx context.Context, actor, id string) error {
	removed, err := s.Repo.DeleteTask(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrTaskNotFound
	}

	if s.Snapshots != nil {
		if err := s.Snapshots.DeleteSnapshot(ctx, s.DB, id); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("task_id", id).Msg("snapshot delete failed")
		}
	}
	s.publish(ctx, events.TypeTaskDeleted, id, actor, nil)
	return nil
}

// projectSnapshot refreshes the read model for t. Best-effort.
func (s *TaskService) projectSnapshot(ctx context.Context, t *domain.Task) {
	if s.Snapshots == nil || t == nil {
		return
	}
	snap := domain.SnapshotOf(*t)
	if err := s.Snapshots.UpsertSnapshot(ctx, s.DB, &snap); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("task_id", t.ID).Msg("snapshot upsert failed")
	}
}

// publish emits a task event. Best-effort.
func (s *TaskService) publish(ctx context.Context, typ, id, actor string, t *domain.Task) {
	if s.Events == nil {
		return
	}
	ev := events.Event{Type: typ, TaskID: id, Owner: actor, At: s.now().UTC(), Task: t}
	if err := s.Events.Publish(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("task_id", id).Str("event", typ).Msg("event publish failed")
	}
}

// normalizeText trims surrounding whitespace and applies Unicode NFC so
// visually identical input is stored identically.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
