// Task HTTP handlers.
//
// This file exposes REST endpoints for task resources:
//   - GET    /tarefas        (list, weak ETag support)
//   - POST   /tarefas        (create, Idempotency-Key support)
//   - PUT    /tarefas/{id}   (partial update)
//   - DELETE /tarefas/{id}   (delete)
//
// Handlers are transport-thin: they validate input, call the task service,
// and translate results into HTTP responses. Authentication happens before
// they run; the verified subject is read with middleware.UserID.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-tasks-backend/internal/domain"
	"github.com/tbourn/go-tasks-backend/internal/http/middleware"
	"github.com/tbourn/go-tasks-backend/internal/services"
)

// MsgTaskDeleted is the confirmation returned by DELETE.
const MsgTaskDeleted = "Tarefa deletada com sucesso"

// TaskService defines task lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TaskService interface {
	Create(ctx context.Context, owner string, in services.CreateTaskInput) (*domain.Task, error)
	List(ctx context.Context) ([]domain.Task, error)
	// Stats returns the live task count and latest update time.
	Stats(ctx context.Context) (int64, *time.Time, error)
	Update(ctx context.Context, actor, id string, in services.UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, actor, id string) error
}

// Handlers groups the task endpoints.
type Handlers struct {
	tasks TaskService
	idem  services.IdempotencyStore
}

// New constructs Handlers. idem may be nil, which disables recording of
// create responses.
func New(tasks TaskService, idem services.IdempotencyStore) *Handlers {
	return &Handlers{tasks: tasks, idem: idem}
}

//
// DTOs
//

// TaskDTO is the public representation of a task.
type TaskDTO struct {
	ID        string `json:"id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Titulo    string `json:"titulo" example:""`
	Descricao string `json:"descricao" example:"Buy milk"`
	Concluida bool   `json:"concluida" example:"false"`
}

// CreateTaskRequest is the JSON payload for creating a task.
type CreateTaskRequest struct {
	// Descricao is required and must not be blank.
	Descricao *string `json:"descricao" example:"Buy milk"`
	Titulo    *string `json:"titulo,omitempty" example:"Groceries"`
	Concluida *bool   `json:"concluida,omitempty" example:"false"`
}

// UpdateTaskRequest is the JSON payload for a partial update; omitted fields
// are left unchanged.
type UpdateTaskRequest struct {
	Titulo    *string `json:"titulo,omitempty" example:"Groceries"`
	Descricao *string `json:"descricao,omitempty" example:"Buy oat milk"`
	Concluida *bool   `json:"concluida,omitempty" example:"true"`
}

// DeleteTaskResponse confirms a deletion.
type DeleteTaskResponse struct {
	Mensagem string `json:"mensagem" example:"Tarefa deletada com sucesso"`
}

func toDTO(t *domain.Task) TaskDTO {
	return TaskDTO{ID: t.ID, Titulo: t.Titulo, Descricao: t.Descricao, Concluida: t.Concluida}
}

// taskID returns the :id path parameter when it is a UUID.
func taskID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// tasksETag builds the weak validator for the task collection.
func tasksETag(count int64, maxTS *time.Time) string {
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	return fmt.Sprintf(`W/"tarefas:%d:%d"`, count, ts)
}

//
// Handlers
//

// ListTasks godoc
// @ID          listTasks
// @Summary     List tasks
// @Description Returns every task. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Tarefas
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"tarefas:2:1700000000\")
//
// @Success     200  {array}  handlers.TaskDTO
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tarefas [get]
func (h *Handlers) ListTasks(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if count, maxTS, err := h.tasks.Stats(ctx); err == nil {
		etag := tasksETag(count, maxTS)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.tasks.List(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list tasks")
		return
	}
	out := make([]TaskDTO, 0, len(items))
	for i := range items {
		out = append(out, toDTO(&items[i]))
	}
	ok(c, http.StatusOK, out)
}

// CreateTask godoc
// @ID          createTask
// @Summary     Create a task
// @Description Creates a task owned by the caller. Requires scope create:tasks.
// @Description Supports idempotency via the Idempotency-Key header (same key → same body, single task).
// @Tags        Tarefas
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateTaskRequest  true  "Create task payload"
//
// @Success     201  {object} handlers.TaskDTO
// @Header      201  {string} Idempotency-Replayed  "true when served from the idempotency store"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     403  {object} handlers.ErrorResponse "Insufficient scope"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tarefas [post]
func (h *Handlers) CreateTask(c *gin.Context) {
	if body, replay := middleware.ReplayBody(c); replay {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		okRaw(c, http.StatusCreated, body)
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Descricao == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "descricao is required")
		return
	}

	ctx := c.Request.Context()
	t, err := h.tasks.Create(ctx, middleware.UserID(c), services.CreateTaskInput{
		Titulo:    req.Titulo,
		Descricao: *req.Descricao,
		Concluida: req.Concluida,
	})
	if err != nil {
		if errors.Is(err, services.ErrDescricaoRequired) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "descricao is required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create task")
		return
	}

	body, err := json.Marshal(toDTO(t))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not encode task")
		return
	}

	// Record the response under the key. A store failure is reported, not skipped.
	if key, has := middleware.GetIdempotencyKey(c); has && h.idem != nil {
		scope, ok := middleware.GetIdempotencyScope(c)
		if !ok {
			scope = services.TasksCollection
		}
		if err := h.idem.Save(ctx, scope, key, body); err != nil {
			middleware.LoggerFrom(c).Error().Err(err).Str("task_id", t.ID).Msg("idempotency save failed")
			fail(c, http.StatusInternalServerError, ErrCodeIdempotencyFailed, "idempotency store unavailable")
			return
		}
	}

	okRaw(c, http.StatusCreated, body)
}

// UpdateTask godoc
// @ID          updateTask
// @Summary     Update a task
// @Description Applies a partial update. Omitted fields are left unchanged. Requires scope update:tasks.
// @Tags        Tarefas
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string  true  "Task ID (UUID)"  format(uuid)  example(141add05-4415-4938-b5a1-17e0d3171aff)
// @Param       body  body  handlers.UpdateTaskRequest  true  "Fields to change"
//
// @Success     200  {object} handlers.TaskDTO
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     403  {object} handlers.ErrorResponse "Insufficient scope"
// @Failure     404  {object} handlers.ErrorResponse "Task not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tarefas/{id} [put]
func (h *Handlers) UpdateTask(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "task id must be a UUID")
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	t, err := h.tasks.Update(c.Request.Context(), middleware.UserID(c), id, services.UpdateTaskInput{
		Titulo:    req.Titulo,
		Descricao: req.Descricao,
		Concluida: req.Concluida,
	})
	switch {
	case err == nil:
		ok(c, http.StatusOK, toDTO(t))
	case errors.Is(err, services.ErrTaskNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "task not found")
	case errors.Is(err, services.ErrDescricaoRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "descricao must not be blank")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, "could not update task")
	}
}

// DeleteTask godoc
// @ID          deleteTask
// @Summary     Delete a task
// @Description Deletes a task. Requires scope delete:tasks.
// @Tags        Tarefas
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Task ID (UUID)"  format(uuid)  example(141add05-4415-4938-b5a1-17e0d3171aff)
//
// @Success     200  {object} handlers.DeleteTaskResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     403  {object} handlers.ErrorResponse "Insufficient scope"
// @Failure     404  {object} handlers.ErrorResponse "Task not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tarefas/{id} [delete]
func (h *Handlers) DeleteTask(c *gin.Context) {
	id, valid := taskID(c)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "task id must be a UUID")
		return
	}

	err := h.tasks.Delete(c.Request.Context(), middleware.UserID(c), id)
	switch {
	case err == nil:
		ok(c, http.StatusOK, DeleteTaskResponse{Mensagem: MsgTaskDeleted})
	case errors.Is(err, services.ErrTaskNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "task not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete task")
	}
}
