// Package worker runs imports in the background through asynq.
// The API enqueues a TypeImport task; cmd/worker executes it with the same
// ImportService the synchronous endpoint uses.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// TypeImport is the asynq task type for a queued schedule import.
const TypeImport = "schedule:import"

// QueueImports is the queue import tasks are placed on.
const QueueImports = "imports"

// ImportPayload is the JSON body of a TypeImport task.
type ImportPayload struct {
	UserID  uuid.UUID            `json:"user_id"`
	Request domain.ImportRequest `json:"request"`
}

// NewImportTask builds a TypeImport task for userID.
func NewImportTask(userID uuid.UUID, req domain.ImportRequest) (*asynq.Task, error) {
	payload, err := json.Marshal(ImportPayload{UserID: userID, Request: req})
	if err != nil {
		return nil, fmt.Errorf("worker.NewImportTask: %w", err)
	}
	return asynq.NewTask(TypeImport, payload, asynq.Queue(QueueImports), asynq.MaxRetry(3)), nil
}

// Importer runs one import. service.ImportService satisfies it.
type Importer interface {
	ProcessImport(ctx context.Context, userID uuid.UUID, req domain.ImportRequest) (domain.ImportSummary, error)
}

// ImportHandler executes TypeImport tasks.
type ImportHandler struct {
	importer Importer
	log      *slog.Logger
}

// NewImportHandler constructs an ImportHandler.
func NewImportHandler(importer Importer, log *slog.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, log: log}
}

// ProcessTask implements asynq.Handler. Errors that a retry cannot fix are
// wrapped with asynq.SkipRetry; a busy per-user lock is retried.
func (h *ImportHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ImportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker.ImportHandler: decode payload: %v: %w", err, asynq.SkipRetry)
	}

	summary, err := h.importer.ProcessImport(ctx, p.UserID, p.Request)
	if err != nil {
		if permanent(err) {
			h.log.Warn("import task rejected", "user_id", p.UserID, "error", err)
			return fmt.Errorf("worker.ImportHandler: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("worker.ImportHandler: %w", err)
	}

	h.log.Info("import task finished", "user_id", p.UserID,
		"entries_processed", summary.EntriesProcessed, "failed_dates", summary.FailedDates)

	if w := t.ResultWriter(); w != nil {
		out, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("worker.ImportHandler: encode result: %w", err)
		}
		if _, err := w.Write(out); err != nil {
			h.log.Warn("write task result", "task_id", w.TaskID(), "error", err)
		}
	}
	return nil
}

func permanent(err error) bool {
	return errors.Is(err, domain.ErrConfiguration) ||
		errors.Is(err, domain.ErrDuplicateFile) ||
		errors.Is(err, domain.ErrValidation)
}

// RegisterHandlers wires task handlers into mux.
func RegisterHandlers(mux *asynq.ServeMux, imports *ImportHandler) {
	mux.Handle(TypeImport, imports)
}

// Enqueuer puts import tasks on the queue.
type Enqueuer struct {
	client    *asynq.Client
	retention time.Duration
}

// NewEnqueuer constructs an Enqueuer. Completed task results are kept for
// retention so clients can poll them.
func NewEnqueuer(client *asynq.Client, retention time.Duration) *Enqueuer {
	return &Enqueuer{client: client, retention: retention}
}

// EnqueueImport queues an import and returns the asynq task ID.
func (e *Enqueuer) EnqueueImport(ctx context.Context, userID uuid.UUID, req domain.ImportRequest) (string, error) {
	task, err := NewImportTask(userID, req)
	if err != nil {
		return "", err
	}
	info, err := e.client.EnqueueContext(ctx, task, asynq.Retention(e.retention))
	if err != nil {
		return "", fmt.Errorf("worker.Enqueuer.EnqueueImport: %w", err)
	}
	return info.ID, nil
}
