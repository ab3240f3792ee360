// package auditlog contains the PostgreSQL implementation of the worker
// lifecycle journal.
package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gitlab.com/gridnode.net/internal/core/ports/primary"
	"gitlab.com/gridnode.net/internal/core/ports/secondary"
	"gitlab.com/gridnode.net/internal/domain"
)

var _ secondary.AuditLog = &AuditLog{}

// AuditLog implements the AuditLog interface with PostgreSQL
type AuditLog struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewAuditLog creates a new PostgreSQL audit log
func NewAuditLog(db *sqlx.DB, logger primary.Logger) *AuditLog {
	return &AuditLog{
		db:     db,
		logger: logger,
	}
}

// Record appends one lifecycle event to the journal
func (r *AuditLog) Record(ctx context.Context, event *secondary.WorkerEvent) error {
	resourcesJSON, err := json.Marshal(event.Resources)
	if err != nil {
		r.logger.Error("Failed to marshal event resources", "error", err)
		return fmt.Errorf("failed to marshal event resources: %w", err)
	}

	query := `
		INSERT INTO worker_events (
			worker_id, task_id, kind, resources, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		event.WorkerID,
		event.TaskID,
		event.Kind,
		resourcesJSON,
		event.Detail,
		event.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to record worker event", "error", err)
		return fmt.Errorf("failed to record worker event: %w", err)
	}

	return nil
}

// ListByWorker retrieves the most recent events for one worker, newest first
func (r *AuditLog) ListByWorker(ctx context.Context, workerID domain.WorkerID, limit int) ([]*secondary.WorkerEvent, error) {
	query := `
		SELECT id, worker_id, task_id, kind, resources, detail, created_at
		FROM worker_events
		WHERE worker_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, workerID, limit)
	if err != nil {
		r.logger.Error("Failed to list worker events", "workerID", workerID, "error", err)
		return nil, fmt.Errorf("failed to list worker events: %w", err)
	}
	defer rows.Close()

	events := make([]*secondary.WorkerEvent, 0)
	for rows.Next() {
		var event secondary.WorkerEvent
		var resourcesJSON []byte
		var taskID sql.NullString

		err := rows.Scan(
			&event.ID,
			&event.WorkerID,
			&taskID,
			&event.Kind,
			&resourcesJSON,
			&event.Detail,
			&event.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan worker event row", "error", err)
			return nil, fmt.Errorf("failed to scan worker event row: %w", err)
		}

		if taskID.Valid {
			event.TaskID = domain.TaskID(taskID.String)
		}

		if len(resourcesJSON) > 0 {
			if err := json.Unmarshal(resourcesJSON, &event.Resources); err != nil {
				r.logger.Error("Failed to unmarshal event resources", "error", err)
				return nil, fmt.Errorf("failed to unmarshal event resources: %w", err)
			}
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating worker event rows", "error", err)
		return nil, fmt.Errorf("error iterating worker event rows: %w", err)
	}

	return events, nil
}
