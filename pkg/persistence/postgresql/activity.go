package postgresql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vendoreval/procflow/pkg/models"
)

// ActivityRepository stores the append-only activity trail. Rows are inserted
// once and never updated or deleted.
type ActivityRepository struct {
	db     querier
	logger *slog.Logger
}

// NewActivityRepository creates a new activity log repository.
func NewActivityRepository(db querier, logger *slog.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

// Append adds one entry to the workflow's trail.
func (ar *ActivityRepository) Append(ctx context.Context, entry *models.ActivityLogEntry) error {
	query := `
		INSERT INTO activity_log (id, workflow_id, related_stage_id, related_milestone_id,
			activity_description, performed_by, performed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := ar.db.ExecContext(ctx, query,
		entry.ID,
		entry.WorkflowID,
		entry.RelatedStageID,
		entry.RelatedMilestoneID,
		entry.Description,
		entry.PerformedBy,
		entry.PerformedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}

	return nil
}

// ListByWorkflow returns the workflow's entries newest-first, id as tiebreak.
func (ar *ActivityRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.ActivityLogEntry, error) {
	query := `
		SELECT id, workflow_id, related_stage_id, related_milestone_id,
			activity_description, performed_by, performed_at
		FROM activity_log
		WHERE workflow_id = $1
		ORDER BY performed_at DESC, id DESC
	`

	rows, err := ar.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			ar.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.ActivityLogEntry, 0)

	for rows.Next() {
		var entry models.ActivityLogEntry

		err := rows.Scan(
			&entry.ID,
			&entry.WorkflowID,
			&entry.RelatedStageID,
			&entry.RelatedMilestoneID,
			&entry.Description,
			&entry.PerformedBy,
			&entry.PerformedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity entries: %w", err)
	}

	return entries, nil
}
