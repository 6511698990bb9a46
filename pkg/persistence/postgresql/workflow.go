package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vendoreval/procflow/pkg/models"
	"github.com/vendoreval/procflow/pkg/persistence"
)

// WorkflowRepository handles workflow aggregate database operations.
type WorkflowRepository struct {
	db     querier
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db querier, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
		id
	  , evaluation_project_id
	  , vendor_id
	  , template_id
	  , name
	  , description
	  , status
	  , planned_start_date
	  , planned_end_date
	  , actual_start_date
	  , actual_end_date
	  , owner_name
	  , cancellation_reason
	  , created_at
	  , created_by
`

// GetAll returns workflows, optionally filtered by evaluation project,
// ordered by creation time descending. Each workflow carries its full stage
// tree.
func (r *WorkflowRepository) GetAll(ctx context.Context, evaluationProjectID string) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE $1 = '' OR evaluation_project_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, evaluationProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		if err := r.loadStages(ctx, workflow); err != nil {
			return nil, err
		}
	}

	return workflows, nil
}

// GetByID returns the workflow aggregate for the given id.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1
	`

	workflow, err := r.scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	if err := r.loadStages(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// GetByStageID resolves the workflow owning the given stage.
func (r *WorkflowRepository) GetByStageID(ctx context.Context, stageID string) (*models.Workflow, error) {
	var workflowID string

	err := r.db.QueryRowContext(ctx, "SELECT workflow_id FROM stages WHERE id = $1", stageID).Scan(&workflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrStageNotFound
		}

		return nil, fmt.Errorf("failed to resolve stage %s: %w", stageID, err)
	}

	return r.GetByID(ctx, workflowID)
}

// GetByMilestoneID resolves the workflow owning the given milestone.
func (r *WorkflowRepository) GetByMilestoneID(ctx context.Context, milestoneID string) (*models.Workflow, error) {
	query := `
		SELECT s.workflow_id
		FROM milestones m
		JOIN stages s ON s.id = m.stage_id
		WHERE m.id = $1
	`

	var workflowID string

	err := r.db.QueryRowContext(ctx, query, milestoneID).Scan(&workflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrMilestoneNotFound
		}

		return nil, fmt.Errorf("failed to resolve milestone %s: %w", milestoneID, err)
	}

	return r.GetByID(ctx, workflowID)
}

// Create persists a new workflow aggregate with its stage tree.
func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	query := `
		INSERT INTO workflows (id, evaluation_project_id, vendor_id, template_id, name, description,
			status, planned_start_date, planned_end_date, actual_start_date, actual_end_date,
			owner_name, cancellation_reason, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.EvaluationProjectID,
		workflow.VendorID,
		workflow.TemplateID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		workflow.PlannedStartDate,
		workflow.PlannedEndDate,
		workflow.ActualStartDate,
		workflow.ActualEndDate,
		workflow.OwnerName,
		workflow.CancellationReason,
		workflow.CreatedAt,
		workflow.CreatedBy,
	)
	if err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	for _, stage := range workflow.Stages {
		if err := r.insertStage(ctx, stage); err != nil {
			return persistence.NewWorkflowError("Create", workflow.ID, err)
		}
	}

	return nil
}

// UpdateWorkflow rewrites the header fields of a stored workflow. The stage
// tree is updated through UpdateStage and UpdateMilestone.
func (r *WorkflowRepository) UpdateWorkflow(ctx context.Context, workflow *models.Workflow) error {
	query := `
		UPDATE workflows SET
			name = $2,
			description = $3,
			status = $4,
			planned_start_date = $5,
			planned_end_date = $6,
			actual_start_date = $7,
			actual_end_date = $8,
			owner_name = $9,
			cancellation_reason = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		workflow.PlannedStartDate,
		workflow.PlannedEndDate,
		workflow.ActualStartDate,
		workflow.ActualEndDate,
		workflow.OwnerName,
		workflow.CancellationReason,
	)
	if err != nil {
		return persistence.NewWorkflowError("UpdateWorkflow", workflow.ID, err)
	}

	return r.requireRow(result, persistence.NewWorkflowError("UpdateWorkflow", workflow.ID, persistence.ErrWorkflowNotFound))
}

// UpdateStage rewrites one stage row.
func (r *WorkflowRepository) UpdateStage(ctx context.Context, stage *models.Stage) error {
	query := `
		UPDATE stages SET
			status = $2,
			actual_start_date = $3,
			actual_end_date = $4,
			owner_name = $5,
			blocked_reason = $6,
			unblocked_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		stage.ID,
		stage.Status,
		stage.ActualStartDate,
		stage.ActualEndDate,
		stage.OwnerName,
		stage.BlockedReason,
		stage.UnblockedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update stage %s: %w", stage.ID, err)
	}

	return r.requireRow(result, persistence.ErrStageNotFound)
}

// UpdateMilestone rewrites one milestone row.
func (r *WorkflowRepository) UpdateMilestone(ctx context.Context, milestone *models.Milestone) error {
	query := `
		UPDATE milestones SET
			status = $2,
			completed_at = $3,
			completed_by = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		milestone.ID,
		milestone.Status,
		milestone.CompletedAt,
		milestone.CompletedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update milestone %s: %w", milestone.ID, err)
	}

	return r.requireRow(result, persistence.ErrMilestoneNotFound)
}

func (r *WorkflowRepository) requireRow(result sql.Result, missing error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return missing
	}

	return nil
}

func (r *WorkflowRepository) insertStage(ctx context.Context, stage *models.Stage) error {
	query := `
		INSERT INTO stages (id, workflow_id, order_index, name, description, status, target_days,
			planned_start_date, planned_end_date, actual_start_date, actual_end_date,
			owner_name, blocked_reason, unblocked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		stage.ID,
		stage.WorkflowID,
		stage.OrderIndex,
		stage.Name,
		stage.Description,
		stage.Status,
		stage.TargetDays,
		stage.PlannedStartDate,
		stage.PlannedEndDate,
		stage.ActualStartDate,
		stage.ActualEndDate,
		stage.OwnerName,
		stage.BlockedReason,
		stage.UnblockedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save stage %s: %w", stage.ID, err)
	}

	for index, milestone := range stage.Milestones {
		milestoneQuery := `
			INSERT INTO milestones (id, stage_id, order_index, name, status, completed_at, completed_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

		_, err := r.db.ExecContext(ctx, milestoneQuery,
			milestone.ID,
			milestone.StageID,
			index,
			milestone.Name,
			milestone.Status,
			milestone.CompletedAt,
			milestone.CompletedBy,
		)
		if err != nil {
			return fmt.Errorf("failed to save milestone %s: %w", milestone.ID, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) loadStages(ctx context.Context, workflow *models.Workflow) error {
	query := `
		SELECT
			id
		  , workflow_id
		  , order_index
		  , name
		  , description
		  , status
		  , target_days
		  , planned_start_date
		  , planned_end_date
		  , actual_start_date
		  , actual_end_date
		  , owner_name
		  , blocked_reason
		  , unblocked_at
		FROM stages
		WHERE workflow_id = $1
		ORDER BY order_index
	`

	rows, err := r.db.QueryContext(ctx, query, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to query stages: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	stages := make([]*models.Stage, 0)

	for rows.Next() {
		var stage models.Stage

		err := rows.Scan(
			&stage.ID,
			&stage.WorkflowID,
			&stage.OrderIndex,
			&stage.Name,
			&stage.Description,
			&stage.Status,
			&stage.TargetDays,
			&stage.PlannedStartDate,
			&stage.PlannedEndDate,
			&stage.ActualStartDate,
			&stage.ActualEndDate,
			&stage.OwnerName,
			&stage.BlockedReason,
			&stage.UnblockedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan stage: %w", err)
		}

		stages = append(stages, &stage)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating stages: %w", err)
	}

	for _, stage := range stages {
		if err := r.loadMilestones(ctx, stage); err != nil {
			return err
		}
	}

	workflow.Stages = stages

	return nil
}

func (r *WorkflowRepository) loadMilestones(ctx context.Context, stage *models.Stage) error {
	query := `
		SELECT id, stage_id, name, status, completed_at, completed_by
		FROM milestones
		WHERE stage_id = $1
		ORDER BY order_index
	`

	rows, err := r.db.QueryContext(ctx, query, stage.ID)
	if err != nil {
		return fmt.Errorf("failed to query milestones: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	milestones := make([]*models.Milestone, 0)

	for rows.Next() {
		var milestone models.Milestone

		err := rows.Scan(
			&milestone.ID,
			&milestone.StageID,
			&milestone.Name,
			&milestone.Status,
			&milestone.CompletedAt,
			&milestone.CompletedBy,
		)
		if err != nil {
			return fmt.Errorf("failed to scan milestone: %w", err)
		}

		milestones = append(milestones, &milestone)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating milestones: %w", err)
	}

	stage.Milestones = milestones

	return nil
}

func (r *WorkflowRepository) scanWorkflow(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var workflow models.Workflow

	err := scanner.Scan(
		&workflow.ID,
		&workflow.EvaluationProjectID,
		&workflow.VendorID,
		&workflow.TemplateID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&workflow.PlannedStartDate,
		&workflow.PlannedEndDate,
		&workflow.ActualStartDate,
		&workflow.ActualEndDate,
		&workflow.OwnerName,
		&workflow.CancellationReason,
		&workflow.CreatedAt,
		&workflow.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}
