// Package persistence provides the data storage abstraction layer for
// workflows, templates and the activity log.
package persistence

import (
	"context"

	"github.com/vendoreval/procflow/pkg/models"
)

// Persistence is the durable storage contract the engine composes over.
//
// Every mutating orchestrator operation runs inside Transact so the state
// machine's legality check is re-validated against the committed state at
// write time: the workflow is re-read, checked and written within one
// transaction, and either the full unit (status change, timestamps, activity
// entry) commits or nothing does.
type Persistence interface {
	TemplateRepository() TemplateRepository
	WorkflowRepository() WorkflowRepository
	ActivityRepository() ActivityRepository

	Transact(ctx context.Context, fn func(store Store) error) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// Store is the transaction-scoped view handed to a Transact closure.
type Store interface {
	WorkflowRepository() WorkflowRepository
	ActivityRepository() ActivityRepository
}

// TemplateRepository is the read-only workflow template catalog.
type TemplateRepository interface {
	GetAll(ctx context.Context) ([]*models.WorkflowTemplate, error)
	// GetByID returns ErrTemplateNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error)
}

// WorkflowRepository stores workflow aggregates. Reads always return the full
// tree (stages with milestones), ordered by stage order index.
type WorkflowRepository interface {
	GetAll(ctx context.Context, evaluationProjectID string) ([]*models.Workflow, error)
	// GetByID returns ErrWorkflowNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// GetByStageID resolves the owning workflow of a stage; ErrStageNotFound
	// when the stage id is unknown.
	GetByStageID(ctx context.Context, stageID string) (*models.Workflow, error)
	// GetByMilestoneID resolves the owning workflow of a milestone;
	// ErrMilestoneNotFound when the milestone id is unknown.
	GetByMilestoneID(ctx context.Context, milestoneID string) (*models.Workflow, error)

	Create(ctx context.Context, workflow *models.Workflow) error
	UpdateWorkflow(ctx context.Context, workflow *models.Workflow) error
	UpdateStage(ctx context.Context, stage *models.Stage) error
	UpdateMilestone(ctx context.Context, milestone *models.Milestone) error
}

// ActivityRepository is the append-only audit trail. No mutation or deletion
// API exists.
type ActivityRepository interface {
	Append(ctx context.Context, entry *models.ActivityLogEntry) error
	// ListByWorkflow returns entries newest-first, id as tiebreak.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.ActivityLogEntry, error)
}
