package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/vendoreval/procflow/pkg/models"
	"github.com/vendoreval/procflow/pkg/persistence"
)

const workflowsDir = "workflows"

// WorkflowRepository stores each workflow aggregate as one JSON file under
// <root>/workflows/<id>.json.
type WorkflowRepository struct {
	root string
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

// GetAll returns all workflows, optionally filtered by evaluation project,
// ordered by creation time descending.
func (wr *WorkflowRepository) GetAll(ctx context.Context, evaluationProjectID string) ([]*models.Workflow, error) {
	all, err := wr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if evaluationProjectID != "" && workflow.EvaluationProjectID != evaluationProjectID {
			continue
		}

		workflows = append(workflows, workflow)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// GetByID returns the workflow aggregate for the given id.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	data, err := os.ReadFile(wr.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", id, err)
	}

	return &workflow, nil
}

// GetByStageID resolves the workflow owning the given stage.
func (wr *WorkflowRepository) GetByStageID(ctx context.Context, stageID string) (*models.Workflow, error) {
	all, err := wr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, workflow := range all {
		if workflow.StageByID(stageID) != nil {
			return workflow, nil
		}
	}

	return nil, persistence.ErrStageNotFound
}

// GetByMilestoneID resolves the workflow owning the given milestone.
func (wr *WorkflowRepository) GetByMilestoneID(ctx context.Context, milestoneID string) (*models.Workflow, error) {
	all, err := wr.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, workflow := range all {
		if _, milestone := workflow.MilestoneByID(milestoneID); milestone != nil {
			return workflow, nil
		}
	}

	return nil, persistence.ErrMilestoneNotFound
}

// Create persists a new workflow aggregate.
func (wr *WorkflowRepository) Create(_ context.Context, workflow *models.Workflow) error {
	return wr.write(workflow)
}

// UpdateWorkflow rewrites the header fields of a stored workflow, keeping the
// stored stage tree authoritative when the caller passes a partial aggregate.
func (wr *WorkflowRepository) UpdateWorkflow(ctx context.Context, workflow *models.Workflow) error {
	stored, err := wr.GetByID(ctx, workflow.ID)
	if err != nil {
		return err
	}

	if workflow.Stages == nil {
		workflow.Stages = stored.Stages
	}

	return wr.write(workflow)
}

// UpdateStage replaces one stage inside its owning workflow aggregate.
func (wr *WorkflowRepository) UpdateStage(ctx context.Context, stage *models.Stage) error {
	workflow, err := wr.GetByID(ctx, stage.WorkflowID)
	if err != nil {
		return err
	}

	for index, stored := range workflow.Stages {
		if stored.ID == stage.ID {
			workflow.Stages[index] = stage

			return wr.write(workflow)
		}
	}

	return persistence.ErrStageNotFound
}

// UpdateMilestone replaces one milestone inside its owning workflow aggregate.
func (wr *WorkflowRepository) UpdateMilestone(ctx context.Context, milestone *models.Milestone) error {
	workflow, err := wr.GetByStageID(ctx, milestone.StageID)
	if err != nil {
		return err
	}

	stage := workflow.StageByID(milestone.StageID)
	for index, stored := range stage.Milestones {
		if stored.ID == milestone.ID {
			stage.Milestones[index] = milestone

			return wr.write(workflow)
		}
	}

	return persistence.ErrMilestoneNotFound
}

func (wr *WorkflowRepository) loadAll(ctx context.Context) ([]*models.Workflow, error) {
	root := os.DirFS(filepath.Join(wr.root, workflowsDir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		workflowID := name[:len(name)-len(".json")]

		workflow, err := wr.GetByID(ctx, workflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (wr *WorkflowRepository) write(workflow *models.Workflow) error {
	dir := filepath.Join(wr.root, workflowsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workflow %s: %w", workflow.ID, err)
	}

	tmp := wr.path(workflow.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workflow file: %w", err)
	}

	if err := os.Rename(tmp, wr.path(workflow.ID)); err != nil {
		return fmt.Errorf("failed to replace workflow file: %w", err)
	}

	return nil
}

func (wr *WorkflowRepository) path(id string) string {
	return filepath.Join(wr.root, workflowsDir, id+".json")
}
