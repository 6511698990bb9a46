package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendoreval/procflow/pkg/models"
)

// InstantiateParams carries the per-instance inputs for materializing a
// workflow from a template.
type InstantiateParams struct {
	VendorID            string
	EvaluationProjectID string
	Name                string
	Description         string
	PlannedStartDate    time.Time
	OwnerName           string
	CreatedBy           string
}

// Instantiate materializes a workflow tree from a template. Stages are
// created pending, in template order, with planned dates accumulated
// sequentially from the planned start: stage N's planned start is stage N-1's
// planned end. Milestones are created pending. The caller persists the result
// as a single atomic unit.
func Instantiate(template *models.WorkflowTemplate, params InstantiateParams, now time.Time) *models.Workflow {
	workflow := &models.Workflow{
		ID:                  uuid.New().String(),
		EvaluationProjectID: params.EvaluationProjectID,
		VendorID:            params.VendorID,
		TemplateID:          template.ID,
		Name:                params.Name,
		Description:         params.Description,
		Status:              models.WorkflowStatusNotStarted,
		PlannedStartDate:    DateOnly(params.PlannedStartDate),
		OwnerName:           params.OwnerName,
		CreatedAt:           now.UTC(),
		CreatedBy:           params.CreatedBy,
	}

	cursor := workflow.PlannedStartDate
	workflow.Stages = make([]*models.Stage, 0, len(template.Stages))

	for index, stageTemplate := range template.Stages {
		stage := &models.Stage{
			ID:               uuid.New().String(),
			WorkflowID:       workflow.ID,
			OrderIndex:       index,
			Name:             stageTemplate.Name,
			Description:      stageTemplate.Description,
			Status:           models.StageStatusPending,
			TargetDays:       stageTemplate.TargetDays,
			PlannedStartDate: cursor,
			PlannedEndDate:   cursor.AddDate(0, 0, stageTemplate.TargetDays),
			OwnerName:        params.OwnerName,
		}

		stage.Milestones = make([]*models.Milestone, 0, len(stageTemplate.Milestones))
		for _, milestoneName := range stageTemplate.Milestones {
			stage.Milestones = append(stage.Milestones, &models.Milestone{
				ID:      uuid.New().String(),
				StageID: stage.ID,
				Name:    milestoneName,
				Status:  models.MilestoneStatusPending,
			})
		}

		workflow.Stages = append(workflow.Stages, stage)
		cursor = stage.PlannedEndDate
	}

	if len(workflow.Stages) > 0 {
		end := workflow.Stages[len(workflow.Stages)-1].PlannedEndDate
		workflow.PlannedEndDate = &end
	}

	return workflow
}

// DateOnly normalizes a timestamp to UTC midnight. Planned stage boundaries
// are calendar dates, not instants.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
