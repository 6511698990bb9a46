// Package models defines the core domain models for procurement workflow tracking.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a procurement workflow.
type WorkflowStatus string

const (
	WorkflowStatusNotStarted WorkflowStatus = "not_started"
	WorkflowStatusInProgress WorkflowStatus = "in_progress"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
	WorkflowStatusCancelled  WorkflowStatus = "cancelled"
)

// Terminal reports whether no further workflow transitions are legal.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowStatusCompleted || s == WorkflowStatusCancelled
}

// Workflow is one tracked procurement process for a vendor within an
// evaluation project. Stages are ordered by OrderIndex, fixed at creation.
type Workflow struct {
	ID                  string         `json:"id"`
	EvaluationProjectID string         `json:"evaluation_project_id" validate:"required"`
	VendorID            string         `json:"vendor_id"             validate:"required"`
	TemplateID          string         `json:"template_id"`
	Name                string         `json:"name"                  validate:"required,min=3"`
	Description         string         `json:"description"`
	Status              WorkflowStatus `json:"status"                validate:"required,oneof=not_started in_progress completed cancelled"`
	PlannedStartDate    time.Time      `json:"planned_start_date"`
	PlannedEndDate      *time.Time     `json:"planned_end_date,omitempty"`
	ActualStartDate     *time.Time     `json:"actual_start_date,omitempty"`
	ActualEndDate       *time.Time     `json:"actual_end_date,omitempty"`
	OwnerName           string         `json:"owner_name"`
	CancellationReason  *string        `json:"cancellation_reason,omitempty"`
	Stages              []*Stage       `json:"stages"`
	CreatedAt           time.Time      `json:"created_at"`
	CreatedBy           string         `json:"created_by"`
}

// StageByID returns the stage with the given id, or nil.
func (w *Workflow) StageByID(stageID string) *Stage {
	for _, stage := range w.Stages {
		if stage.ID == stageID {
			return stage
		}
	}

	return nil
}

// MilestoneByID returns the milestone with the given id and its owning stage,
// or nils when absent.
func (w *Workflow) MilestoneByID(milestoneID string) (*Stage, *Milestone) {
	for _, stage := range w.Stages {
		for _, milestone := range stage.Milestones {
			if milestone.ID == milestoneID {
				return stage, milestone
			}
		}
	}

	return nil, nil
}
