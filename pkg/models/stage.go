package models

import "time"

// StageStatus represents the lifecycle state of a single workflow stage.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusBlocked    StageStatus = "blocked"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusSkipped    StageStatus = "skipped"
)

// Terminal reports whether no further stage transitions are legal.
func (s StageStatus) Terminal() bool {
	return s == StageStatusCompleted || s == StageStatusSkipped
}

// Stage is one ordered phase of a workflow. OrderIndex values within a
// workflow are unique and contiguous starting at 0.
type Stage struct {
	ID               string       `json:"id"`
	WorkflowID       string       `json:"workflow_id"`
	OrderIndex       int          `json:"order_index"`
	Name             string       `json:"name"   validate:"required"`
	Description      string       `json:"description"`
	Status           StageStatus  `json:"status" validate:"required,oneof=pending in_progress blocked completed skipped"`
	TargetDays       int          `json:"target_days"`
	PlannedStartDate time.Time    `json:"planned_start_date"`
	PlannedEndDate   time.Time    `json:"planned_end_date"`
	ActualStartDate  *time.Time   `json:"actual_start_date,omitempty"`
	ActualEndDate    *time.Time   `json:"actual_end_date,omitempty"`
	OwnerName        string       `json:"owner_name"`
	BlockedReason    *string      `json:"blocked_reason,omitempty"`
	UnblockedAt      *time.Time   `json:"unblocked_at,omitempty"`
	Milestones       []*Milestone `json:"milestones"`
}
