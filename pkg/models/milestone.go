package models

import "time"

// MilestoneStatus represents the state of a milestone. Both completed and
// skipped are terminal.
type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "pending"
	MilestoneStatusCompleted MilestoneStatus = "completed"
	MilestoneStatusSkipped   MilestoneStatus = "skipped"
)

// Terminal reports whether the milestone has reached a final state.
func (s MilestoneStatus) Terminal() bool {
	return s == MilestoneStatusCompleted || s == MilestoneStatusSkipped
}

// Milestone is one discrete checkpoint inside a stage. It has no sub-structure.
type Milestone struct {
	ID          string          `json:"id"`
	StageID     string          `json:"stage_id"`
	Name        string          `json:"name"   validate:"required"`
	Status      MilestoneStatus `json:"status" validate:"required,oneof=pending completed skipped"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CompletedBy *string         `json:"completed_by,omitempty"`
}
