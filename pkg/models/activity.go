package models

import "time"

// ActivityLogEntry is an immutable audit record, appended for every
// successful state transition and never updated or deleted. Entries are
// totally ordered by PerformedAt with ID as tiebreak.
type ActivityLogEntry struct {
	ID                 string    `json:"id"`
	WorkflowID         string    `json:"workflow_id"`
	RelatedStageID     *string   `json:"related_stage_id,omitempty"`
	RelatedMilestoneID *string   `json:"related_milestone_id,omitempty"`
	Description        string    `json:"activity_description"`
	PerformedBy        string    `json:"performed_by"`
	PerformedAt        time.Time `json:"performed_at"`
}
