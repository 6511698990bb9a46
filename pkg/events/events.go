// Package events defines the transition events published after committed
// workflow state changes. Delivery is best-effort: the activity log table is
// the durable record, the event stream carries no guarantee.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/vendoreval/procflow/pkg/models"
)

// Topic is the channel all transition events are published on.
const Topic = "procflow.workflow.transitions"

const (
	EventTypeMetadataKey  = "event_type"
	WorkflowIDMetadataKey = "workflow_id"
)

type EventType string

const (
	WorkflowCreatedEvent   EventType = "workflow.created"
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowCancelledEvent EventType = "workflow.cancelled"

	StageStartedEvent   EventType = "stage.started"
	StageCompletedEvent EventType = "stage.completed"
	StageSkippedEvent   EventType = "stage.skipped"
	StageBlockedEvent   EventType = "stage.blocked"
	StageUnblockedEvent EventType = "stage.unblocked"

	MilestoneCompletedEvent EventType = "milestone.completed"
	MilestoneSkippedEvent   EventType = "milestone.skipped"
)

// TransitionEvent mirrors the activity log entry the transition produced.
type TransitionEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	WorkflowID  string    `json:"workflow_id"`
	StageID     *string   `json:"stage_id,omitempty"`
	MilestoneID *string   `json:"milestone_id,omitempty"`
	Description string    `json:"description"`
	PerformedBy string    `json:"performed_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTransitionEvent builds an event from the committed activity entry.
func NewTransitionEvent(eventType EventType, entry *models.ActivityLogEntry) TransitionEvent {
	return TransitionEvent{
		ID:          watermill.NewUUID(),
		Type:        eventType,
		WorkflowID:  entry.WorkflowID,
		StageID:     entry.RelatedStageID,
		MilestoneID: entry.RelatedMilestoneID,
		Description: entry.Description,
		PerformedBy: entry.PerformedBy,
		Timestamp:   entry.PerformedAt,
	}
}

// Message converts the event into a watermill message with routing metadata.
func (e TransitionEvent) Message() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transition event: %w", err)
	}

	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set(EventTypeMetadataKey, string(e.Type))
	msg.Metadata.Set(WorkflowIDMetadataKey, e.WorkflowID)

	return msg, nil
}
