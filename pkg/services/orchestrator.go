// Package services implements the workflow orchestrator, the façade the API
// layer calls. It composes the state machines, the repositories, the activity
// logger and the derived progress calculations; no other code path writes
// status fields, so every status change has exactly one activity entry.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vendoreval/procflow/pkg/cache"
	"github.com/vendoreval/procflow/pkg/events"
	"github.com/vendoreval/procflow/pkg/models"
	"github.com/vendoreval/procflow/pkg/persistence"
	"github.com/vendoreval/procflow/pkg/workflow"
)

const tracerName = "procflow/services"

// Orchestrator is the only component allowed to mutate workflow state.
// Publisher and dashboard cache are optional; both are nil-safe.
type Orchestrator struct {
	persistence persistence.Persistence
	publisher   message.Publisher
	dashCache   *cache.Dashboard
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewOrchestrator creates the orchestrator over the given persistence layer.
func NewOrchestrator(p persistence.Persistence, publisher message.Publisher, dashCache *cache.Dashboard, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		persistence: p,
		publisher:   publisher,
		dashCache:   dashCache,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
	}
}

// HealthCheck checks the health of the persistence layer.
func (o *Orchestrator) HealthCheck(ctx context.Context) (string, bool) {
	if o.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := o.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// WorkflowView is the full aggregate plus the derived display fields, so
// callers can refresh progress and risk without a second round trip. The
// derived fields are recomputed on every read and never persisted.
type WorkflowView struct {
	*models.Workflow

	ProgressPercent int  `json:"progress_percent"`
	IsOverdue       bool `json:"is_overdue"`
	IsAtRisk        bool `json:"is_at_risk"`
}

func (o *Orchestrator) view(w *models.Workflow) *WorkflowView {
	now := o.now()

	return &WorkflowView{
		Workflow:        w,
		ProgressPercent: workflow.ProgressPercent(w),
		IsOverdue:       workflow.IsOverdue(w, now),
		IsAtRisk:        workflow.IsAtRisk(w, now),
	}
}

// GetTemplates returns the template catalog.
func (o *Orchestrator) GetTemplates(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	templates, err := o.persistence.TemplateRepository().GetAll(ctx)
	if err != nil {
		return nil, o.classify("GetTemplates", err)
	}

	return templates, nil
}

// GetWorkflow returns one workflow aggregate with derived fields.
func (o *Orchestrator) GetWorkflow(ctx context.Context, workflowID string) (*WorkflowView, error) {
	w, err := o.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, o.classify("GetWorkflow", err)
	}

	return o.view(w), nil
}

// GetActivityLog returns the workflow's audit trail, newest-first.
func (o *Orchestrator) GetActivityLog(ctx context.Context, workflowID string) ([]*models.ActivityLogEntry, error) {
	entries, err := o.persistence.ActivityRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, o.classify("GetActivityLog", err)
	}

	return entries, nil
}

// newEntry builds an activity record stamped with the orchestrator clock.
func (o *Orchestrator) newEntry(workflowID string, stageID, milestoneID *string, description, performedBy string) *models.ActivityLogEntry {
	return &models.ActivityLogEntry{
		ID:                 uuid.New().String(),
		WorkflowID:         workflowID,
		RelatedStageID:     stageID,
		RelatedMilestoneID: milestoneID,
		Description:        description,
		PerformedBy:        performedBy,
		PerformedAt:        o.now().UTC(),
	}
}

// publish sends a transition event after the commit. Best-effort: failures
// are logged, never surfaced, and never roll anything back.
func (o *Orchestrator) publish(ctx context.Context, eventType events.EventType, entry *models.ActivityLogEntry) {
	if o.publisher == nil || entry == nil {
		return
	}

	msg, err := events.NewTransitionEvent(eventType, entry).Message()
	if err != nil {
		o.logger.ErrorContext(ctx, "failed to encode transition event", "error", err, "event_type", eventType)

		return
	}

	if err := o.publisher.Publish(events.Topic, msg); err != nil {
		o.logger.ErrorContext(ctx, "failed to publish transition event", "error", err, "event_type", eventType, "workflow_id", entry.WorkflowID)
	}
}

// classify sorts failures surfacing from a unit of work: domain errors pass
// through untouched, anything else is a storage transport failure and
// surfaces as repository unavailability so callers know a full retry is safe.
func (o *Orchestrator) classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsValidationError(err),
		IsInvalidTransition(err),
		IsStageNotActive(err),
		persistence.IsNotFound(err):
		return err
	default:
		return &ServiceError{Op: op, Message: err.Error(), Err: persistence.ErrUnavailable}
	}
}
