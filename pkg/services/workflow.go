package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vendoreval/procflow/pkg/events"
	"github.com/vendoreval/procflow/pkg/models"
	"github.com/vendoreval/procflow/pkg/otelhelper"
	"github.com/vendoreval/procflow/pkg/persistence"
	"github.com/vendoreval/procflow/pkg/workflow"
)

// CreateWorkflowRequest carries the per-instance parameters for instantiating
// a workflow from a template.
type CreateWorkflowRequest struct {
	TemplateID          string    `json:"template_id"           validate:"required"`
	VendorID            string    `json:"vendor_id"             validate:"required"`
	EvaluationProjectID string    `json:"evaluation_project_id" validate:"required"`
	Name                string    `json:"name"                  validate:"required,min=3"`
	Description         string    `json:"description"`
	PlannedStartDate    time.Time `json:"planned_start_date"    validate:"required"`
	OwnerName           string    `json:"owner_name"            validate:"required"`
	CreatedBy           string    `json:"created_by"            validate:"required"`
}

// CreateWorkflowFromTemplate materializes a workflow tree from a template and
// persists it, with its creation audit entry, as one atomic unit.
func (o *Orchestrator) CreateWorkflowFromTemplate(ctx context.Context, req CreateWorkflowRequest) (*WorkflowView, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator.create_workflow",
		attribute.String(otelhelper.TemplateIDKey, req.TemplateID),
		attribute.String(otelhelper.ProjectIDKey, req.EvaluationProjectID),
	)
	defer span.End()

	if strings.TrimSpace(req.CreatedBy) == "" {
		return nil, fmt.Errorf("%w: created_by must identify the acting user", ErrActorRequired)
	}

	template, err := o.persistence.TemplateRepository().GetByID(ctx, req.TemplateID)
	if err != nil {
		err = o.classify("CreateWorkflowFromTemplate", err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	created := workflow.Instantiate(template, workflow.InstantiateParams{
		VendorID:            req.VendorID,
		EvaluationProjectID: req.EvaluationProjectID,
		Name:                req.Name,
		Description:         req.Description,
		PlannedStartDate:    req.PlannedStartDate,
		OwnerName:           req.OwnerName,
		CreatedBy:           req.CreatedBy,
	}, o.now())

	entry := o.newEntry(created.ID, nil, nil,
		fmt.Sprintf("Workflow created from template %s", template.Name), req.CreatedBy)

	err = o.persistence.Transact(ctx, func(store persistence.Store) error {
		if err := store.WorkflowRepository().Create(ctx, created); err != nil {
			return err
		}

		return store.ActivityRepository().Append(ctx, entry)
	})
	if err != nil {
		err = o.classify("CreateWorkflowFromTemplate", err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	o.logger.InfoContext(ctx, "workflow created", "workflow_id", created.ID, "template_id", template.ID)
	o.publish(ctx, events.WorkflowCreatedEvent, entry)

	return o.view(created), nil
}

// StartWorkflow moves a workflow from not started to in progress and stamps
// the actual start date.
func (o *Orchestrator) StartWorkflow(ctx context.Context, workflowID, actorID string) (*WorkflowView, error) {
	return o.transitionWorkflow(ctx, workflowID, actorID, workflow.WorkflowActionStart, events.WorkflowStartedEvent,
		func(w *models.Workflow, now time.Time) string {
			w.ActualStartDate = &now

			return "Workflow started"
		})
}

// CompleteWorkflow moves a workflow from in progress to completed and stamps
// the actual end date. Completion below 100% progress is permitted: a human
// may close out a workflow with intentionally skipped remainder.
func (o *Orchestrator) CompleteWorkflow(ctx context.Context, workflowID, actorID string) (*WorkflowView, error) {
	return o.transitionWorkflow(ctx, workflowID, actorID, workflow.WorkflowActionComplete, events.WorkflowCompletedEvent,
		func(w *models.Workflow, now time.Time) string {
			w.ActualEndDate = &now

			return "Workflow completed"
		})
}

// CancelWorkflow cancels a not-started or in-progress workflow. The reason is
// required and recorded on the workflow.
func (o *Orchestrator) CancelWorkflow(ctx context.Context, workflowID, actorID, reason string) (*WorkflowView, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a cancellation reason must be provided", ErrReasonRequired)
	}

	return o.transitionWorkflow(ctx, workflowID, actorID, workflow.WorkflowActionCancel, events.WorkflowCancelledEvent,
		func(w *models.Workflow, _ time.Time) string {
			w.CancellationReason = &reason

			return "Workflow cancelled: " + reason
		})
}

// transitionWorkflow runs one workflow transition as a read-check-write unit:
// the workflow is re-read inside the transaction, the transition table is
// consulted against the committed status, and the update plus its activity
// entry commit together or not at all.
func (o *Orchestrator) transitionWorkflow(
	ctx context.Context,
	workflowID, actorID string,
	action workflow.WorkflowAction,
	eventType events.EventType,
	mutate func(w *models.Workflow, now time.Time) string,
) (*WorkflowView, error) {
	op := "workflow." + string(action)

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator."+op,
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.ActorIDKey, actorID),
	)
	defer span.End()

	if strings.TrimSpace(actorID) == "" {
		return nil, fmt.Errorf("%w: every transition requires an acting user", ErrActorRequired)
	}

	var (
		updated *models.Workflow
		entry   *models.ActivityLogEntry
	)

	err := o.persistence.Transact(ctx, func(store persistence.Store) error {
		w, err := store.WorkflowRepository().GetByID(ctx, workflowID)
		if err != nil {
			return err
		}

		next, ok := workflow.NextWorkflowStatus(w.Status, action)
		if !ok {
			return fmt.Errorf("%w: cannot %s workflow in status %s", ErrInvalidTransition, action, w.Status)
		}

		now := o.now().UTC()
		w.Status = next
		description := mutate(w, now)

		if err := store.WorkflowRepository().UpdateWorkflow(ctx, w); err != nil {
			return err
		}

		entry = o.newEntry(w.ID, nil, nil, description, actorID)
		if err := store.ActivityRepository().Append(ctx, entry); err != nil {
			return err
		}

		updated = w

		return nil
	})
	if err != nil {
		err = o.classify(op, err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	o.logger.InfoContext(ctx, "workflow transition applied", "workflow_id", workflowID, "action", action, "status", updated.Status)
	o.publish(ctx, eventType, entry)

	return o.view(updated), nil
}
