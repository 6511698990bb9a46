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

// CompleteMilestone marks a pending milestone completed, recording who
// completed it and when. The owning stage must be in progress.
func (o *Orchestrator) CompleteMilestone(ctx context.Context, milestoneID, actorID string) (*WorkflowView, error) {
	return o.transitionMilestone(ctx, milestoneID, actorID, workflow.MilestoneActionComplete, events.MilestoneCompletedEvent,
		func(m *models.Milestone, actor string, now time.Time) string {
			m.CompletedAt = &now
			m.CompletedBy = &actor

			return fmt.Sprintf("Milestone %s completed", m.Name)
		})
}

// SkipMilestone marks a pending milestone skipped. The owning stage must be
// in progress.
func (o *Orchestrator) SkipMilestone(ctx context.Context, milestoneID, actorID string) (*WorkflowView, error) {
	return o.transitionMilestone(ctx, milestoneID, actorID, workflow.MilestoneActionSkip, events.MilestoneSkippedEvent,
		func(m *models.Milestone, _ string, _ time.Time) string {
			return fmt.Sprintf("Milestone %s skipped", m.Name)
		})
}

// transitionMilestone runs one milestone transition as a read-check-write
// unit. Milestones cannot move while the owning stage has not started or is
// blocked.
func (o *Orchestrator) transitionMilestone(
	ctx context.Context,
	milestoneID, actorID string,
	action workflow.MilestoneAction,
	eventType events.EventType,
	mutate func(m *models.Milestone, actor string, now time.Time) string,
) (*WorkflowView, error) {
	op := "milestone." + string(action)

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator."+op,
		attribute.String(otelhelper.MilestoneIDKey, milestoneID),
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
		w, err := store.WorkflowRepository().GetByMilestoneID(ctx, milestoneID)
		if err != nil {
			return err
		}

		stage, milestone := w.MilestoneByID(milestoneID)
		if milestone == nil {
			return persistence.ErrMilestoneNotFound
		}

		if stage.Status != models.StageStatusInProgress {
			return fmt.Errorf("%w: stage %s is %s", ErrStageNotActive, stage.Name, stage.Status)
		}

		next, ok := workflow.NextMilestoneStatus(milestone.Status, action)
		if !ok {
			return fmt.Errorf("%w: cannot %s milestone in status %s", ErrInvalidTransition, action, milestone.Status)
		}

		now := o.now().UTC()
		milestone.Status = next
		description := mutate(milestone, actorID, now)

		if err := store.WorkflowRepository().UpdateMilestone(ctx, milestone); err != nil {
			return err
		}

		entry = o.newEntry(w.ID, &stage.ID, &milestone.ID, description, actorID)
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

	o.logger.InfoContext(ctx, "milestone transition applied", "milestone_id", milestoneID, "action", action)
	o.publish(ctx, eventType, entry)

	return o.view(updated), nil
}
