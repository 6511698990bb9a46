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

// StartStage moves a pending stage into progress and stamps its actual start.
func (o *Orchestrator) StartStage(ctx context.Context, stageID, actorID string) (*WorkflowView, error) {
	return o.transitionStage(ctx, stageID, actorID, workflow.StageActionStart, events.StageStartedEvent,
		func(s *models.Stage, now time.Time) string {
			s.ActualStartDate = &now

			return fmt.Sprintf("Stage %s started", s.Name)
		})
}

// CompleteStage completes an in-progress stage and stamps its actual end.
// Pending milestones under the stage are left untouched; completion never
// cascades.
func (o *Orchestrator) CompleteStage(ctx context.Context, stageID, actorID string) (*WorkflowView, error) {
	return o.transitionStage(ctx, stageID, actorID, workflow.StageActionComplete, events.StageCompletedEvent,
		func(s *models.Stage, now time.Time) string {
			s.ActualEndDate = &now

			return fmt.Sprintf("Stage %s completed", s.Name)
		})
}

// SkipStage skips a pending stage. Skipped stages drop out of the progress
// denominator entirely.
func (o *Orchestrator) SkipStage(ctx context.Context, stageID, actorID string) (*WorkflowView, error) {
	return o.transitionStage(ctx, stageID, actorID, workflow.StageActionSkip, events.StageSkippedEvent,
		func(s *models.Stage, _ time.Time) string {
			return fmt.Sprintf("Stage %s skipped", s.Name)
		})
}

// BlockStage blocks an in-progress stage. The reason is required and recorded
// on the stage until it is unblocked.
func (o *Orchestrator) BlockStage(ctx context.Context, stageID, actorID, reason string) (*WorkflowView, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a blocking reason must be provided", ErrReasonRequired)
	}

	return o.transitionStage(ctx, stageID, actorID, workflow.StageActionBlock, events.StageBlockedEvent,
		func(s *models.Stage, _ time.Time) string {
			s.BlockedReason = &reason

			return fmt.Sprintf("Stage %s blocked: %s", s.Name, reason)
		})
}

// UnblockStage returns a blocked stage to in progress, clears the blocking
// reason and stamps the unblock time.
func (o *Orchestrator) UnblockStage(ctx context.Context, stageID, actorID string) (*WorkflowView, error) {
	return o.transitionStage(ctx, stageID, actorID, workflow.StageActionUnblock, events.StageUnblockedEvent,
		func(s *models.Stage, now time.Time) string {
			s.BlockedReason = nil
			s.UnblockedAt = &now

			return fmt.Sprintf("Stage %s unblocked", s.Name)
		})
}

// transitionStage runs one stage transition as a read-check-write unit inside
// a single transaction, mirroring transitionWorkflow.
func (o *Orchestrator) transitionStage(
	ctx context.Context,
	stageID, actorID string,
	action workflow.StageAction,
	eventType events.EventType,
	mutate func(s *models.Stage, now time.Time) string,
) (*WorkflowView, error) {
	op := "stage." + string(action)

	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator."+op,
		attribute.String(otelhelper.StageIDKey, stageID),
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
		w, err := store.WorkflowRepository().GetByStageID(ctx, stageID)
		if err != nil {
			return err
		}

		stage := w.StageByID(stageID)
		if stage == nil {
			return persistence.ErrStageNotFound
		}

		next, ok := workflow.NextStageStatus(stage.Status, action)
		if !ok {
			return fmt.Errorf("%w: cannot %s stage in status %s", ErrInvalidTransition, action, stage.Status)
		}

		now := o.now().UTC()
		stage.Status = next
		description := mutate(stage, now)

		if err := store.WorkflowRepository().UpdateStage(ctx, stage); err != nil {
			return err
		}

		entry = o.newEntry(w.ID, &stage.ID, nil, description, actorID)
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

	o.logger.InfoContext(ctx, "stage transition applied", "stage_id", stageID, "action", action)
	o.publish(ctx, eventType, entry)

	return o.view(updated), nil
}
