package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vendoreval/procflow/pkg/models"
	"github.com/vendoreval/procflow/pkg/otelhelper"
	"github.com/vendoreval/procflow/pkg/workflow"
)

// DashboardStats summarizes workflow health for one evaluation project.
type DashboardStats struct {
	Total             int                           `json:"total"`
	ByStatus          map[models.WorkflowStatus]int `json:"by_status"`
	Overdue           int                           `json:"overdue"`
	AtRisk            int                           `json:"at_risk"`
	CompletedThisWeek int                           `json:"completed_this_week"`
}

// DashboardData is the cross-workflow snapshot served to the dashboard. It is
// a read-only aggregation and may be served from the snapshot cache.
type DashboardData struct {
	Workflows          []*WorkflowView              `json:"workflows"`
	Stats              DashboardStats               `json:"stats"`
	UpcomingMilestones []workflow.UpcomingMilestone `json:"upcoming_milestones"`
}

// GetDashboardData aggregates every workflow of an evaluation project with
// derived progress and risk, status counts, and the cross-workflow upcoming
// milestones view. When a snapshot cache is configured, a fresh-enough cached
// snapshot is returned instead of recomputing.
func (o *Orchestrator) GetDashboardData(ctx context.Context, evaluationProjectID string) (*DashboardData, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "orchestrator.dashboard",
		attribute.String(otelhelper.ProjectIDKey, evaluationProjectID),
	)
	defer span.End()

	var cached DashboardData

	hit, err := o.dashCache.Get(ctx, evaluationProjectID, &cached)
	if err != nil {
		o.logger.WarnContext(ctx, "dashboard cache read failed", "error", err)
	} else if hit {
		return &cached, nil
	}

	workflows, err := o.persistence.WorkflowRepository().GetAll(ctx, evaluationProjectID)
	if err != nil {
		err = o.classify("GetDashboardData", err)
		otelhelper.SetError(span, err)

		return nil, err
	}

	now := o.now()
	data := &DashboardData{
		Workflows: make([]*WorkflowView, 0, len(workflows)),
		Stats: DashboardStats{
			Total:    len(workflows),
			ByStatus: make(map[models.WorkflowStatus]int),
		},
		UpcomingMilestones: workflow.UpcomingMilestones(workflows),
	}

	weekStart := startOfWeek(now)

	for _, w := range workflows {
		view := o.view(w)
		data.Workflows = append(data.Workflows, view)
		data.Stats.ByStatus[w.Status]++

		if view.IsOverdue {
			data.Stats.Overdue++
		}

		if view.IsAtRisk {
			data.Stats.AtRisk++
		}

		if w.Status == models.WorkflowStatusCompleted && w.ActualEndDate != nil && !w.ActualEndDate.Before(weekStart) {
			data.Stats.CompletedThisWeek++
		}
	}

	if err := o.dashCache.Set(ctx, evaluationProjectID, data); err != nil {
		o.logger.WarnContext(ctx, "dashboard cache write failed", "error", err)
	}

	return data, nil
}

// startOfWeek returns Monday 00:00 UTC of the week containing t.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC()

	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -daysSinceMonday)

	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}
