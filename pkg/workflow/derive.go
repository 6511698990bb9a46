package workflow

import (
	"sort"
	"time"

	"github.com/vendoreval/procflow/pkg/models"
)

const (
	atRiskWindowDays      = 7
	atRiskProgressCeiling = 80
	hoursPerDay           = 24
	fullProgress          = 100
)

// ProgressPercent returns completed stages over non-skipped total stages as a
// truncated integer percentage. Skipped stages neither help nor hurt
// progress; a workflow with no eligible stages reports 0.
func ProgressPercent(w *models.Workflow) int {
	var completed, skipped int

	for _, stage := range w.Stages {
		switch stage.Status {
		case models.StageStatusCompleted:
			completed++
		case models.StageStatusSkipped:
			skipped++
		}
	}

	eligible := len(w.Stages) - skipped
	if eligible == 0 {
		return 0
	}

	return completed * fullProgress / eligible
}

// IsOverdue reports whether the workflow's planned end date has passed while
// the workflow is still active.
func IsOverdue(w *models.Workflow, now time.Time) bool {
	if w.PlannedEndDate == nil || w.Status.Terminal() {
		return false
	}

	return w.PlannedEndDate.Before(now)
}

// IsAtRisk reports whether an in-progress workflow is nearing its planned end
// date with insufficient progress: within the risk window and below the
// progress ceiling. Overdue and at-risk are independent booleans.
func IsAtRisk(w *models.Workflow, now time.Time) bool {
	if w.Status != models.WorkflowStatusInProgress || w.PlannedEndDate == nil {
		return false
	}

	daysRemaining := int(w.PlannedEndDate.Sub(now).Hours() / hoursPerDay)
	if daysRemaining < 0 || daysRemaining > atRiskWindowDays {
		return false
	}

	return ProgressPercent(w) < atRiskProgressCeiling
}

// UpcomingMilestone is a pending milestone on an in-progress stage, surfaced
// for the cross-workflow "what's next" view.
type UpcomingMilestone struct {
	Milestone    *models.Milestone `json:"milestone"`
	StageID      string            `json:"stage_id"`
	StageName    string            `json:"stage_name"`
	StageDue     time.Time         `json:"stage_due"`
	WorkflowID   string            `json:"workflow_id"`
	WorkflowName string            `json:"workflow_name"`
	VendorID     string            `json:"vendor_id"`
}

// UpcomingMilestones returns, across all non-terminal workflows, the pending
// milestones belonging to in-progress stages, sorted by the owning stage's
// planned end date ascending.
func UpcomingMilestones(workflows []*models.Workflow) []UpcomingMilestone {
	upcoming := make([]UpcomingMilestone, 0)

	for _, w := range workflows {
		if w.Status.Terminal() {
			continue
		}

		for _, stage := range w.Stages {
			if stage.Status != models.StageStatusInProgress {
				continue
			}

			for _, milestone := range stage.Milestones {
				if milestone.Status != models.MilestoneStatusPending {
					continue
				}

				upcoming = append(upcoming, UpcomingMilestone{
					Milestone:    milestone,
					StageID:      stage.ID,
					StageName:    stage.Name,
					StageDue:     stage.PlannedEndDate,
					WorkflowID:   w.ID,
					WorkflowName: w.Name,
					VendorID:     w.VendorID,
				})
			}
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].StageDue.Before(upcoming[j].StageDue)
	})

	return upcoming
}
