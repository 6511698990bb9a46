package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendoreval/procflow/pkg/models"
	"github.com/vendoreval/procflow/pkg/persistence/file"
)

func testTemplate() *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		ID:              "software-standard",
		Name:            "Standard Software Procurement",
		ProcurementType: models.ProcurementTypeSoftware,
		Stages: []*models.StageTemplate{
			{
				Name:       "Requirements",
				TargetDays: 5,
				Milestones: []string{"Requirements documented"},
			},
			{
				Name:       "Vendor evaluation",
				TargetDays: 10,
				Milestones: []string{"Demos completed", "Scorecards collected"},
			},
			{
				Name:       "Contracting",
				TargetDays: 7,
				Milestones: []string{"Contract signed"},
			},
		},
	}
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, file.NewTemplateRepository(root).Put(testTemplate()))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewOrchestrator(file.NewPersistence(root), nil, nil, logger)
}

func createTestWorkflow(t *testing.T, o *Orchestrator) *WorkflowView {
	t.Helper()

	view, err := o.CreateWorkflowFromTemplate(context.Background(), CreateWorkflowRequest{
		TemplateID:          "software-standard",
		VendorID:            "vendor-1",
		EvaluationProjectID: "project-1",
		Name:                "Acme CRM rollout",
		PlannedStartDate:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		OwnerName:           "Dana",
		CreatedBy:           "user-1",
	})
	require.NoError(t, err)

	return view
}

func TestCreateWorkflowFromTemplate(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	o.now = func() time.Time { return time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	view := createTestWorkflow(t, o)

	assert.Equal(t, models.WorkflowStatusNotStarted, view.Status)
	assert.Equal(t, 0, view.ProgressPercent)
	assert.False(t, view.IsOverdue)
	assert.False(t, view.IsAtRisk)
	require.Len(t, view.Stages, 3)
	assert.Equal(t, models.StageStatusPending, view.Stages[0].Status)

	entries, err := o.GetActivityLog(ctx, view.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Workflow created from template Standard Software Procurement", entries[0].Description)
	assert.Equal(t, "user-1", entries[0].PerformedBy)

	// The create persisted the aggregate; a fresh read returns the same tree.
	loaded, err := o.GetWorkflow(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, loaded.ID)
	require.Len(t, loaded.Stages, 3)
	assert.Len(t, loaded.Stages[1].Milestones, 2)
}

func TestGetWorkflow_DerivedFlagsFollowClock(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	clock := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return clock }
	ctx := context.Background()

	// Planned end lands on 2026-01-23 (5 + 10 + 7 target days).
	created := createTestWorkflow(t, o)

	view, err := o.GetWorkflow(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, view.IsOverdue)

	// The same stored aggregate reads as overdue once the clock passes its
	// planned end, without any write in between.
	clock = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	view, err = o.GetWorkflow(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, view.IsOverdue)

	_, err = o.StartWorkflow(ctx, created.ID, "user-2")
	require.NoError(t, err)

	// Terminal statuses are never overdue, however late they finished.
	view, err = o.CompleteWorkflow(ctx, created.ID, "user-2")
	require.NoError(t, err)
	assert.False(t, view.IsOverdue)
}

func TestCreateWorkflowFromTemplate_TemplateNotFound(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)

	_, err := o.CreateWorkflowFromTemplate(context.Background(), CreateWorkflowRequest{
		TemplateID:       "missing",
		Name:             "Orphan",
		PlannedStartDate: time.Now(),
		CreatedBy:        "user-1",
	})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestCreateWorkflowFromTemplate_RequiresActor(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)

	_, err := o.CreateWorkflowFromTemplate(context.Background(), CreateWorkflowRequest{
		TemplateID:       "software-standard",
		Name:             "No actor",
		PlannedStartDate: time.Now(),
		CreatedBy:        "   ",
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestWorkflowLifecycle(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	clock := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return clock }

	created := createTestWorkflow(t, o)
	stage1, stage2, stage3 := created.Stages[0], created.Stages[1], created.Stages[2]

	// Start the workflow.
	view, err := o.StartWorkflow(ctx, created.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusInProgress, view.Status)
	require.NotNil(t, view.ActualStartDate)
	assert.Equal(t, clock, *view.ActualStartDate)

	// Work the first stage and its milestone.
	clock = clock.Add(time.Hour)

	view, err = o.StartStage(ctx, stage1.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, models.StageStatusInProgress, view.StageByID(stage1.ID).Status)

	clock = clock.Add(time.Hour)

	milestone := stage1.Milestones[0]
	view, err = o.CompleteMilestone(ctx, milestone.ID, "user-2")
	require.NoError(t, err)

	_, completed := view.MilestoneByID(milestone.ID)
	assert.Equal(t, models.MilestoneStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.NotNil(t, completed.CompletedBy)
	assert.Equal(t, "user-2", *completed.CompletedBy)

	clock = clock.Add(time.Hour)

	view, err = o.CompleteStage(ctx, stage1.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, models.StageStatusCompleted, view.StageByID(stage1.ID).Status)
	assert.Equal(t, 33, view.ProgressPercent)

	// Second stage gets blocked on legal review.
	clock = clock.Add(time.Hour)

	_, err = o.StartStage(ctx, stage2.ID, "user-2")
	require.NoError(t, err)

	view, err = o.BlockStage(ctx, stage2.ID, "user-2", "awaiting legal review")
	require.NoError(t, err)

	blocked := view.StageByID(stage2.ID)
	assert.Equal(t, models.StageStatusBlocked, blocked.Status)
	require.NotNil(t, blocked.BlockedReason)
	assert.Equal(t, "awaiting legal review", *blocked.BlockedReason)

	// A blocked stage cannot be completed, and the failed attempt leaves no
	// audit entry.
	before, err := o.GetActivityLog(ctx, created.ID)
	require.NoError(t, err)

	_, err = o.CompleteStage(ctx, stage2.ID, "user-2")
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))

	after, err := o.GetActivityLog(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	// Unblock clears the reason and stamps the unblock time.
	clock = clock.Add(time.Hour)

	view, err = o.UnblockStage(ctx, stage2.ID, "user-2")
	require.NoError(t, err)

	unblocked := view.StageByID(stage2.ID)
	assert.Equal(t, models.StageStatusInProgress, unblocked.Status)
	assert.Nil(t, unblocked.BlockedReason)
	require.NotNil(t, unblocked.UnblockedAt)
	assert.Equal(t, clock, *unblocked.UnblockedAt)

	clock = clock.Add(time.Hour)

	_, err = o.CompleteStage(ctx, stage2.ID, "user-2")
	require.NoError(t, err)

	// Skip the last stage: it drops out of the progress denominator.
	view, err = o.SkipStage(ctx, stage3.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 100, view.ProgressPercent)

	// Close out the workflow.
	clock = clock.Add(time.Hour)

	view, err = o.CompleteWorkflow(ctx, created.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCompleted, view.Status)
	require.NotNil(t, view.ActualEndDate)
	assert.Equal(t, clock, *view.ActualEndDate)
	assert.False(t, view.IsOverdue)
	assert.False(t, view.IsAtRisk)
}

func TestCancelWorkflow(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	created := createTestWorkflow(t, o)

	view, err := o.CancelWorkflow(ctx, created.ID, "user-2", "vendor withdrew")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCancelled, view.Status)
	require.NotNil(t, view.CancellationReason)
	assert.Equal(t, "vendor withdrew", *view.CancellationReason)

	entries, err := o.GetActivityLog(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Workflow cancelled: vendor withdrew", entries[0].Description)
}

func TestCancelWorkflow_RequiresReason(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	created := createTestWorkflow(t, o)

	for _, reason := range []string{"", "   ", "\t\n"} {
		_, err := o.CancelWorkflow(ctx, created.ID, "user-2", reason)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	}

	// The workflow is untouched.
	view, err := o.GetWorkflow(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusNotStarted, view.Status)
	assert.Nil(t, view.CancellationReason)
}

func TestBlockStage_RequiresReason(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	created := createTestWorkflow(t, o)

	_, err := o.StartWorkflow(ctx, created.ID, "user-2")
	require.NoError(t, err)

	stageID := created.Stages[0].ID
	_, err = o.StartStage(ctx, stageID, "user-2")
	require.NoError(t, err)

	_, err = o.BlockStage(ctx, stageID, "user-2", "  ")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestTransitions_RequireActor(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	created := createTestWorkflow(t, o)

	_, err := o.StartWorkflow(ctx, created.ID, "")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = o.StartStage(ctx, created.Stages[0].ID, "   ")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = o.CompleteMilestone(ctx, created.Stages[0].Milestones[0].ID, "")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestTerminalWorkflowRejectsFurtherTransitions(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	created := createTestWorkflow(t, o)

	_, err := o.CancelWorkflow(ctx, created.ID, "user-2", "budget cut")
	require.NoError(t, err)

	before, err := o.GetActivityLog(ctx, created.ID)
	require.NoError(t, err)

	_, err = o.StartWorkflow(ctx, created.ID, "user-2")
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))

	_, err = o.CancelWorkflow(ctx, created.ID, "user-2", "again")
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))

	after, err := o.GetActivityLog(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestMilestoneRequiresActiveStage(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	created := createTestWorkflow(t, o)
	stage := created.Stages[0]
	milestone := stage.Milestones[0]

	_, err := o.StartWorkflow(ctx, created.ID, "user-2")
	require.NoError(t, err)

	// Stage still pending: milestone actions are rejected.
	_, err = o.CompleteMilestone(ctx, milestone.ID, "user-2")
	require.Error(t, err)
	assert.True(t, IsStageNotActive(err))

	_, err = o.SkipMilestone(ctx, milestone.ID, "user-2")
	require.Error(t, err)
	assert.True(t, IsStageNotActive(err))

	// Blocked stage: still rejected.
	_, err = o.StartStage(ctx, stage.ID, "user-2")
	require.NoError(t, err)
	_, err = o.BlockStage(ctx, stage.ID, "user-2", "vendor unresponsive")
	require.NoError(t, err)

	_, err = o.CompleteMilestone(ctx, milestone.ID, "user-2")
	require.Error(t, err)
	assert.True(t, IsStageNotActive(err))

	// In-progress stage: allowed.
	_, err = o.UnblockStage(ctx, stage.ID, "user-2")
	require.NoError(t, err)

	_, err = o.CompleteMilestone(ctx, milestone.ID, "user-2")
	require.NoError(t, err)
}

func TestCompleteStageLeavesPendingMilestones(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	created := createTestWorkflow(t, o)
	stage := created.Stages[1]

	_, err := o.StartWorkflow(ctx, created.ID, "user-2")
	require.NoError(t, err)
	_, err = o.StartStage(ctx, stage.ID, "user-2")
	require.NoError(t, err)

	view, err := o.CompleteStage(ctx, stage.ID, "user-2")
	require.NoError(t, err)

	// Stage completion never cascades into its milestones.
	for _, milestone := range view.StageByID(stage.ID).Milestones {
		assert.Equal(t, models.MilestoneStatusPending, milestone.Status)
	}
}

func TestActivityLogNewestFirst(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	clock := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return clock }

	created := createTestWorkflow(t, o)

	clock = clock.Add(time.Minute)
	_, err := o.StartWorkflow(ctx, created.ID, "user-2")
	require.NoError(t, err)

	clock = clock.Add(time.Minute)
	_, err = o.StartStage(ctx, created.Stages[0].ID, "user-2")
	require.NoError(t, err)

	entries, err := o.GetActivityLog(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Stage Requirements started", entries[0].Description)
	assert.Equal(t, "Workflow started", entries[1].Description)
	assert.Equal(t, "Workflow created from template Standard Software Procurement", entries[2].Description)

	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i-1].PerformedAt.Before(entries[i].PerformedAt))
	}

	require.NotNil(t, entries[0].RelatedStageID)
	assert.Equal(t, created.Stages[0].ID, *entries[0].RelatedStageID)
	assert.Nil(t, entries[1].RelatedStageID)
}

func TestGetWorkflow_NotFound(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)

	_, err := o.GetWorkflow(context.Background(), "missing-id")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestStageAndMilestoneNotFound(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	createTestWorkflow(t, o)

	_, err := o.StartStage(ctx, "missing-stage", "user-2")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, err = o.CompleteMilestone(ctx, "missing-milestone", "user-2")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetDashboardData(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)
	ctx := context.Background()

	// Monday.
	clock := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return clock }

	// Overdue: planned end 2026-01-23 is long past and the workflow is active.
	overdue := createTestWorkflow(t, o)
	_, err := o.StartWorkflow(ctx, overdue.ID, "user-2")
	require.NoError(t, err)

	// Completed this week.
	finished := createTestWorkflow(t, o)
	_, err = o.StartWorkflow(ctx, finished.ID, "user-2")
	require.NoError(t, err)
	_, err = o.CompleteWorkflow(ctx, finished.ID, "user-2")
	require.NoError(t, err)

	// Untouched, due in the future so it is neither overdue nor at risk.
	pending, err := o.CreateWorkflowFromTemplate(ctx, CreateWorkflowRequest{
		TemplateID:          "software-standard",
		VendorID:            "vendor-1",
		EvaluationProjectID: "project-1",
		Name:                "Future rollout",
		PlannedStartDate:    time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		OwnerName:           "Dana",
		CreatedBy:           "user-1",
	})
	require.NoError(t, err)

	// A workflow in another project stays out of the snapshot.
	_, err = o.CreateWorkflowFromTemplate(ctx, CreateWorkflowRequest{
		TemplateID:          "software-standard",
		VendorID:            "vendor-2",
		EvaluationProjectID: "project-other",
		Name:                "Other project rollout",
		PlannedStartDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		OwnerName:           "Dana",
		CreatedBy:           "user-1",
	})
	require.NoError(t, err)

	data, err := o.GetDashboardData(ctx, "project-1")
	require.NoError(t, err)

	assert.Equal(t, 3, data.Stats.Total)
	assert.Equal(t, 1, data.Stats.ByStatus[models.WorkflowStatusInProgress])
	assert.Equal(t, 1, data.Stats.ByStatus[models.WorkflowStatusCompleted])
	assert.Equal(t, 1, data.Stats.ByStatus[models.WorkflowStatusNotStarted])
	assert.Equal(t, 1, data.Stats.Overdue)
	assert.Equal(t, 1, data.Stats.CompletedThisWeek)
	assert.Len(t, data.Workflows, 3)

	ids := make(map[string]bool)
	for _, view := range data.Workflows {
		ids[view.ID] = true
	}

	assert.True(t, ids[overdue.ID])
	assert.True(t, ids[finished.ID])
	assert.True(t, ids[pending.ID])
}

func TestGetTemplates(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)

	templates, err := o.GetTemplates(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "software-standard", templates[0].ID)
	require.Len(t, templates[0].Stages, 3)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t)

	message, ok := o.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.NotEmpty(t, message)
}
