// Package workflow implements the procurement workflow engine: legal state
// transitions for workflows, stages and milestones, template instantiation,
// and the derived progress and risk calculations.
package workflow

import "github.com/vendoreval/procflow/pkg/models"

// WorkflowAction names a transition attempt on a workflow.
type WorkflowAction string

const (
	WorkflowActionStart    WorkflowAction = "start"
	WorkflowActionComplete WorkflowAction = "complete"
	WorkflowActionCancel   WorkflowAction = "cancel"
)

// StageAction names a transition attempt on a stage.
type StageAction string

const (
	StageActionStart    StageAction = "start"
	StageActionComplete StageAction = "complete"
	StageActionSkip     StageAction = "skip"
	StageActionBlock    StageAction = "block"
	StageActionUnblock  StageAction = "unblock"
)

// MilestoneAction names a transition attempt on a milestone.
type MilestoneAction string

const (
	MilestoneActionComplete MilestoneAction = "complete"
	MilestoneActionSkip     MilestoneAction = "skip"
)

type workflowTransition struct {
	From   models.WorkflowStatus
	Action WorkflowAction
}

type stageTransition struct {
	From   models.StageStatus
	Action StageAction
}

type milestoneTransition struct {
	From   models.MilestoneStatus
	Action MilestoneAction
}

// The transition tables are the single source of truth for legality. Any
// (state, action) pair absent from a table is an invalid transition.
var workflowTransitions = map[workflowTransition]models.WorkflowStatus{
	{models.WorkflowStatusNotStarted, WorkflowActionStart}:    models.WorkflowStatusInProgress,
	{models.WorkflowStatusInProgress, WorkflowActionComplete}: models.WorkflowStatusCompleted,
	{models.WorkflowStatusNotStarted, WorkflowActionCancel}:   models.WorkflowStatusCancelled,
	{models.WorkflowStatusInProgress, WorkflowActionCancel}:   models.WorkflowStatusCancelled,
}

var stageTransitions = map[stageTransition]models.StageStatus{
	{models.StageStatusPending, StageActionStart}:       models.StageStatusInProgress,
	{models.StageStatusInProgress, StageActionComplete}: models.StageStatusCompleted,
	{models.StageStatusPending, StageActionSkip}:        models.StageStatusSkipped,
	{models.StageStatusInProgress, StageActionBlock}:    models.StageStatusBlocked,
	{models.StageStatusBlocked, StageActionUnblock}:     models.StageStatusInProgress,
}

var milestoneTransitions = map[milestoneTransition]models.MilestoneStatus{
	{models.MilestoneStatusPending, MilestoneActionComplete}: models.MilestoneStatusCompleted,
	{models.MilestoneStatusPending, MilestoneActionSkip}:     models.MilestoneStatusSkipped,
}

// NextWorkflowStatus returns the status reached by applying action from the
// given status. ok is false when the transition is not legal.
func NextWorkflowStatus(from models.WorkflowStatus, action WorkflowAction) (models.WorkflowStatus, bool) {
	to, ok := workflowTransitions[workflowTransition{From: from, Action: action}]

	return to, ok
}

// NextStageStatus returns the status reached by applying action from the
// given status. ok is false when the transition is not legal.
func NextStageStatus(from models.StageStatus, action StageAction) (models.StageStatus, bool) {
	to, ok := stageTransitions[stageTransition{From: from, Action: action}]

	return to, ok
}

// NextMilestoneStatus returns the status reached by applying action from the
// given status. ok is false when the transition is not legal.
func NextMilestoneStatus(from models.MilestoneStatus, action MilestoneAction) (models.MilestoneStatus, bool) {
	to, ok := milestoneTransitions[milestoneTransition{From: from, Action: action}]

	return to, ok
}
