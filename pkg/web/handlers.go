// Package web provides the HTTP handlers and REST endpoints for the
// procurement workflow engine.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/vendoreval/procflow/pkg/services"
)

type APIHandlers struct {
	orchestrator *services.Orchestrator
	validator    *validator.Validate
}

func NewAPIHandlers(orchestrator *services.Orchestrator, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		validator:    validator,
	}
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	templates, err := h.orchestrator.GetTemplates(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"templates": templates})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	plannedStart, err := time.Parse(time.DateOnly, req.PlannedStartDate)
	if err != nil {
		return badRequest(c, "planned_start_date must be a YYYY-MM-DD date")
	}

	created, err := h.orchestrator.CreateWorkflowFromTemplate(c.Context(), services.CreateWorkflowRequest{
		TemplateID:          req.TemplateID,
		VendorID:            req.VendorID,
		EvaluationProjectID: req.EvaluationProjectID,
		Name:                req.Name,
		Description:         req.Description,
		PlannedStartDate:    plannedStart,
		OwnerName:           req.OwnerName,
		CreatedBy:           req.CreatedBy,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	view, err := h.orchestrator.GetWorkflow(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) GetDashboard(c fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return badRequest(c, "Evaluation project ID is required")
	}

	data, err := h.orchestrator.GetDashboardData(c.Context(), projectID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(data)
}

func (h *APIHandlers) GetActivityLog(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	entries, err := h.orchestrator.GetActivityLog(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"entries": entries})
}

// Workflow transitions.

func (h *APIHandlers) StartWorkflow(c fiber.Ctx) error {
	return h.runAction(c, func(id, actor string) (*services.WorkflowView, error) {
		return h.orchestrator.StartWorkflow(c.Context(), id, actor)
	})
}

func (h *APIHandlers) CompleteWorkflow(c fiber.Ctx) error {
	return h.runAction(c, func(id, actor string) (*services.WorkflowView, error) {
		return h.orchestrator.CompleteWorkflow(c.Context(), id, actor)
	})
}

func (h *APIHandlers) CancelWorkflow(c fiber.Ctx) error {
	return h.runReasonAction(c, func(id, actor, reason string) (*services.WorkflowView, error) {
		return h.orchestrator.CancelWorkflow(c.Context(), id, actor, reason)
	})
}

// Stage transitions.

func (h *APIHandlers) StartStage(c fiber.Ctx) error {
	return h.runAction(c, func(id, actor string) (*services.WorkflowView, error) {
		return h.orchestrator.StartStage(c.Context(), id, actor)
	})
}

func (h *APIHandlers) CompleteStage(c fiber.Ctx) error {
	return h.runAction(c, func(id, actor string) (*services.WorkflowView, error) {
		return h.orchestrator.CompleteStage(c.Context(), id, actor)
	})
}

func (h *APIHandlers) SkipStage(c fiber.Ctx) error {
	return h.runAction(c, func(id, actor string) (*services.WorkflowView, error) {
		return h.orchestrator.SkipStage(c.Context(), id, actor)
	})
}

func (h *APIHandlers) BlockStage(c fiber.Ctx) error {
	return h.runReasonAction(c, func(id, actor, reason string) (*services.WorkflowView, error) {
		return h.orchestrator.BlockStage(c.Context(), id, actor, reason)
	})
}

func (h *APIHandlers) UnblockStage(c fiber.Ctx) error {
	return h.runAction(c, func(id, actor string) (*services.WorkflowView, error) {
		return h.orchestrator.UnblockStage(c.Context(), id, actor)
	})
}

// Milestone transitions.

func (h *APIHandlers) CompleteMilestone(c fiber.Ctx) error {
	return h.runAction(c, func(id, actor string) (*services.WorkflowView, error) {
		return h.orchestrator.CompleteMilestone(c.Context(), id, actor)
	})
}

func (h *APIHandlers) SkipMilestone(c fiber.Ctx) error {
	return h.runAction(c, func(id, actor string) (*services.WorkflowView, error) {
		return h.orchestrator.SkipMilestone(c.Context(), id, actor)
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.orchestrator.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) runAction(c fiber.Ctx, action func(id, actor string) (*services.WorkflowView, error)) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "ID is required")
	}

	var req ActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	view, err := action(id, req.ActorID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) runReasonAction(c fiber.Ctx, action func(id, actor, reason string) (*services.WorkflowView, error)) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "ID is required")
	}

	var req ReasonActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	view, err := action(id, req.ActorID, req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}
