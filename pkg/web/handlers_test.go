package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendoreval/procflow/pkg/models"
	"github.com/vendoreval/procflow/pkg/persistence/file"
	"github.com/vendoreval/procflow/pkg/services"
	"github.com/vendoreval/procflow/pkg/web"
)

func seedTemplate(t *testing.T, root string) {
	t.Helper()

	err := file.NewTemplateRepository(root).Put(&models.WorkflowTemplate{
		ID:              "software-standard",
		Name:            "Standard Software Procurement",
		ProcurementType: models.ProcurementTypeSoftware,
		Stages: []*models.StageTemplate{
			{Name: "Requirements", TargetDays: 5, Milestones: []string{"Requirements documented"}},
			{Name: "Vendor evaluation", TargetDays: 10, Milestones: []string{"Demos completed"}},
		},
	})
	require.NoError(t, err)
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	root := t.TempDir()
	seedTemplate(t, root)

	persistence := file.NewPersistence(root)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orchestrator := services.NewOrchestrator(persistence, nil, nil, logger)
	handlers := web.NewAPIHandlers(orchestrator, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()

	app.Get("/templates", handlers.GetTemplates)
	app.Get("/dashboard/:projectId", handlers.GetDashboard)

	w := app.Group("/workflows")
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Get("/:id/activity", handlers.GetActivityLog)
	w.Post("/:id/start", handlers.StartWorkflow)
	w.Post("/:id/complete", handlers.CompleteWorkflow)
	w.Post("/:id/cancel", handlers.CancelWorkflow)

	s := app.Group("/stages")
	s.Post("/:id/start", handlers.StartStage)
	s.Post("/:id/complete", handlers.CompleteStage)
	s.Post("/:id/skip", handlers.SkipStage)
	s.Post("/:id/block", handlers.BlockStage)
	s.Post("/:id/unblock", handlers.UnblockStage)

	m := app.Group("/milestones")
	m.Post("/:id/complete", handlers.CompleteMilestone)
	m.Post("/:id/skip", handlers.SkipMilestone)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func getJSON(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeWorkflow(t *testing.T, resp *http.Response) *models.Workflow {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))

	return &workflow
}

func createWorkflowViaAPI(t *testing.T, app *fiber.App) *models.Workflow {
	t.Helper()

	resp := postJSON(t, app, "/workflows", web.CreateWorkflowRequest{
		TemplateID:          "software-standard",
		VendorID:            "vendor-1",
		EvaluationProjectID: "project-1",
		Name:                "Acme CRM rollout",
		PlannedStartDate:    "2026-01-01",
		OwnerName:           "Dana",
		CreatedBy:           "user-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decodeWorkflow(t, resp)
}

func TestCreateWorkflowEndpoint(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	t.Run("successful creation", func(t *testing.T) {
		created := createWorkflowViaAPI(t, app)

		assert.NotEmpty(t, created.ID)
		assert.Equal(t, models.WorkflowStatusNotStarted, created.Status)
		assert.Len(t, created.Stages, 2)
	})

	t.Run("missing template id", func(t *testing.T) {
		resp := postJSON(t, app, "/workflows", web.CreateWorkflowRequest{
			VendorID:            "vendor-1",
			EvaluationProjectID: "project-1",
			Name:                "Acme CRM rollout",
			PlannedStartDate:    "2026-01-01",
			OwnerName:           "Dana",
			CreatedBy:           "user-1",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed planned start date", func(t *testing.T) {
		resp := postJSON(t, app, "/workflows", web.CreateWorkflowRequest{
			TemplateID:          "software-standard",
			VendorID:            "vendor-1",
			EvaluationProjectID: "project-1",
			Name:                "Acme CRM rollout",
			PlannedStartDate:    "01/02/2026",
			OwnerName:           "Dana",
			CreatedBy:           "user-1",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown template", func(t *testing.T) {
		resp := postJSON(t, app, "/workflows", web.CreateWorkflowRequest{
			TemplateID:          "missing",
			VendorID:            "vendor-1",
			EvaluationProjectID: "project-1",
			Name:                "Acme CRM rollout",
			PlannedStartDate:    "2026-01-01",
			OwnerName:           "Dana",
			CreatedBy:           "user-1",
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		resp := postJSON(t, app, "/workflows", "not-json")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetWorkflowEndpoint(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflowViaAPI(t, app)

	resp := getJSON(t, app, "/workflows/"+created.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	loaded := decodeWorkflow(t, resp)
	assert.Equal(t, created.ID, loaded.ID)

	resp = getJSON(t, app, "/workflows/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWorkflowTransitionEndpoints(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflowViaAPI(t, app)

	t.Run("missing actor is rejected", func(t *testing.T) {
		resp := postJSON(t, app, "/workflows/"+created.ID+"/start", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("start succeeds", func(t *testing.T) {
		resp := postJSON(t, app, "/workflows/"+created.ID+"/start", web.ActionRequest{ActorID: "user-2"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		started := decodeWorkflow(t, resp)
		assert.Equal(t, models.WorkflowStatusInProgress, started.Status)
		assert.NotNil(t, started.ActualStartDate)
	})

	t.Run("starting twice conflicts", func(t *testing.T) {
		resp := postJSON(t, app, "/workflows/"+created.ID+"/start", web.ActionRequest{ActorID: "user-2"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "invalid_transition")
	})

	t.Run("cancel requires a reason", func(t *testing.T) {
		resp := postJSON(t, app, "/workflows/"+created.ID+"/cancel", web.ActionRequest{ActorID: "user-2"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("cancel with reason succeeds", func(t *testing.T) {
		resp := postJSON(t, app, "/workflows/"+created.ID+"/cancel", web.ReasonActionRequest{
			ActorID: "user-2",
			Reason:  "vendor withdrew",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		cancelled := decodeWorkflow(t, resp)
		assert.Equal(t, models.WorkflowStatusCancelled, cancelled.Status)
	})
}

func TestStageAndMilestoneEndpoints(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflowViaAPI(t, app)

	resp := postJSON(t, app, "/workflows/"+created.ID+"/start", web.ActionRequest{ActorID: "user-2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stage := created.Stages[0]
	milestone := stage.Milestones[0]

	t.Run("milestone on a pending stage conflicts", func(t *testing.T) {
		resp := postJSON(t, app, "/milestones/"+milestone.ID+"/complete", web.ActionRequest{ActorID: "user-2"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "stage_not_active")
	})

	t.Run("start stage", func(t *testing.T) {
		resp := postJSON(t, app, "/stages/"+stage.ID+"/start", web.ActionRequest{ActorID: "user-2"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("block without reason is rejected", func(t *testing.T) {
		resp := postJSON(t, app, "/stages/"+stage.ID+"/block", web.ActionRequest{ActorID: "user-2"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("complete milestone on active stage", func(t *testing.T) {
		resp := postJSON(t, app, "/milestones/"+milestone.ID+"/complete", web.ActionRequest{ActorID: "user-2"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		view := decodeWorkflow(t, resp)
		_, updated := view.MilestoneByID(milestone.ID)
		require.NotNil(t, updated)
		assert.Equal(t, models.MilestoneStatusCompleted, updated.Status)
	})

	t.Run("unknown stage is not found", func(t *testing.T) {
		resp := postJSON(t, app, "/stages/missing/start", web.ActionRequest{ActorID: "user-2"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGetTemplatesEndpoint(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp := getJSON(t, app, "/templates")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		Templates []*models.WorkflowTemplate `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Templates, 1)
	assert.Equal(t, "software-standard", payload.Templates[0].ID)
}

func TestGetActivityLogEndpoint(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	created := createWorkflowViaAPI(t, app)

	resp := postJSON(t, app, "/workflows/"+created.ID+"/start", web.ActionRequest{ActorID: "user-2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = getJSON(t, app, "/workflows/"+created.ID+"/activity")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		Entries []*models.ActivityLogEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Entries, 2)
	assert.Equal(t, "Workflow started", payload.Entries[0].Description)
}

func TestGetDashboardEndpoint(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	createWorkflowViaAPI(t, app)

	resp := getJSON(t, app, "/dashboard/project-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload services.DashboardData
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, 1, payload.Stats.Total)
	assert.Len(t, payload.Workflows, 1)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp := getJSON(t, app, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
