// Package web provides HTTP request and response types for the procurement workflow API.
package web

// CreateWorkflowRequest is the request body for instantiating a workflow from
// a template. The planned start date is a calendar date, not an instant.
type CreateWorkflowRequest struct {
	TemplateID          string `json:"template_id"           validate:"required"`
	VendorID            string `json:"vendor_id"             validate:"required"`
	EvaluationProjectID string `json:"evaluation_project_id" validate:"required"`
	Name                string `json:"name"                  validate:"required,min=3"`
	Description         string `json:"description"`
	PlannedStartDate    string `json:"planned_start_date"    validate:"required,datetime=2006-01-02"`
	OwnerName           string `json:"owner_name"            validate:"required"`
	CreatedBy           string `json:"created_by"            validate:"required"`
}

// ActionRequest is the request body for transitions that only need the acting
// user. No operation relies on ambient session state.
type ActionRequest struct {
	ActorID string `json:"actor_id" validate:"required"`
}

// ReasonActionRequest is the request body for transitions that require a
// reason (cancel, block). The engine rejects blank reasons itself; the
// validate tag just fails fast at the edge.
type ReasonActionRequest struct {
	ActorID string `json:"actor_id" validate:"required"`
	Reason  string `json:"reason"   validate:"required"`
}
