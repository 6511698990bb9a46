package models

// ProcurementType categorizes templates for display only; the engine never
// branches on it.
type ProcurementType string

const (
	ProcurementTypeSoftware ProcurementType = "software"
	ProcurementTypeHardware ProcurementType = "hardware"
	ProcurementTypeServices ProcurementType = "services"
)

// WorkflowTemplate is a read-only blueprint of stages and milestones used to
// instantiate a workflow. Templates are consumed, never mutated, by the engine.
type WorkflowTemplate struct {
	ID              string           `json:"id"               validate:"required"`
	Name            string           `json:"name"             validate:"required"`
	Description     string           `json:"description"`
	ProcurementType ProcurementType  `json:"procurement_type" validate:"required,oneof=software hardware services"`
	Stages          []*StageTemplate `json:"stages"           validate:"required,min=1,dive"`
}

// StageTemplate describes one ordered stage of a template: its name, target
// duration in days, and nested milestone names.
type StageTemplate struct {
	Name        string   `json:"name"        validate:"required"`
	Description string   `json:"description"`
	TargetDays  int      `json:"target_days" validate:"required,min=1"`
	Milestones  []string `json:"milestones"`
}
