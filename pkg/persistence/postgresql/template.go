package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vendoreval/procflow/pkg/models"
	"github.com/vendoreval/procflow/pkg/persistence"
)

// TemplateRepository serves the read-only template catalog from the
// workflow_templates table. Stage blueprints are stored as one JSONB document
// per template.
type TemplateRepository struct {
	db querier
}

// NewTemplateRepository creates a new template catalog.
func NewTemplateRepository(db querier) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// GetAll returns every template in the catalog, sorted by name.
func (tr *TemplateRepository) GetAll(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	query := `
		SELECT id, name, description, procurement_type, stages
		FROM workflow_templates
		ORDER BY name
	`

	rows, err := tr.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	templates := make([]*models.WorkflowTemplate, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}

		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

// GetByID loads one template.
func (tr *TemplateRepository) GetByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	query := `
		SELECT id, name, description, procurement_type, stages
		FROM workflow_templates
		WHERE id = $1
	`

	template, err := scanTemplate(tr.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrTemplateNotFound
		}

		return nil, err
	}

	return template, nil
}

// Put upserts a template document into the catalog. The engine never calls
// this; it exists for seeding and tests.
func (tr *TemplateRepository) Put(ctx context.Context, template *models.WorkflowTemplate) error {
	stagesJSON, err := json.Marshal(template.Stages)
	if err != nil {
		return fmt.Errorf("failed to encode template stages: %w", err)
	}

	query := `
		INSERT INTO workflow_templates (id, name, description, procurement_type, stages)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			procurement_type = EXCLUDED.procurement_type,
			stages = EXCLUDED.stages
	`

	_, err = tr.db.ExecContext(ctx, query,
		template.ID,
		template.Name,
		template.Description,
		template.ProcurementType,
		stagesJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	return nil
}

func scanTemplate(scanner interface {
	Scan(dest ...any) error
}) (*models.WorkflowTemplate, error) {
	var (
		template   models.WorkflowTemplate
		stagesJSON []byte
	)

	err := scanner.Scan(
		&template.ID,
		&template.Name,
		&template.Description,
		&template.ProcurementType,
		&stagesJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stagesJSON, &template.Stages); err != nil {
		return nil, fmt.Errorf("failed to decode stages for template %s: %w", template.ID, err)
	}

	return &template, nil
}
