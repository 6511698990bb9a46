package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/vendoreval/procflow/pkg/models"
	"github.com/vendoreval/procflow/pkg/persistence"
)

const templatesDir = "templates"

// templateSchema guards the catalog: a template document that does not match
// it is reported as corrupt rather than instantiated into a half-formed
// workflow tree.
const templateSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["id", "name", "procurement_type", "stages"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"procurement_type": {"enum": ["software", "hardware", "services"]},
		"stages": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "target_days"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"description": {"type": "string"},
					"target_days": {"type": "integer", "minimum": 1},
					"milestones": {"type": "array", "items": {"type": "string", "minLength": 1}}
				}
			}
		}
	}
}`

// TemplateRepository serves the read-only template catalog from
// <root>/templates/<id>.json documents, validated against the JSON Schema
// above on every load.
type TemplateRepository struct {
	root   string
	schema gojsonschema.JSONLoader
}

// NewTemplateRepository creates a new template catalog over the given root.
func NewTemplateRepository(root string) *TemplateRepository {
	return &TemplateRepository{
		root:   root,
		schema: gojsonschema.NewStringLoader(templateSchema),
	}
}

// GetAll returns every template in the catalog, sorted by name.
func (tr *TemplateRepository) GetAll(ctx context.Context) ([]*models.WorkflowTemplate, error) {
	root := os.DirFS(filepath.Join(tr.root, templatesDir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list template files: %w", err)
	}

	templates := make([]*models.WorkflowTemplate, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		template, err := tr.GetByID(ctx, name[:len(name)-len(".json")])
		if err != nil {
			return nil, err
		}

		templates = append(templates, template)
	}

	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})

	return templates, nil
}

// GetByID loads and validates one template document.
func (tr *TemplateRepository) GetByID(_ context.Context, id string) (*models.WorkflowTemplate, error) {
	data, err := os.ReadFile(filepath.Join(tr.root, templatesDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrTemplateNotFound
		}

		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	result, err := gojsonschema.Validate(tr.schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to validate template %s: %w", id, err)
	}

	if !result.Valid() {
		return nil, fmt.Errorf("template %s does not match schema: %v", id, result.Errors())
	}

	var template models.WorkflowTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("failed to decode template %s: %w", id, err)
	}

	return &template, nil
}

// Put writes a template document into the catalog. The engine never calls
// this; it exists for seeding and tests.
func (tr *TemplateRepository) Put(template *models.WorkflowTemplate) error {
	dir := filepath.Join(tr.root, templatesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create templates directory: %w", err)
	}

	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode template %s: %w", template.ID, err)
	}

	if err := os.WriteFile(filepath.Join(dir, template.ID+".json"), data, 0o644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}

	return nil
}
