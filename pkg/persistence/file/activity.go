package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vendoreval/procflow/pkg/models"
)

const activityDir = "activity"

// ActivityRepository stores the append-only activity trail, one JSON file per
// workflow holding its entries in append order.
type ActivityRepository struct {
	root string
}

// NewActivityRepository creates a new activity log repository.
func NewActivityRepository(root string) *ActivityRepository {
	return &ActivityRepository{root: root}
}

// Append adds one entry to the workflow's trail. Entries are never updated or
// deleted.
func (ar *ActivityRepository) Append(ctx context.Context, entry *models.ActivityLogEntry) error {
	entries, err := ar.load(entry.WorkflowID)
	if err != nil {
		return err
	}

	entries = append(entries, entry)

	dir := filepath.Join(ar.root, activityDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create activity directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode activity log: %w", err)
	}

	if err := os.WriteFile(ar.path(entry.WorkflowID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}

	return nil
}

// ListByWorkflow returns the workflow's entries newest-first, id as tiebreak.
func (ar *ActivityRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.ActivityLogEntry, error) {
	entries, err := ar.load(workflowID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PerformedAt.Equal(entries[j].PerformedAt) {
			return entries[i].ID > entries[j].ID
		}

		return entries[i].PerformedAt.After(entries[j].PerformedAt)
	})

	return entries, nil
}

func (ar *ActivityRepository) load(workflowID string) ([]*models.ActivityLogEntry, error) {
	data, err := os.ReadFile(ar.path(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return make([]*models.ActivityLogEntry, 0), nil
		}

		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	var entries []*models.ActivityLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode activity log: %w", err)
	}

	return entries, nil
}

func (ar *ActivityRepository) path(workflowID string) string {
	return filepath.Join(ar.root, activityDir, workflowID+".json")
}
