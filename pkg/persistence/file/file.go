// Package file provides file-based persistence for workflows, templates and
// the activity log. It backs tests and local development; the mutex-guarded
// Transact stands in for the SQL transaction of the postgresql implementation.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/vendoreval/procflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	mu           sync.Mutex
	templateRepo *TemplateRepository
	workflowRepo *WorkflowRepository
	activityRepo *ActivityRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		templateRepo: NewTemplateRepository(cleanRoot),
		workflowRepo: NewWorkflowRepository(cleanRoot),
		activityRepo: NewActivityRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// TemplateRepository returns the template catalog implementation for file persistence.
func (fp *Persistence) TemplateRepository() persistence.TemplateRepository {
	return fp.templateRepo
}

// WorkflowRepository returns the workflow repository implementation for file persistence.
func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

// ActivityRepository returns the activity log implementation for file persistence.
func (fp *Persistence) ActivityRepository() persistence.ActivityRepository {
	return fp.activityRepo
}

// Transact serializes mutating units of work behind a single mutex. Files
// written inside the closure are not rolled back on failure; the repositories
// write each aggregate as one atomic file replace, which is enough for the
// single-writer test and development scenarios this backend serves.
func (fp *Persistence) Transact(_ context.Context, fn func(store persistence.Store) error) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fn(fp)
}
