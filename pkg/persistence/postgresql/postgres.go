// Package postgresql provides the PostgreSQL persistence implementation for
// workflows, templates and the activity log.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/vendoreval/procflow/pkg/persistence"
	"github.com/vendoreval/procflow/pkg/persistence/sqlbase"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same repository code serves both direct reads and Transact units of work.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	templateRepo *TemplateRepository
	workflowRepo *WorkflowRepository
	activityRepo *ActivityRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs any
// pending schema migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		templateRepo: NewTemplateRepository(database),
		workflowRepo: NewWorkflowRepository(database, logger),
		activityRepo: NewActivityRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// TemplateRepository returns the template catalog backed by PostgreSQL.
func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templateRepo
}

// WorkflowRepository returns the workflow repository backed by PostgreSQL.
func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

// ActivityRepository returns the activity log backed by PostgreSQL.
func (p *Persistence) ActivityRepository() persistence.ActivityRepository {
	return p.activityRepo
}

// Transact runs fn inside one SQL transaction. The store handed to fn routes
// every repository call through the transaction, so the read-check-write of a
// state transition and its activity entry commit or roll back as a unit.
func (p *Persistence) Transact(ctx context.Context, fn func(store persistence.Store) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	store := &txStore{
		workflowRepo: NewWorkflowRepository(tx, p.logger),
		activityRepo: NewActivityRepository(tx, p.logger),
	}

	if err := fn(store); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			p.logger.ErrorContext(ctx, "Failed to roll back transaction", "error", rollbackErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// txStore is the transaction-scoped repository set handed to Transact closures.
type txStore struct {
	workflowRepo *WorkflowRepository
	activityRepo *ActivityRepository
}

func (s *txStore) WorkflowRepository() persistence.WorkflowRepository {
	return s.workflowRepo
}

func (s *txStore) ActivityRepository() persistence.ActivityRepository {
	return s.activityRepo
}
