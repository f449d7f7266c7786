// Package store provides the persistence abstraction for appcanvas.
//
// The [Store] interface covers the whole domain: apps, their canvas, canvas
// elements, the append-only canvas history and element workflows. Handlers in
// [github.com/appcanvas/appcanvas/pkg/appcanvas] depend only on this interface;
// [github.com/appcanvas/appcanvas/pkg/store/gormstore] implements it with GORM
// over PostgreSQL or SQLite.
//
// # Conventions
//
// Get methods return nil without error when the record does not exist. List
// methods return an empty slice, never nil. Mutations addressed by element id
// return [ErrElementNotFound] when the element is not on the given canvas.
//
// Ownership is not checked here. Callers load the [models.App] first and
// compare its OwnerID with the caller before touching any canvas data.
//
// # Batches
//
// [Store.BulkUpdateElements] and [Store.BulkDeleteElements] apply items one by
// one without a surrounding transaction. A failing item is recorded in the
// returned [BatchResult] and the loop moves on to the next one.
package store

import (
	"context"
	"time"

	"github.com/appcanvas/appcanvas/pkg/models"
)

// Store defines the complete data persistence interface for appcanvas.
type Store interface {
	// Migrate creates or updates the schema for every model in [models.All].
	Migrate(ctx context.Context) error
	// Close releases the underlying connection pool.
	Close() error
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error

	// CreateApp persists a new app. When app.Canvas is set it is created in
	// the same statement.
	CreateApp(ctx context.Context, app *models.App) error
	// GetApp returns the app or nil when it does not exist.
	GetApp(ctx context.Context, id uint) (*models.App, error)
	// ListApps returns the apps owned by ownerID, newest first.
	ListApps(ctx context.Context, ownerID uint) ([]*models.App, error)
	// DeleteApp removes the app together with its canvas, elements,
	// interactions, validations, history and workflows in one transaction.
	DeleteApp(ctx context.Context, id uint) error

	// GetCanvas returns the canvas of an app or nil when none exists yet.
	GetCanvas(ctx context.Context, appID uint) (*models.Canvas, error)
	// SaveCanvas inserts or updates the canvas of canvas.AppID.
	SaveCanvas(ctx context.Context, canvas *models.Canvas) error

	// ListElements returns every element of a canvas ordered by z-index and
	// creation time with interactions, validations and children loaded.
	ListElements(ctx context.Context, canvasID uint) ([]*models.CanvasElement, error)
	GetElement(ctx context.Context, canvasID uint, id string) (*models.CanvasElement, error)
	CreateElement(ctx context.Context, element *models.CanvasElement) error
	// UpdateElement applies patch and returns the element before and after.
	UpdateElement(ctx context.Context, canvasID uint, patch ElementPatch) (before, after *models.CanvasElement, err error)
	// DeleteElement removes an element with its interactions and validations
	// and detaches its children. The deleted element is returned.
	DeleteElement(ctx context.Context, canvasID uint, id string) (*models.CanvasElement, error)
	// BulkUpdateElements applies each patch independently. The error is only
	// set when the batch could not start at all.
	BulkUpdateElements(ctx context.Context, canvasID uint, patches []ElementPatch) (BatchResult, error)
	// BulkDeleteElements deletes each id independently.
	BulkDeleteElements(ctx context.Context, canvasID uint, ids []string) (BatchResult, error)
	// GroupElements sets groupID on every listed element of the canvas and
	// returns the elements that were changed.
	GroupElements(ctx context.Context, canvasID uint, ids []string, groupID string) ([]*models.CanvasElement, error)
	// UngroupElements clears groupID on the canvas and returns the elements
	// that belonged to the group.
	UngroupElements(ctx context.Context, canvasID uint, groupID string) ([]*models.CanvasElement, error)

	// AppendHistory inserts all entries with a single statement.
	AppendHistory(ctx context.Context, entries ...*models.CanvasHistory) error
	// ListHistory returns up to limit entries, newest first. A limit of zero
	// or less returns everything.
	ListHistory(ctx context.Context, canvasID uint, limit int) ([]*models.CanvasHistory, error)
	// PruneHistory deletes the entries selected by policy. When archive is
	// not nil it receives the rows first and a failing archive leaves the
	// table untouched.
	PruneHistory(ctx context.Context, policy PrunePolicy, archive ArchiveFunc) (int, error)

	// SaveWorkflow inserts or replaces the workflow of (AppID, ElementID).
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	GetWorkflow(ctx context.Context, appID uint, elementID string) (*models.Workflow, error)
	ListWorkflows(ctx context.Context, appID uint) ([]*models.Workflow, error)
}

// PrunePolicy selects history rows for deletion. A row is pruned when it was
// created before Before, or when KeepPerCanvas newer rows exist on the same
// canvas. Zero values disable the respective rule.
type PrunePolicy struct {
	Before        time.Time
	KeepPerCanvas int
}

// IsZero reports whether the policy prunes nothing.
func (p PrunePolicy) IsZero() bool {
	return p.Before.IsZero() && p.KeepPerCanvas <= 0
}

// ArchiveFunc receives history rows right before they are deleted.
type ArchiveFunc func(ctx context.Context, rows []*models.CanvasHistory) error
