package store

import (
	"context"

	"github.com/appcanvas/appcanvas/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects writes while maintenance mode is on.
//
// The read-only state is read through isReadOnly on every call, so the mode can
// be toggled at runtime without recreating the store. Reads always pass through.
// Writes return [ErrReadOnly], which handlers turn into 503 Service Unavailable.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a read-only wrapper for a store.
func NewReadOnlyStore(store Store, isReadOnly func() bool) *ReadOnlyStore {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store.
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly != nil && r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnlyStore) Migrate(ctx context.Context) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.Migrate(ctx)
}

func (r *ReadOnlyStore) CreateApp(ctx context.Context, app *models.App) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateApp(ctx, app)
}

func (r *ReadOnlyStore) DeleteApp(ctx context.Context, id uint) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteApp(ctx, id)
}

func (r *ReadOnlyStore) SaveCanvas(ctx context.Context, canvas *models.Canvas) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.SaveCanvas(ctx, canvas)
}

func (r *ReadOnlyStore) CreateElement(ctx context.Context, element *models.CanvasElement) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateElement(ctx, element)
}

func (r *ReadOnlyStore) UpdateElement(ctx context.Context, canvasID uint, patch ElementPatch) (*models.CanvasElement, *models.CanvasElement, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, nil, err
	}
	return r.Store.UpdateElement(ctx, canvasID, patch)
}

func (r *ReadOnlyStore) DeleteElement(ctx context.Context, canvasID uint, id string) (*models.CanvasElement, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.DeleteElement(ctx, canvasID, id)
}

func (r *ReadOnlyStore) BulkUpdateElements(ctx context.Context, canvasID uint, patches []ElementPatch) (BatchResult, error) {
	if err := r.checkReadOnly(); err != nil {
		return BatchResult{}, err
	}
	return r.Store.BulkUpdateElements(ctx, canvasID, patches)
}

func (r *ReadOnlyStore) BulkDeleteElements(ctx context.Context, canvasID uint, ids []string) (BatchResult, error) {
	if err := r.checkReadOnly(); err != nil {
		return BatchResult{}, err
	}
	return r.Store.BulkDeleteElements(ctx, canvasID, ids)
}

func (r *ReadOnlyStore) GroupElements(ctx context.Context, canvasID uint, ids []string, groupID string) ([]*models.CanvasElement, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.GroupElements(ctx, canvasID, ids, groupID)
}

func (r *ReadOnlyStore) UngroupElements(ctx context.Context, canvasID uint, groupID string) ([]*models.CanvasElement, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.UngroupElements(ctx, canvasID, groupID)
}

func (r *ReadOnlyStore) AppendHistory(ctx context.Context, entries ...*models.CanvasHistory) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.AppendHistory(ctx, entries...)
}

func (r *ReadOnlyStore) PruneHistory(ctx context.Context, policy PrunePolicy, archive ArchiveFunc) (int, error) {
	if err := r.checkReadOnly(); err != nil {
		return 0, err
	}
	return r.Store.PruneHistory(ctx, policy, archive)
}

func (r *ReadOnlyStore) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.SaveWorkflow(ctx, workflow)
}
