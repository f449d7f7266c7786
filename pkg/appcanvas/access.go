package appcanvas

import (
	"context"
	"encoding/json"
	"net/http"

	"gorm.io/datatypes"

	"github.com/appcanvas/appcanvas/pkg/auth"
	"github.com/appcanvas/appcanvas/pkg/logger"
	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/realtime"
)

// ownedApp loads the app named in the route and checks that the caller owns
// it. A foreign app is indistinguishable from a missing one.
func (a *App) ownedApp(r *http.Request) (*models.App, uint, error) {
	appID, err := appIDParam(r)
	if err != nil {
		return nil, 0, err
	}
	userID, ok := auth.UserID(r.Context())
	if !ok {
		return nil, 0, errAppNotFound
	}
	app, err := a.store.GetApp(r.Context(), appID)
	if err != nil {
		return nil, 0, err
	}
	if !app.OwnedBy(userID) {
		if app != nil {
			logger.FromRequest(r).Debug().Uint("app_id", appID).Uint("user_id", userID).Msg("Ownership mismatch")
		}
		return nil, 0, errAppNotFound
	}
	return app, userID, nil
}

// ownedCanvas is ownedApp plus the app's canvas, created with defaults when
// the app has none yet.
func (a *App) ownedCanvas(r *http.Request) (*models.App, *models.Canvas, uint, error) {
	app, userID, err := a.ownedApp(r)
	if err != nil {
		return nil, nil, 0, err
	}
	canvas, err := a.canvasOf(r.Context(), app)
	if err != nil {
		return nil, nil, 0, err
	}
	return app, canvas, userID, nil
}

// canvasOf returns the stored canvas of app. A missing canvas is created with
// defaults; in read-only mode the defaults are returned unsaved, so reads keep
// working and writes fail later with ErrReadOnly.
func (a *App) canvasOf(ctx context.Context, app *models.App) (*models.Canvas, error) {
	canvas, err := a.store.GetCanvas(ctx, app.ID)
	if err != nil || canvas != nil {
		return canvas, err
	}
	canvas = models.NewDefaultCanvas(app)
	if a.IsReadOnly() {
		return canvas, nil
	}
	if err := a.store.SaveCanvas(ctx, canvas); err != nil {
		return nil, err
	}
	return canvas, nil
}

// previewRequested reports whether r asks for the unauthenticated preview of
// a canvas and preview is enabled.
func (a *App) previewRequested(r *http.Request) bool {
	if !a.config.Auth.AllowPreview || r.Method != http.MethodGet {
		return false
	}
	switch r.URL.Query().Get("preview") {
	case "1", "true":
		return true
	}
	return false
}

// entry builds a history row. elementID is empty for canvas-level actions.
func (a *App) entry(canvasID, userID uint, action, elementID string, oldState, newState datatypes.JSON) *models.CanvasHistory {
	e := &models.CanvasHistory{
		CanvasID:  canvasID,
		Action:    action,
		OldState:  oldState,
		NewState:  newState,
		UserID:    userID,
		CreatedAt: a.now().UTC(),
	}
	if elementID != "" {
		e.ElementID = &elementID
	}
	return e
}

// snapshot marshals v for a history state column.
func snapshot(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// broadcast publishes an event for app. Delivery is best effort.
func (a *App) broadcast(appID, userID uint, eventType string, data any) {
	a.events.Broadcast(appID, realtime.Event{
		Type:      eventType,
		AppID:     appID,
		UserID:    userID,
		Data:      data,
		Timestamp: a.now().UTC(),
	})
}
