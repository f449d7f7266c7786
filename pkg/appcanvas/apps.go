package appcanvas

import (
	"net/http"
	"strings"

	"github.com/appcanvas/appcanvas/pkg/auth"
	"github.com/appcanvas/appcanvas/pkg/models"
)

// handleHealth reports whether the database answers. It is served without
// authentication for load balancers.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if err := a.store.Ping(r.Context()); err != nil {
		a.logger.Warn().Err(err).Msg("Health check failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	respondJSON(w, code, Envelope{
		Success: code == http.StatusOK,
		Data: map[string]any{
			"status":   status,
			"readOnly": a.IsReadOnly(),
			"time":     a.now().Unix(),
		},
	})
}

func (a *App) handleListApps(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	apps, err := a.store.ListApps(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if apps == nil {
		apps = []*models.App{}
	}
	respondData(w, http.StatusOK, apps)
}

// handleCreateApp creates an app owned by the caller together with its
// default canvas.
func (a *App) handleCreateApp(w http.ResponseWriter, r *http.Request) {
	var req appRequest
	if err := decodeBody(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		fail(w, r, badRequest("App name is required"))
		return
	}
	userID, _ := auth.UserID(r.Context())
	app := &models.App{OwnerID: userID, Name: req.Name, Description: req.Description}
	if err := a.store.CreateApp(r.Context(), app); err != nil {
		fail(w, r, err)
		return
	}
	canvas := models.NewDefaultCanvas(app)
	if err := a.store.SaveCanvas(r.Context(), canvas); err != nil {
		fail(w, r, err)
		return
	}
	app.Canvas = canvas
	respondData(w, http.StatusCreated, app)
}

func (a *App) handleGetApp(w http.ResponseWriter, r *http.Request) {
	app, _, err := a.ownedApp(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, app)
}

// handleDeleteApp removes the app with its canvas, elements, history and
// workflows.
func (a *App) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	app, _, err := a.ownedApp(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := a.store.DeleteApp(r.Context(), app.ID); err != nil {
		fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Message: "App deleted"})
}
