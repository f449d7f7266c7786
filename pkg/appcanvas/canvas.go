package appcanvas

import (
	"net/http"
	"strconv"

	"github.com/appcanvas/appcanvas/pkg/logger"
	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/realtime"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// canvasView is the body of GET /api/canvas/{appId}.
type canvasView struct {
	Canvas   *models.Canvas          `json:"canvas"`
	Elements []*models.CanvasElement `json:"elements"`
	Preview  bool                    `json:"preview,omitempty"`
}

// handleGetCanvas returns the canvas and its elements. Preview requests are
// served without authentication or ownership check and never create a canvas.
func (a *App) handleGetCanvas(w http.ResponseWriter, r *http.Request) {
	if a.previewRequested(r) {
		a.handlePreviewCanvas(w, r)
		return
	}
	_, canvas, _, err := a.ownedCanvas(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	a.respondCanvas(w, r, canvas, false)
}

func (a *App) handlePreviewCanvas(w http.ResponseWriter, r *http.Request) {
	appID, err := appIDParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	logger.FromRequest(r).Info().Uint("app_id", appID).Msg("Unauthenticated canvas preview")
	canvas, err := a.store.GetCanvas(r.Context(), appID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if canvas == nil {
		fail(w, r, notFound("Canvas not found"))
		return
	}
	a.respondCanvas(w, r, canvas, true)
}

func (a *App) respondCanvas(w http.ResponseWriter, r *http.Request, canvas *models.Canvas, preview bool) {
	elements, err := a.store.ListElements(r.Context(), canvas.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if elements == nil {
		elements = []*models.CanvasElement{}
	}
	respondData(w, http.StatusOK, canvasView{Canvas: canvas, Elements: elements, Preview: preview})
}

func (a *App) handleUpdateCanvas(w http.ResponseWriter, r *http.Request) {
	app, canvas, userID, err := a.ownedCanvas(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req canvasRequest
	if err := decodeBody(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	oldState := snapshot(canvas)
	if err := req.apply(canvas); err != nil {
		fail(w, r, err)
		return
	}
	if err := a.store.SaveCanvas(r.Context(), canvas); err != nil {
		fail(w, r, err)
		return
	}
	entry := a.entry(canvas.ID, userID, models.ActionCanvasUpdated, "", oldState, snapshot(canvas))
	if err := a.store.AppendHistory(r.Context(), entry); err != nil {
		fail(w, r, err)
		return
	}
	a.broadcast(app.ID, userID, realtime.EventCanvasUpdated, canvas)
	respondDataMessage(w, http.StatusOK, canvas, "Canvas updated")
}

// handleListHistory returns the newest history entries of the canvas.
func (a *App) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			fail(w, r, badRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	_, canvas, _, err := a.ownedCanvas(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	entries, err := a.store.ListHistory(r.Context(), canvas.ID, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []*models.CanvasHistory{}
	}
	respondData(w, http.StatusOK, entries)
}
