package appcanvas

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/appcanvas/appcanvas/pkg/logger"
	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/realtime"
	"github.com/appcanvas/appcanvas/pkg/store"
)

// batchSummary is the response of the bulk endpoints. Failed items are only
// counted; their ids are logged server side.
type batchSummary struct {
	Count  int `json:"count"`
	Failed int `json:"failed"`
}

func (a *App) handleCreateElement(w http.ResponseWriter, r *http.Request) {
	app, canvas, userID, err := a.ownedCanvas(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req elementRequest
	if err := decodeBody(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	el, err := req.element(canvas.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := a.store.CreateElement(r.Context(), el); err != nil {
		fail(w, r, err)
		return
	}
	entry := a.entry(canvas.ID, userID, models.ActionElementCreated, el.ID, nil, el.Snapshot())
	if err := a.store.AppendHistory(r.Context(), entry); err != nil {
		fail(w, r, err)
		return
	}
	a.broadcast(app.ID, userID, realtime.EventElementCreated, el)
	respondData(w, http.StatusCreated, el)
}

func (a *App) handleUpdateElement(w http.ResponseWriter, r *http.Request) {
	app, canvas, userID, err := a.ownedCanvas(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req elementRequest
	if err := decodeBody(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	req.ID = mux.Vars(r)["elementId"]
	patch, err := req.patch()
	if err != nil {
		fail(w, r, err)
		return
	}
	if patch.IsEmpty() {
		fail(w, r, badRequest("No fields to update"))
		return
	}
	before, after, err := a.store.UpdateElement(r.Context(), canvas.ID, patch)
	if err != nil {
		fail(w, r, err)
		return
	}
	entry := a.entry(canvas.ID, userID, models.ActionElementUpdated, after.ID, before.Snapshot(), after.Snapshot())
	if err := a.store.AppendHistory(r.Context(), entry); err != nil {
		fail(w, r, err)
		return
	}
	a.broadcast(app.ID, userID, realtime.EventElementUpdated, after)
	respondData(w, http.StatusOK, after)
}

func (a *App) handleDeleteElement(w http.ResponseWriter, r *http.Request) {
	app, canvas, userID, err := a.ownedCanvas(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id := mux.Vars(r)["elementId"]
	before, err := a.store.DeleteElement(r.Context(), canvas.ID, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	entry := a.entry(canvas.ID, userID, models.ActionElementDeleted, id, before.Snapshot(), nil)
	if err := a.store.AppendHistory(r.Context(), entry); err != nil {
		fail(w, r, err)
		return
	}
	a.broadcast(app.ID, userID, realtime.EventElementDeleted, map[string]string{"elementId": id})
	respondJSON(w, http.StatusOK, Envelope{Success: true, Message: "Element deleted"})
}

// handleBulkUpdateElements applies every patch on its own. A failing item is
// logged and skipped; the history of all updated items is written with one
// insert after the loop.
func (a *App) handleBulkUpdateElements(w http.ResponseWriter, r *http.Request) {
	app, canvas, userID, err := a.ownedCanvas(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req bulkUpdateRequest
	if err := decodeBody(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if len(req.Elements) == 0 {
		fail(w, r, badRequest("elements must be a non-empty array"))
		return
	}
	patches := make([]store.ElementPatch, 0, len(req.Elements))
	for _, item := range req.Elements {
		patch, err := item.patch()
		if err != nil {
			fail(w, r, err)
			return
		}
		patches = append(patches, patch)
	}

	res, err := a.store.BulkUpdateElements(r.Context(), canvas.ID, patches)
	if err != nil {
		fail(w, r, err)
		return
	}
	a.logFailures(r, "update", res)

	updated := make([]*models.CanvasElement, 0, res.Succeeded())
	entries := make([]*models.CanvasHistory, 0, res.Succeeded())
	for _, o := range res.Successes() {
		updated = append(updated, o.After)
		entries = append(entries, a.entry(canvas.ID, userID, models.ActionElementUpdated, o.ElementID, o.Before.Snapshot(), o.After.Snapshot()))
	}
	if err := a.store.AppendHistory(r.Context(), entries...); err != nil {
		fail(w, r, err)
		return
	}
	a.broadcast(app.ID, userID, realtime.EventElementsBulkUpdated, map[string]any{"elements": updated})
	summary := batchSummary{Count: res.Succeeded(), Failed: res.Failed()}
	respondDataMessage(w, http.StatusOK, summary, fmt.Sprintf("Updated %d elements", summary.Count))
}

func (a *App) handleBulkDeleteElements(w http.ResponseWriter, r *http.Request) {
	app, canvas, userID, err := a.ownedCanvas(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req elementIDsRequest
	if err := decodeBody(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if len(req.ElementIDs) == 0 {
		fail(w, r, badRequest("elementIds must be a non-empty array"))
		return
	}

	res, err := a.store.BulkDeleteElements(r.Context(), canvas.ID, req.ElementIDs)
	if err != nil {
		fail(w, r, err)
		return
	}
	a.logFailures(r, "delete", res)

	deleted := make([]string, 0, res.Succeeded())
	entries := make([]*models.CanvasHistory, 0, res.Succeeded())
	for _, o := range res.Successes() {
		deleted = append(deleted, o.ElementID)
		entries = append(entries, a.entry(canvas.ID, userID, models.ActionElementDeleted, o.ElementID, o.Before.Snapshot(), nil))
	}
	if err := a.store.AppendHistory(r.Context(), entries...); err != nil {
		fail(w, r, err)
		return
	}
	a.broadcast(app.ID, userID, realtime.EventElementsBulkDeleted, map[string]any{"elementIds": deleted})
	summary := batchSummary{Count: res.Succeeded(), Failed: res.Failed()}
	respondDataMessage(w, http.StatusOK, summary, fmt.Sprintf("Deleted %d elements", summary.Count))
}

func (a *App) logFailures(r *http.Request, op string, res store.BatchResult) {
	log := logger.FromRequest(r)
	for _, o := range res.Failures() {
		log.Warn().Err(o.Err).Str("element_id", o.ElementID).Str("op", op).Msg("Bulk item failed")
	}
}
