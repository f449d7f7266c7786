package appcanvas

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/realtime"
)

type groupView struct {
	GroupID  string                  `json:"groupId"`
	Elements []*models.CanvasElement `json:"elements"`
}

func memberIDs(elements []*models.CanvasElement) []string {
	ids := make([]string, len(elements))
	for i, el := range elements {
		ids[i] = el.ID
	}
	return ids
}

// handleGroupElements assigns one group id to the listed elements. A single
// history entry is written for the whole group, attached to its first
// element.
func (a *App) handleGroupElements(w http.ResponseWriter, r *http.Request) {
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
	groupID := req.GroupID
	if groupID == "" {
		groupID = "group_" + uuid.NewString()
	}

	grouped, err := a.store.GroupElements(r.Context(), canvas.ID, req.ElementIDs, groupID)
	if err != nil {
		fail(w, r, err)
		return
	}
	view := groupView{GroupID: groupID, Elements: grouped}
	state := snapshot(map[string]any{"groupId": groupID, "elementIds": memberIDs(grouped)})
	entry := a.entry(canvas.ID, userID, models.ActionElementsGrouped, grouped[0].ID, nil, state)
	if err := a.store.AppendHistory(r.Context(), entry); err != nil {
		fail(w, r, err)
		return
	}
	a.broadcast(app.ID, userID, realtime.EventElementsGrouped, view)
	respondDataMessage(w, http.StatusOK, view, "Elements grouped")
}

func (a *App) handleUngroupElements(w http.ResponseWriter, r *http.Request) {
	app, canvas, userID, err := a.ownedCanvas(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	groupID := mux.Vars(r)["groupId"]
	members, err := a.store.UngroupElements(r.Context(), canvas.ID, groupID)
	if err != nil {
		fail(w, r, err)
		return
	}
	view := groupView{GroupID: groupID, Elements: members}
	state := snapshot(map[string]any{"groupId": groupID, "elementIds": memberIDs(members)})
	entry := a.entry(canvas.ID, userID, models.ActionElementsUngrouped, members[0].ID, state, nil)
	if err := a.store.AppendHistory(r.Context(), entry); err != nil {
		fail(w, r, err)
		return
	}
	a.broadcast(app.ID, userID, realtime.EventElementsUngrouped, view)
	respondDataMessage(w, http.StatusOK, view, "Elements ungrouped")
}
