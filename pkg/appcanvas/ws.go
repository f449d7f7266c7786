package appcanvas

import (
	"net/http"
	"strconv"

	"github.com/appcanvas/appcanvas/pkg/auth"
	"github.com/appcanvas/appcanvas/pkg/logger"
)

// handleWebsocket subscribes the caller to the change events of one of their
// apps: GET /ws?appId=<id>&token=<jwt>.
func (a *App) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	appID, err := strconv.ParseUint(r.URL.Query().Get("appId"), 10, 64)
	if err != nil || appID == 0 {
		fail(w, r, badRequest("Invalid app ID"))
		return
	}
	userID, _ := auth.UserID(r.Context())
	app, err := a.store.GetApp(r.Context(), uint(appID))
	if err != nil {
		fail(w, r, err)
		return
	}
	if !app.OwnedBy(userID) {
		fail(w, r, errAppNotFound)
		return
	}
	// The upgrader has already answered the handshake when Serve fails.
	if err := a.hub.Serve(w, r, app.ID, userID); err != nil {
		logger.FromRequest(r).Warn().Err(err).Uint("app_id", app.ID).Msg("Websocket upgrade failed")
	}
}
