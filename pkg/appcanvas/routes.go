package appcanvas

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/appcanvas/appcanvas/pkg/auth"
	"github.com/appcanvas/appcanvas/pkg/logger"
	"github.com/appcanvas/appcanvas/pkg/tracing"
)

const routeCanvas = "canvas"

// Handler returns the HTTP handler serving the API and the websocket
// endpoint.
//
// # API Endpoints
//
//	GET    /api/health
//	GET    /api/apps
//	POST   /api/apps
//	GET    /api/apps/{appId}
//	DELETE /api/apps/{appId}
//	GET    /api/canvas/{appId}                          ?preview=1 skips authentication
//	PUT    /api/canvas/{appId}
//	GET    /api/canvas/{appId}/history                  ?limit=
//	GET    /api/canvas/{appId}/export                   ?format=json|template&includeHistory=
//	POST   /api/canvas/{appId}/elements
//	PUT    /api/canvas/{appId}/elements/bulk
//	DELETE /api/canvas/{appId}/elements/bulk
//	PUT    /api/canvas/{appId}/elements/{elementId}
//	DELETE /api/canvas/{appId}/elements/{elementId}
//	POST   /api/canvas/{appId}/groups
//	DELETE /api/canvas/{appId}/groups/{groupId}
//	POST   /api/workflows/db-update/backend
//	POST   /api/workflows/db-update/simple
//	GET    /api/workflows/{appId}                       ?elementId=
//	PATCH  /api/workflows/{appId}
//	GET    /ws                                          ?appId=&token=
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	if a.config.Tracing.Enabled {
		router.Use(tracing.Middleware)
	}

	router.HandleFunc("/api/health", a.handleHealth).Methods(http.MethodGet)

	authenticated := auth.Middleware(a.issuer, respondError, a.skipAuth)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(authenticated)

	api.HandleFunc("/apps", a.handleListApps).Methods(http.MethodGet)
	api.HandleFunc("/apps", a.handleCreateApp).Methods(http.MethodPost)
	api.HandleFunc("/apps/{appId:[0-9]+}", a.handleGetApp).Methods(http.MethodGet)
	api.HandleFunc("/apps/{appId:[0-9]+}", a.handleDeleteApp).Methods(http.MethodDelete)

	api.HandleFunc("/canvas/{appId:[0-9]+}", a.handleGetCanvas).Methods(http.MethodGet).Name(routeCanvas)
	api.HandleFunc("/canvas/{appId:[0-9]+}", a.handleUpdateCanvas).Methods(http.MethodPut)
	api.HandleFunc("/canvas/{appId:[0-9]+}/history", a.handleListHistory).Methods(http.MethodGet)
	api.HandleFunc("/canvas/{appId:[0-9]+}/export", a.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/canvas/{appId:[0-9]+}/elements", a.handleCreateElement).Methods(http.MethodPost)
	api.HandleFunc("/canvas/{appId:[0-9]+}/elements/bulk", a.handleBulkUpdateElements).Methods(http.MethodPut)
	api.HandleFunc("/canvas/{appId:[0-9]+}/elements/bulk", a.handleBulkDeleteElements).Methods(http.MethodDelete)
	api.HandleFunc("/canvas/{appId:[0-9]+}/elements/{elementId}", a.handleUpdateElement).Methods(http.MethodPut)
	api.HandleFunc("/canvas/{appId:[0-9]+}/elements/{elementId}", a.handleDeleteElement).Methods(http.MethodDelete)
	api.HandleFunc("/canvas/{appId:[0-9]+}/groups", a.handleGroupElements).Methods(http.MethodPost)
	api.HandleFunc("/canvas/{appId:[0-9]+}/groups/{groupId}", a.handleUngroupElements).Methods(http.MethodDelete)

	api.HandleFunc("/workflows/db-update/backend", a.handleToBackend).Methods(http.MethodPost)
	api.HandleFunc("/workflows/db-update/simple", a.handleToSimple).Methods(http.MethodPost)
	api.HandleFunc("/workflows/{appId:[0-9]+}", a.handleGetWorkflows).Methods(http.MethodGet)
	api.HandleFunc("/workflows/{appId:[0-9]+}", a.handleSaveWorkflow).Methods(http.MethodPatch)

	ws := router.Path("/ws").Subrouter()
	ws.Use(authenticated)
	ws.Methods(http.MethodGet).HandlerFunc(a.handleWebsocket)

	return logger.Middleware(a.logger)(router)
}

// skipAuth lets preview reads of a canvas through without a token.
func (a *App) skipAuth(r *http.Request) bool {
	route := mux.CurrentRoute(r)
	return route != nil && route.GetName() == routeCanvas && a.previewRequested(r)
}
