package appcanvas

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/appcanvas/appcanvas/pkg/config"
	"github.com/appcanvas/appcanvas/pkg/export"
	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/tracing"
)

// handleExport renders the app in the requested format. The format is
// checked before anything is loaded.
func (a *App) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if errors.Is(err, export.ErrUnsupportedFormat) {
		fail(w, r, badRequest("Unsupported export format"))
		return
	}
	includeHistory := false
	if v := q.Get("includeHistory"); v != "" {
		if includeHistory, err = strconv.ParseBool(v); err != nil {
			fail(w, r, badRequest("includeHistory must be true or false"))
			return
		}
	}

	app, canvas, _, err := a.ownedCanvas(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	ctx, span := tracing.StartSpan(r.Context(), "appcanvas.export")
	snap := export.Snapshot{App: app, Canvas: canvas, ExportedAt: a.now()}
	err = func() error {
		var err error
		if snap.Elements, err = a.store.ListElements(ctx, canvas.ID); err != nil {
			return err
		}
		if snap.Workflows, err = a.store.ListWorkflows(ctx, app.ID); err != nil {
			return err
		}
		if includeHistory {
			limit := a.config.History.ExportLimit
			if limit <= 0 || limit > config.MaxExportHistory {
				limit = config.MaxExportHistory
			}
			if snap.History, err = a.store.ListHistory(ctx, canvas.ID, limit); err != nil {
				return err
			}
		}
		return nil
	}()
	tracing.EndSpan(span, err)
	if err != nil {
		fail(w, r, err)
		return
	}
	if snap.Elements == nil {
		snap.Elements = []*models.CanvasElement{}
	}

	doc, err := export.Build(format, snap)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, doc)
}
