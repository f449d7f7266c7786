package appcanvas

import (
	"errors"
	"net/http"
	"strings"

	"github.com/appcanvas/appcanvas/pkg/logger"
	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/realtime"
	"github.com/appcanvas/appcanvas/pkg/store"
	"github.com/appcanvas/appcanvas/pkg/workflow"
	"github.com/appcanvas/appcanvas/pkg/workflow/dbupdate"
)

// workflowView is the response of a workflow save.
type workflowView struct {
	Workflow   *models.Workflow `json:"workflow"`
	HasTrigger bool             `json:"hasTrigger"`
	Warnings   []string         `json:"warnings"`
}

// handleGetWorkflows lists the workflows of an app, or returns the one of a
// single element when elementId is given.
func (a *App) handleGetWorkflows(w http.ResponseWriter, r *http.Request) {
	app, _, err := a.ownedApp(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if elementID := r.URL.Query().Get("elementId"); elementID != "" {
		wf, err := a.store.GetWorkflow(r.Context(), app.ID, elementID)
		if err != nil {
			fail(w, r, err)
			return
		}
		if wf == nil {
			fail(w, r, notFound("Workflow not found"))
			return
		}
		respondData(w, http.StatusOK, wf)
		return
	}
	workflows, err := a.store.ListWorkflows(r.Context(), app.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	respondData(w, http.StatusOK, workflows)
}

// handleSaveWorkflow upserts the workflow of one element. A graph without a
// trigger node is saved with a warning. Failing to record history does not
// fail the save.
func (a *App) handleSaveWorkflow(w http.ResponseWriter, r *http.Request) {
	app, userID, err := a.ownedApp(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req workflowRequest
	if err := decodeBody(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	wf, err := req.workflow(app.ID)
	if err != nil {
		fail(w, r, err)
		return
	}
	nodes, err := workflow.DecodeNodes(wf.Nodes)
	if err != nil {
		fail(w, r, badRequest("nodes must be an array of objects"))
		return
	}

	log := logger.FromRequest(r)
	report := workflow.CheckTriggers(nodes)
	view := workflowView{HasTrigger: report.HasTrigger, Warnings: []string{}}
	if report.Warning != "" {
		log.Warn().Uint("app_id", app.ID).Str("element_id", wf.ElementID).Msg(report.Warning)
		view.Warnings = append(view.Warnings, report.Warning)
	}

	if err := a.store.SaveWorkflow(r.Context(), wf); err != nil {
		if errors.Is(err, store.ErrReadOnly) {
			fail(w, r, err)
			return
		}
		log.Error().Err(err).Uint("app_id", app.ID).Str("element_id", wf.ElementID).Msg("Failed to save workflow")
		respondError(w, http.StatusInternalServerError, "Failed to save workflow: "+err.Error())
		return
	}
	view.Workflow = wf

	if err := a.recordWorkflowSaved(r, app, userID, wf); err != nil {
		log.Warn().Err(err).Uint("app_id", app.ID).Str("element_id", wf.ElementID).Msg("Failed to record workflow history")
	}
	a.broadcast(app.ID, userID, realtime.EventWorkflowSaved, wf)
	respondDataMessage(w, http.StatusOK, view, "Workflow saved")
}

func (a *App) recordWorkflowSaved(r *http.Request, app *models.App, userID uint, wf *models.Workflow) error {
	canvas, err := a.store.GetCanvas(r.Context(), app.ID)
	if err != nil {
		return err
	}
	if canvas == nil {
		return errors.New("app has no canvas")
	}
	state := snapshot(map[string]any{"nodes": wf.Nodes, "edges": wf.Edges})
	return a.store.AppendHistory(r.Context(), a.entry(canvas.ID, userID, models.ActionWorkflowSaved, wf.ElementID, nil, state))
}

func (req workflowRequest) workflow(appID uint) (*models.Workflow, error) {
	elementID := strings.TrimSpace(req.ElementID)
	if elementID == "" {
		return nil, badRequest("elementId is required")
	}
	nodes, err := arrayBlob("nodes", req.Nodes)
	if err != nil {
		return nil, err
	}
	edges, err := arrayBlob("edges", req.Edges)
	if err != nil {
		return nil, err
	}
	metadata, err := blob("metadata", req.Metadata)
	if err != nil {
		return nil, err
	}
	return &models.Workflow{
		AppID:     appID,
		ElementID: elementID,
		Nodes:     nodes,
		Edges:     edges,
		Metadata:  orEmptyObject(metadata),
	}, nil
}

// handleToBackend converts the builder's simple database-update form to the
// stored backend config.
func (a *App) handleToBackend(w http.ResponseWriter, r *http.Request) {
	var cfg dbupdate.SimpleConfig
	if err := decodeBody(w, r, &cfg); err != nil {
		fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, dbupdate.ToBackend(cfg))
}

// handleToSimple converts a stored backend config back to the simple form.
// Inputs the simple form cannot express come back in advanced mode.
func (a *App) handleToSimple(w http.ResponseWriter, r *http.Request) {
	var in dbupdate.BackendInput
	if err := decodeBody(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	respondData(w, http.StatusOK, dbupdate.ToSimple(in))
}
