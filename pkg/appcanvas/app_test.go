package appcanvas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appcanvas/appcanvas/pkg/client"
	"github.com/appcanvas/appcanvas/pkg/config"
	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/realtime"
	"github.com/appcanvas/appcanvas/pkg/store/gormstore"
	"github.com/appcanvas/appcanvas/pkg/workflow/dbupdate"
)

const (
	ownerID    = 1
	strangerID = 2
)

type testEnv struct {
	app      *App
	server   *httptest.Server
	events   *realtime.Recorder
	owner    *client.Client
	stranger *client.Client
	anon     *client.Client
	ownerJWT string
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret"
	return cfg
}

func newTestEnv(t *testing.T, configure ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, fn := range configure {
		fn(cfg)
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := gormstore.Open(gormstore.Config{
		Driver: gormstore.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)

	events := &realtime.Recorder{}
	app := New(cfg, s, WithBroadcaster(events))
	require.NoError(t, app.Migrate(context.Background()))
	t.Cleanup(func() { _ = app.Close() })

	server := httptest.NewServer(app.Handler())
	t.Cleanup(server.Close)

	env := &testEnv{
		app:      app,
		server:   server,
		events:   events,
		owner:    client.NewClient(server.URL),
		stranger: client.NewClient(server.URL),
		anon:     client.NewClient(server.URL),
	}
	env.ownerJWT = env.token(t, ownerID)
	env.owner.SetAuthToken(env.ownerJWT)
	env.stranger.SetAuthToken(env.token(t, strangerID))
	return env
}

func (e *testEnv) token(t *testing.T, userID uint) string {
	t.Helper()
	token, err := e.app.Issuer().Issue(userID)
	require.NoError(t, err)
	return token
}

// raw sends a request and returns the status and the undecoded body.
func (e *testEnv) raw(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func requireStatus(t *testing.T, err error, status int) *client.APIError {
	t.Helper()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected API error, got %v", err)
	require.Equal(t, status, apiErr.StatusCode, apiErr.Message)
	return apiErr
}

func ptr[T any](v T) *T { return &v }

func seedElements(t *testing.T, env *testEnv, appID uint, ids ...string) {
	t.Helper()
	for i, id := range ids {
		_, err := env.owner.CreateElement(context.Background(), appID, client.ElementInput{
			ID:     id,
			Type:   ptr("button"),
			Name:   ptr(id),
			X:      ptr(float64(10 * i)),
			ZIndex: ptr(i),
		})
		require.NoError(t, err)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	h, err := env.anon.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.False(t, h.ReadOnly)
}

func TestMissingTokenIs401(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.anon.ListApps(ctx)
	apiErr := requireStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Authentication required", apiErr.Message)

	forged := client.NewClient(env.server.URL)
	forged.SetAuthToken("not-a-jwt")
	_, err = forged.ListApps(ctx)
	apiErr = requireStatus(t, err, http.StatusUnauthorized)
	assert.Equal(t, "Invalid token", apiErr.Message)
}

func TestAppLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	app, err := env.owner.CreateApp(ctx, "Storefront", "Landing page")
	require.NoError(t, err)
	assert.Equal(t, uint(ownerID), app.OwnerID)
	require.NotNil(t, app.Canvas)
	assert.Equal(t, models.DefaultCanvasWidth, app.Canvas.Width)

	_, err = env.owner.CreateApp(ctx, "  ", "")
	requireStatus(t, err, http.StatusBadRequest)

	apps, err := env.owner.ListApps(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)

	others, err := env.stranger.ListApps(ctx)
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, env.owner.DeleteApp(ctx, app.ID))
	_, err = env.owner.GetApp(ctx, app.ID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestOwnershipMismatchIs404(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app, err := env.owner.CreateApp(ctx, "Private", "")
	require.NoError(t, err)
	seedElements(t, env, app.ID, "a")

	calls := map[string]func() error{
		"get app":    func() error { _, err := env.stranger.GetApp(ctx, app.ID); return err },
		"get canvas": func() error { _, err := env.stranger.GetCanvas(ctx, app.ID); return err },
		"update canvas": func() error {
			_, err := env.stranger.UpdateCanvas(ctx, app.ID, client.CanvasInput{Width: ptr(10)})
			return err
		},
		"history": func() error { _, err := env.stranger.ListHistory(ctx, app.ID, 0); return err },
		"bulk update": func() error {
			_, err := env.stranger.BulkUpdateElements(ctx, app.ID, []client.ElementInput{{ID: "a", X: ptr(1.0)}})
			return err
		},
		"bulk delete": func() error { _, err := env.stranger.BulkDeleteElements(ctx, app.ID, []string{"a"}); return err },
		"group":       func() error { _, err := env.stranger.GroupElements(ctx, app.ID, []string{"a"}, ""); return err },
		"export":      func() error { _, err := env.stranger.Export(ctx, app.ID, "json", false); return err },
		"workflows":   func() error { _, err := env.stranger.ListWorkflows(ctx, app.ID); return err },
		"delete app":  func() error { return env.stranger.DeleteApp(ctx, app.ID) },
		"create element": func() error {
			_, err := env.stranger.CreateElement(ctx, app.ID, client.ElementInput{Type: ptr("button")})
			return err
		},
		"update element": func() error {
			_, err := env.stranger.UpdateElement(ctx, app.ID, "a", client.ElementInput{X: ptr(1.0)})
			return err
		},
		"delete element": func() error { return env.stranger.DeleteElement(ctx, app.ID, "a") },
		"ungroup":        func() error { _, err := env.stranger.UngroupElements(ctx, app.ID, "g"); return err },
		"get workflow":   func() error { _, err := env.stranger.GetWorkflow(ctx, app.ID, "a"); return err },
		"save workflow": func() error {
			_, err := env.stranger.SaveWorkflow(ctx, app.ID, client.WorkflowInput{
				ElementID: "a", Nodes: json.RawMessage(`[]`), Edges: json.RawMessage(`[]`),
			})
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			apiErr := requireStatus(t, call(), http.StatusNotFound)
			assert.Equal(t, "App not found", apiErr.Message)
		})
	}

	_, err = env.owner.GetApp(ctx, app.ID)
	require.NoError(t, err, "the app must survive the stranger's delete")

	_, err = env.owner.GetApp(ctx, app.ID+100)
	apiErr := requireStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "App not found", apiErr.Message)
}

func TestCanvasUpdateRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app, err := env.owner.CreateApp(ctx, "Shop", "")
	require.NoError(t, err)

	state, err := json.Marshal(`{"pages":[{"id":"home"}]}`)
	require.NoError(t, err)
	canvas, err := env.owner.UpdateCanvas(ctx, app.ID, client.CanvasInput{
		Width:       ptr(1024),
		SnapToGrid:  ptr(false),
		CanvasState: state,
	})
	require.NoError(t, err)
	assert.Equal(t, 1024, canvas.Width)
	assert.False(t, canvas.SnapToGrid)
	assert.JSONEq(t, `{"pages":[{"id":"home"}]}`, string(canvas.CanvasState))

	_, err = env.owner.UpdateCanvas(ctx, app.ID, client.CanvasInput{CanvasState: json.RawMessage(`"{broken"`)})
	requireStatus(t, err, http.StatusBadRequest)

	entries, err := env.owner.ListHistory(ctx, app.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionCanvasUpdated, entries[0].Action)
	assert.Nil(t, entries[0].ElementID)
	assert.Contains(t, string(entries[0].OldState), `"width":1440`)
	assert.Contains(t, string(entries[0].NewState), `"width":1024`)

	assert.Equal(t, []string{realtime.EventCanvasUpdated}, env.events.Types())
}

func TestElementLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app, err := env.owner.CreateApp(ctx, "Shop", "")
	require.NoError(t, err)

	el, err := env.owner.CreateElement(ctx, app.ID, client.ElementInput{
		Type:       ptr("input"),
		Properties: json.RawMessage(`{"placeholder":"Email"}`),
		Validations: &[]models.ElementValidation{
			{Rule: "required", Message: "Email is required"},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, el.ID)
	assert.True(t, el.Visible, "new elements are visible unless told otherwise")
	assert.JSONEq(t, `{}`, string(el.Styles))
	require.Len(t, el.Validations, 1)

	_, err = env.owner.CreateElement(ctx, app.ID, client.ElementInput{Name: ptr("no type")})
	requireStatus(t, err, http.StatusBadRequest)

	updated, err := env.owner.UpdateElement(ctx, app.ID, el.ID, client.ElementInput{X: ptr(42.0), Locked: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, 42.0, updated.X)
	assert.True(t, updated.Locked)
	assert.Len(t, updated.Validations, 1)

	_, err = env.owner.UpdateElement(ctx, app.ID, el.ID, client.ElementInput{})
	requireStatus(t, err, http.StatusBadRequest)

	_, err = env.owner.UpdateElement(ctx, app.ID, "nope", client.ElementInput{X: ptr(1.0)})
	apiErr := requireStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "Element not found", apiErr.Message)

	require.NoError(t, env.owner.DeleteElement(ctx, app.ID, el.ID))
	view, err := env.owner.GetCanvas(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Elements)

	entries, err := env.owner.ListHistory(ctx, app.ID, 0)
	require.NoError(t, err)
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	assert.ElementsMatch(t, []string{models.ActionElementCreated, models.ActionElementUpdated, models.ActionElementDeleted}, actions)
	assert.Equal(t, []string{realtime.EventElementCreated, realtime.EventElementUpdated, realtime.EventElementDeleted}, env.events.Types())
}

func TestBulkUpdateToleratesMissingElement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app, err := env.owner.CreateApp(ctx, "Shop", "")
	require.NoError(t, err)
	seedElements(t, env, app.ID, "a", "b", "c")

	body := map[string]any{"elements": []map[string]any{
		{"id": "a", "x": 100},
		{"id": "ghost-element", "x": 100},
		{"id": "b", "x": 100},
		{"id": "c", "x": 100},
	}}
	status, data := env.raw(t, http.MethodPut, fmt.Sprintf("/api/canvas/%d/elements/bulk", app.ID), env.ownerJWT, body)
	require.Equal(t, http.StatusOK, status, string(data))
	assert.NotContains(t, string(data), "ghost-element")

	var resp struct {
		Success bool         `json:"success"`
		Data    batchSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Data.Count)
	assert.Equal(t, 1, resp.Data.Failed)

	view, err := env.owner.GetCanvas(ctx, app.ID)
	require.NoError(t, err)
	for _, el := range view.Elements {
		assert.Equal(t, 100.0, el.X, el.ID)
	}

	entries, err := env.owner.ListHistory(ctx, app.ID, 0)
	require.NoError(t, err)
	updates := 0
	for _, e := range entries {
		if e.Action == models.ActionElementUpdated {
			updates++
		}
	}
	assert.Equal(t, 3, updates)
	assert.Contains(t, env.events.Types(), realtime.EventElementsBulkUpdated)

	_, err = env.owner.BulkUpdateElements(ctx, app.ID, nil)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestBulkDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app, err := env.owner.CreateApp(ctx, "Shop", "")
	require.NoError(t, err)
	seedElements(t, env, app.ID, "a", "b")

	summary, err := env.owner.BulkDeleteElements(ctx, app.ID, []string{"a", "missing", "b"})
	require.NoError(t, err)
	assert.Equal(t, client.BatchSummary{Count: 2, Failed: 1}, *summary)

	view, err := env.owner.GetCanvas(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Elements)
	assert.Contains(t, env.events.Types(), realtime.EventElementsBulkDeleted)
}

func TestGroupAndUngroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app, err := env.owner.CreateApp(ctx, "Shop", "")
	require.NoError(t, err)
	seedElements(t, env, app.ID, "a", "b", "c")

	group, err := env.owner.GroupElements(ctx, app.ID, []string{"a", "b"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, group.GroupID)
	require.Len(t, group.Elements, 2)
	for _, el := range group.Elements {
		require.NotNil(t, el.GroupID)
		assert.Equal(t, group.GroupID, *el.GroupID)
	}

	ungrouped, err := env.owner.UngroupElements(ctx, app.ID, group.GroupID)
	require.NoError(t, err)
	require.Len(t, ungrouped.Elements, 2)
	for _, el := range ungrouped.Elements {
		assert.Nil(t, el.GroupID)
	}

	_, err = env.owner.UngroupElements(ctx, app.ID, group.GroupID)
	requireStatus(t, err, http.StatusNotFound)
	_, err = env.owner.GroupElements(ctx, app.ID, nil, "")
	requireStatus(t, err, http.StatusBadRequest)

	entries, err := env.owner.ListHistory(ctx, app.ID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionElementsUngrouped, entries[0].Action)
	assert.Equal(t, models.ActionElementsGrouped, entries[1].Action)
	require.NotNil(t, entries[1].ElementID)
	assert.Equal(t, "a", *entries[1].ElementID)

	types := env.events.Types()
	assert.Contains(t, types, realtime.EventElementsGrouped)
	assert.Contains(t, types, realtime.EventElementsUngrouped)
}

func TestExportFormats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app, err := env.owner.CreateApp(ctx, "Shop", "Demo")
	require.NoError(t, err)
	seedElements(t, env, app.ID, "a", "b")
	_, err = env.owner.UpdateElement(ctx, app.ID, "b", client.ElementInput{ParentID: ptr("a")})
	require.NoError(t, err)

	_, err = env.owner.Export(ctx, app.ID, "xml", false)
	apiErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Unsupported export format", apiErr.Message)

	doc, err := env.owner.Export(ctx, app.ID, "json", true)
	require.NoError(t, err)
	var full struct {
		Version  string                 `json:"version"`
		App      map[string]any         `json:"app"`
		Elements []models.CanvasElement `json:"elements"`
		History  []models.CanvasHistory `json:"history"`
	}
	require.NoError(t, json.Unmarshal(doc, &full))
	assert.Equal(t, "1.0", full.Version)
	assert.Equal(t, "Shop", full.App["name"])
	require.Len(t, full.Elements, 1, "b is nested under a")
	require.Len(t, full.Elements[0].Children, 1)
	assert.Equal(t, "b", full.Elements[0].Children[0].ID)
	assert.Len(t, full.History, 3)

	doc, err = env.owner.Export(ctx, app.ID, "template", false)
	require.NoError(t, err)
	var tpl struct {
		Name     string `json:"name"`
		Elements []struct {
			Ref       string  `json:"ref"`
			ParentRef *string `json:"parentRef"`
		} `json:"elements"`
	}
	require.NoError(t, json.Unmarshal(doc, &tpl))
	assert.Equal(t, "Shop", tpl.Name)
	require.Len(t, tpl.Elements, 2)
	assert.Equal(t, "element-1", tpl.Elements[0].Ref)
	require.NotNil(t, tpl.Elements[1].ParentRef)
	assert.Equal(t, "element-1", *tpl.Elements[1].ParentRef)
	assert.NotContains(t, string(doc), `"history"`)
}

func TestPreview(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		env := newTestEnv(t)
		app, err := env.owner.CreateApp(context.Background(), "Public", "")
		require.NoError(t, err)
		seedElements(t, env, app.ID, "a")

		view, err := env.anon.PreviewCanvas(context.Background(), app.ID)
		require.NoError(t, err)
		assert.True(t, view.Preview)
		assert.Len(t, view.Elements, 1)

		_, err = env.anon.GetCanvas(context.Background(), app.ID)
		requireStatus(t, err, http.StatusUnauthorized)

		status, _ := env.raw(t, http.MethodPut, fmt.Sprintf("/api/canvas/%d?preview=1", app.ID), "", map[string]any{"width": 5})
		assert.Equal(t, http.StatusUnauthorized, status, "preview never applies to writes")
	})

	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *config.Config) { cfg.Auth.AllowPreview = false })
		app, err := env.owner.CreateApp(context.Background(), "Private", "")
		require.NoError(t, err)

		_, err = env.anon.PreviewCanvas(context.Background(), app.ID)
		requireStatus(t, err, http.StatusUnauthorized)
	})
}

func TestReadOnlyIs503(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app, err := env.owner.CreateApp(ctx, "Shop", "")
	require.NoError(t, err)

	env.app.SetReadOnly(true)
	_, err = env.owner.CreateElement(ctx, app.ID, client.ElementInput{Type: ptr("button")})
	requireStatus(t, err, http.StatusServiceUnavailable)
	_, err = env.owner.SaveWorkflow(ctx, app.ID, client.WorkflowInput{
		ElementID: "a", Nodes: json.RawMessage(`[]`), Edges: json.RawMessage(`[]`),
	})
	requireStatus(t, err, http.StatusServiceUnavailable)

	_, err = env.owner.GetCanvas(ctx, app.ID)
	require.NoError(t, err, "reads keep working")

	env.app.SetReadOnly(false)
	_, err = env.owner.CreateElement(ctx, app.ID, client.ElementInput{Type: ptr("button")})
	require.NoError(t, err)
}

func TestReadOnlyReadsAppWithoutCanvas(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app := &models.App{OwnerID: ownerID, Name: "Legacy"}
	require.NoError(t, env.app.Store().CreateApp(ctx, app))

	env.app.SetReadOnly(true)
	view, err := env.owner.GetCanvas(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCanvasWidth, view.Canvas.Width)
	assert.Empty(t, view.Elements)

	entries, err := env.owner.ListHistory(ctx, app.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = env.owner.Export(ctx, app.ID, "json", true)
	require.NoError(t, err)

	_, err = env.owner.UpdateCanvas(ctx, app.ID, client.CanvasInput{Width: ptr(800)})
	requireStatus(t, err, http.StatusServiceUnavailable)

	stored, err := env.app.Store().GetCanvas(ctx, app.ID)
	require.NoError(t, err)
	assert.Nil(t, stored, "reads must not create a canvas in read-only mode")
}

func TestElementIDsArePerApp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine, err := env.owner.CreateApp(ctx, "Mine", "")
	require.NoError(t, err)
	theirs, err := env.stranger.CreateApp(ctx, "Theirs", "")
	require.NoError(t, err)

	_, err = env.owner.CreateElement(ctx, mine.ID, client.ElementInput{ID: "button-1", Type: ptr("button")})
	require.NoError(t, err)
	el, err := env.stranger.CreateElement(ctx, theirs.ID, client.ElementInput{ID: "button-1", Type: ptr("input")})
	require.NoError(t, err)
	assert.Equal(t, "button-1", el.ID)

	_, err = env.owner.CreateElement(ctx, mine.ID, client.ElementInput{ID: "button-1", Type: ptr("text")})
	apiErr := requireStatus(t, err, http.StatusConflict)
	assert.Equal(t, "Element already exists", apiErr.Message)

	_, err = env.stranger.UpdateElement(ctx, theirs.ID, "button-1", client.ElementInput{X: ptr(5.0)})
	require.NoError(t, err)
	view, err := env.owner.GetCanvas(ctx, mine.ID)
	require.NoError(t, err)
	require.Len(t, view.Elements, 1)
	assert.Equal(t, "button", view.Elements[0].Type)
	assert.Zero(t, view.Elements[0].X)
}

func TestSaveWorkflowSurvivesHistoryFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app := &models.App{OwnerID: ownerID, Name: "No canvas"}
	require.NoError(t, env.app.Store().CreateApp(ctx, app))

	res, err := env.owner.SaveWorkflow(ctx, app.ID, client.WorkflowInput{
		ElementID: "btn",
		Nodes:     json.RawMessage(`[{"id":"n1","data":{"category":"Triggers"}}]`),
		Edges:     json.RawMessage(`[]`),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Workflow)
	assert.True(t, res.HasTrigger)

	wf, err := env.owner.GetWorkflow(ctx, app.ID, "btn")
	require.NoError(t, err)
	assert.Equal(t, res.Workflow.ID, wf.ID)
	assert.Equal(t, []string{realtime.EventWorkflowSaved}, env.events.Types())

	entries, err := env.owner.ListHistory(ctx, app.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries, "history could not be written without a canvas")
}

func TestSaveWorkflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app, err := env.owner.CreateApp(ctx, "Shop", "")
	require.NoError(t, err)

	res, err := env.owner.SaveWorkflow(ctx, app.ID, client.WorkflowInput{
		ElementID: "btn",
		Nodes:     json.RawMessage(`[{"id":"n1","data":{"category":"Actions","label":"Update row"}}]`),
		Edges:     json.RawMessage(`[]`),
	})
	require.NoError(t, err)
	assert.False(t, res.HasTrigger)
	require.Len(t, res.Warnings, 1)
	require.NotNil(t, res.Workflow)
	firstID := res.Workflow.ID

	res, err = env.owner.SaveWorkflow(ctx, app.ID, client.WorkflowInput{
		ElementID: "btn",
		Nodes:     json.RawMessage(`"[{\"id\":\"n1\",\"data\":{\"category\":\"Triggers\"}}]"`),
		Edges:     json.RawMessage(`[{"source":"n1","target":"n2"}]`),
	})
	require.NoError(t, err)
	assert.True(t, res.HasTrigger)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, firstID, res.Workflow.ID, "saving again updates the same row")

	wf, err := env.owner.GetWorkflow(ctx, app.ID, "btn")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"source":"n1","target":"n2"}]`, string(wf.Edges))

	_, err = env.owner.GetWorkflow(ctx, app.ID, "other")
	requireStatus(t, err, http.StatusNotFound)

	invalid := []client.WorkflowInput{
		{Nodes: json.RawMessage(`[]`), Edges: json.RawMessage(`[]`)},
		{ElementID: "btn", Nodes: json.RawMessage(`{"id":"n1"}`), Edges: json.RawMessage(`[]`)},
		{ElementID: "btn", Nodes: json.RawMessage(`[]`)},
	}
	for _, in := range invalid {
		_, err := env.owner.SaveWorkflow(ctx, app.ID, in)
		requireStatus(t, err, http.StatusBadRequest)
	}

	entries, err := env.owner.ListHistory(ctx, app.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionWorkflowSaved, entries[0].Action)
	assert.Equal(t, []string{realtime.EventWorkflowSaved, realtime.EventWorkflowSaved}, env.events.Types())
}

func TestDBUpdateConverters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	status, data := env.raw(t, http.MethodPost, "/api/workflows/db-update/backend", env.ownerJWT, map[string]any{
		"mode":  "simple",
		"table": "users",
		"updateFields": []map[string]string{
			{"id": "1", "field": "a", "value": "1"},
			{"id": "2", "field": "a", "value": "2"},
		},
		"whereConditions": []map[string]string{{"field": "id", "operator": "=", "value": "7", "logic": "and"}},
	})
	require.Equal(t, http.StatusOK, status, string(data))
	var backend struct {
		Data struct {
			UpdateData      map[string]any `json:"updateData"`
			WhereConditions []struct {
				Operator string `json:"operator"`
				Logic    string `json:"logic"`
			} `json:"whereConditions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &backend))
	assert.Equal(t, "2", backend.Data.UpdateData["a"])
	require.Len(t, backend.Data.WhereConditions, 1)
	assert.Equal(t, "equals", backend.Data.WhereConditions[0].Operator)
	assert.Equal(t, "AND", backend.Data.WhereConditions[0].Logic)

	simple, err := env.owner.ToSimple(ctx, dbupdateInput(`"{not json"`))
	require.NoError(t, err)
	assert.Equal(t, "advanced", simple.Mode)

	_, err = env.anon.ToSimple(ctx, dbupdateInput(`{}`))
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestWebsocketRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	app, err := env.owner.CreateApp(context.Background(), "Shop", "")
	require.NoError(t, err)

	status, _ := env.raw(t, http.MethodGet, fmt.Sprintf("/ws?appId=%d", app.ID), env.token(t, strangerID), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.raw(t, http.MethodGet, fmt.Sprintf("/ws?appId=%d", app.ID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	env := newTestEnv(t)
	status, data := env.raw(t, http.MethodGet, "/api/nothing-here", env.ownerJWT, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"success":false,"message":"Not found"}`, string(data))
}

func dbupdateInput(updateData string) dbupdate.BackendInput {
	return dbupdate.BackendInput{Table: "users", UpdateData: json.RawMessage(updateData)}
}
