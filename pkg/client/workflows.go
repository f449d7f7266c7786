package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/workflow/dbupdate"
)

// WorkflowInput is the body of a workflow save. Nodes and Edges must be JSON
// arrays.
type WorkflowInput struct {
	ElementID string          `json:"elementId"`
	Nodes     json.RawMessage `json:"nodes"`
	Edges     json.RawMessage `json:"edges"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// WorkflowResult is the result of a workflow save. Warnings is advisory; the
// workflow was stored.
type WorkflowResult struct {
	Workflow   *models.Workflow `json:"workflow"`
	HasTrigger bool             `json:"hasTrigger"`
	Warnings   []string         `json:"warnings"`
}

func workflowPath(appID uint) string {
	return fmt.Sprintf("/api/workflows/%d", appID)
}

func (c *Client) ListWorkflows(ctx context.Context, appID uint) ([]*models.Workflow, error) {
	var result []*models.Workflow
	if err := c.call(ctx, http.MethodGet, workflowPath(appID), nil, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetWorkflow returns the workflow attached to one element.
func (c *Client) GetWorkflow(ctx context.Context, appID uint, elementID string) (*models.Workflow, error) {
	var result models.Workflow
	q := url.Values{"elementId": {elementID}}
	if err := c.call(ctx, http.MethodGet, workflowPath(appID), q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveWorkflow creates or replaces the workflow of in.ElementID.
func (c *Client) SaveWorkflow(ctx context.Context, appID uint, in WorkflowInput) (*WorkflowResult, error) {
	var result WorkflowResult
	if err := c.call(ctx, http.MethodPatch, workflowPath(appID), nil, in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ToBackend converts a simple database-update config on the server.
func (c *Client) ToBackend(ctx context.Context, cfg dbupdate.SimpleConfig) (*dbupdate.BackendConfig, error) {
	var result dbupdate.BackendConfig
	if err := c.call(ctx, http.MethodPost, "/api/workflows/db-update/backend", nil, cfg, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ToSimple converts a stored backend config on the server.
func (c *Client) ToSimple(ctx context.Context, in dbupdate.BackendInput) (*dbupdate.SimpleConfig, error) {
	var result dbupdate.SimpleConfig
	if err := c.call(ctx, http.MethodPost, "/api/workflows/db-update/simple", nil, in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
