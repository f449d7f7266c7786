package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/appcanvas/appcanvas/pkg/models"
)

// CanvasView is a canvas with its elements.
type CanvasView struct {
	Canvas   *models.Canvas          `json:"canvas"`
	Elements []*models.CanvasElement `json:"elements"`
	Preview  bool                    `json:"preview"`
}

// CanvasInput updates canvas settings. Nil fields are left unchanged.
type CanvasInput struct {
	Name        *string         `json:"name,omitempty"`
	Width       *int            `json:"width,omitempty"`
	Height      *int            `json:"height,omitempty"`
	Background  *string         `json:"background,omitempty"`
	Zoom        *float64        `json:"zoom,omitempty"`
	GridEnabled *bool           `json:"gridEnabled,omitempty"`
	SnapToGrid  *bool           `json:"snapToGrid,omitempty"`
	GridSize    *int            `json:"gridSize,omitempty"`
	CanvasState json.RawMessage `json:"canvasState,omitempty"`
}

// ElementInput creates or patches an element. Nil fields are left unchanged
// by updates.
type ElementInput struct {
	ID           string                       `json:"id,omitempty"`
	Type         *string                      `json:"type,omitempty"`
	Name         *string                      `json:"name,omitempty"`
	X            *float64                     `json:"x,omitempty"`
	Y            *float64                     `json:"y,omitempty"`
	Width        *float64                     `json:"width,omitempty"`
	Height       *float64                     `json:"height,omitempty"`
	Rotation     *float64                     `json:"rotation,omitempty"`
	ZIndex       *int                         `json:"zIndex,omitempty"`
	Locked       *bool                        `json:"locked,omitempty"`
	Visible      *bool                        `json:"visible,omitempty"`
	GroupID      *string                      `json:"groupId,omitempty"`
	ParentID     *string                      `json:"parentId,omitempty"`
	Properties   json.RawMessage              `json:"properties,omitempty"`
	Styles       json.RawMessage              `json:"styles,omitempty"`
	Constraints  json.RawMessage              `json:"constraints,omitempty"`
	Interactions *[]models.ElementInteraction `json:"interactions,omitempty"`
	Validations  *[]models.ElementValidation  `json:"validations,omitempty"`
}

// BatchSummary is the result of a bulk request.
type BatchSummary struct {
	Count  int `json:"count"`
	Failed int `json:"failed"`
}

// GroupView is the result of a group or ungroup request.
type GroupView struct {
	GroupID  string                  `json:"groupId"`
	Elements []*models.CanvasElement `json:"elements"`
}

func canvasPath(appID uint, suffix string) string {
	return fmt.Sprintf("/api/canvas/%d%s", appID, suffix)
}

// GetCanvas returns the canvas of an app, creating it with defaults on first
// access.
func (c *Client) GetCanvas(ctx context.Context, appID uint) (*CanvasView, error) {
	var result CanvasView
	if err := c.call(ctx, http.MethodGet, canvasPath(appID, ""), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PreviewCanvas reads a canvas through the unauthenticated preview.
func (c *Client) PreviewCanvas(ctx context.Context, appID uint) (*CanvasView, error) {
	var result CanvasView
	q := url.Values{"preview": {"1"}}
	if err := c.call(ctx, http.MethodGet, canvasPath(appID, ""), q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateCanvas(ctx context.Context, appID uint, in CanvasInput) (*models.Canvas, error) {
	var result models.Canvas
	if err := c.call(ctx, http.MethodPut, canvasPath(appID, ""), nil, in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListHistory returns up to limit history entries, newest first. A limit of
// zero uses the server default.
func (c *Client) ListHistory(ctx context.Context, appID uint, limit int) ([]*models.CanvasHistory, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var result []*models.CanvasHistory
	if err := c.call(ctx, http.MethodGet, canvasPath(appID, "/history"), q, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) CreateElement(ctx context.Context, appID uint, in ElementInput) (*models.CanvasElement, error) {
	var result models.CanvasElement
	if err := c.call(ctx, http.MethodPost, canvasPath(appID, "/elements"), nil, in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateElement(ctx context.Context, appID uint, elementID string, in ElementInput) (*models.CanvasElement, error) {
	var result models.CanvasElement
	path := canvasPath(appID, "/elements/"+url.PathEscape(elementID))
	if err := c.call(ctx, http.MethodPut, path, nil, in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteElement(ctx context.Context, appID uint, elementID string) error {
	path := canvasPath(appID, "/elements/"+url.PathEscape(elementID))
	return c.call(ctx, http.MethodDelete, path, nil, nil, nil)
}

// BulkUpdateElements patches several elements; each input needs an ID.
func (c *Client) BulkUpdateElements(ctx context.Context, appID uint, elements []ElementInput) (*BatchSummary, error) {
	var result BatchSummary
	body := map[string]any{"elements": elements}
	if err := c.call(ctx, http.MethodPut, canvasPath(appID, "/elements/bulk"), nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) BulkDeleteElements(ctx context.Context, appID uint, elementIDs []string) (*BatchSummary, error) {
	var result BatchSummary
	body := map[string]any{"elementIds": elementIDs}
	if err := c.call(ctx, http.MethodDelete, canvasPath(appID, "/elements/bulk"), nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GroupElements puts the elements in one group. An empty groupID lets the
// server choose one.
func (c *Client) GroupElements(ctx context.Context, appID uint, elementIDs []string, groupID string) (*GroupView, error) {
	var result GroupView
	body := map[string]any{"elementIds": elementIDs, "groupId": groupID}
	if err := c.call(ctx, http.MethodPost, canvasPath(appID, "/groups"), nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UngroupElements(ctx context.Context, appID uint, groupID string) (*GroupView, error) {
	var result GroupView
	path := canvasPath(appID, "/groups/"+url.PathEscape(groupID))
	if err := c.call(ctx, http.MethodDelete, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Export returns the raw export document in format.
func (c *Client) Export(ctx context.Context, appID uint, format string, includeHistory bool) (json.RawMessage, error) {
	q := url.Values{"format": {format}, "includeHistory": {strconv.FormatBool(includeHistory)}}
	var result json.RawMessage
	if err := c.call(ctx, http.MethodGet, canvasPath(appID, "/export"), q, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
