package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/appcanvas/appcanvas/pkg/models"
)

// ListApps returns the caller's apps, newest first.
func (c *Client) ListApps(ctx context.Context) ([]*models.App, error) {
	var result []*models.App
	if err := c.call(ctx, http.MethodGet, "/api/apps", nil, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateApp creates an app and its default canvas.
func (c *Client) CreateApp(ctx context.Context, name, description string) (*models.App, error) {
	var result models.App
	body := map[string]string{"name": name, "description": description}
	if err := c.call(ctx, http.MethodPost, "/api/apps", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetApp(ctx context.Context, id uint) (*models.App, error) {
	var result models.App
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/apps/%d", id), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteApp(ctx context.Context, id uint) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/apps/%d", id), nil, nil, nil)
}
