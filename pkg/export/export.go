// Package export turns the stored state of an app into a downloadable
// document.
//
// Two formats exist. FormatJSON is a complete snapshot with the element
// tree nested under its roots. FormatTemplate is a reusable layout where
// database ids are replaced by positional references, so it can be
// imported into another app.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/appcanvas/appcanvas/pkg/models"
)

const (
	FormatJSON     = "json"
	FormatTemplate = "template"

	// Version is the document format version written by this package.
	Version = "1.0"
)

// ErrUnsupportedFormat is returned by ParseFormat for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat validates a requested format. The empty string means FormatJSON.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatTemplate:
		return FormatTemplate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Snapshot is everything an export is built from. Elements are flat and in
// display order; History is newest first and already capped.
type Snapshot struct {
	App        *models.App
	Canvas     *models.Canvas
	Elements   []*models.CanvasElement
	Workflows  []*models.Workflow
	History    []*models.CanvasHistory
	ExportedAt time.Time
}

// Build renders s in format.
func Build(format string, s Snapshot) (any, error) {
	switch format {
	case FormatJSON:
		return BuildJSON(s), nil
	case FormatTemplate:
		return BuildTemplate(s), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// AppSummary identifies the exported app.
type AppSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Document is the FormatJSON export.
type Document struct {
	Version    string                  `json:"version"`
	ExportedAt time.Time               `json:"exportedAt"`
	App        AppSummary              `json:"app"`
	Canvas     *models.Canvas          `json:"canvas"`
	Elements   []models.CanvasElement  `json:"elements"`
	Workflows  []*models.Workflow      `json:"workflows"`
	History    []*models.CanvasHistory `json:"history,omitempty"`
}

// BuildJSON nests the element list by ParentID. Elements whose parent is
// missing, or that sit on a parent cycle, are exported as roots.
func BuildJSON(s Snapshot) Document {
	doc := Document{
		Version:    Version,
		ExportedAt: s.ExportedAt.UTC(),
		Canvas:     s.Canvas,
		Elements:   nest(s.Elements),
		Workflows:  s.Workflows,
		History:    s.History,
	}
	if s.App != nil {
		doc.App = AppSummary{ID: s.App.ID, Name: s.App.Name, Description: s.App.Description}
	}
	if doc.Workflows == nil {
		doc.Workflows = []*models.Workflow{}
	}
	return doc
}

func nest(flat []*models.CanvasElement) []models.CanvasElement {
	present := make(map[string]bool, len(flat))
	for _, el := range flat {
		present[el.ID] = true
	}
	children := make(map[string][]*models.CanvasElement)
	var roots []*models.CanvasElement
	for _, el := range flat {
		if el.ParentID != nil && *el.ParentID != el.ID && present[*el.ParentID] {
			children[*el.ParentID] = append(children[*el.ParentID], el)
			continue
		}
		roots = append(roots, el)
	}

	visited := make(map[string]bool, len(flat))
	var build func(el *models.CanvasElement) models.CanvasElement
	build = func(el *models.CanvasElement) models.CanvasElement {
		visited[el.ID] = true
		node := *el
		node.Children = nil
		for _, child := range children[el.ID] {
			if !visited[child.ID] {
				node.Children = append(node.Children, build(child))
			}
		}
		return node
	}

	out := make([]models.CanvasElement, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	for _, el := range flat {
		if !visited[el.ID] {
			out = append(out, build(el))
		}
	}
	return out
}

// Template is the FormatTemplate export.
type Template struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Version     string             `json:"version"`
	Canvas      TemplateCanvas     `json:"canvas"`
	Elements    []TemplateElement  `json:"elements"`
	Workflows   []TemplateWorkflow `json:"workflows"`
}

type TemplateCanvas struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Background string `json:"background"`
	GridSize   int    `json:"gridSize"`
	SnapToGrid bool   `json:"snapToGrid"`
}

type TemplateElement struct {
	Ref          string                `json:"ref"`
	Type         string                `json:"type"`
	Name         string                `json:"name"`
	X            float64               `json:"x"`
	Y            float64               `json:"y"`
	Width        float64               `json:"width"`
	Height       float64               `json:"height"`
	Rotation     float64               `json:"rotation"`
	ZIndex       int                   `json:"zIndex"`
	ParentRef    *string               `json:"parentRef"`
	GroupRef     *string               `json:"groupRef"`
	Properties   json.RawMessage       `json:"properties"`
	Styles       json.RawMessage       `json:"styles"`
	Constraints  json.RawMessage       `json:"constraints"`
	Interactions []TemplateInteraction `json:"interactions"`
	Validations  []TemplateValidation  `json:"validations"`
}

type TemplateInteraction struct {
	Event  string          `json:"event"`
	Action string          `json:"action"`
	Config json.RawMessage `json:"config"`
}

type TemplateValidation struct {
	Rule    string `json:"rule"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type TemplateWorkflow struct {
	ElementRef string          `json:"elementRef"`
	Nodes      json.RawMessage `json:"nodes"`
	Edges      json.RawMessage `json:"edges"`
}

// BuildTemplate replaces element ids with "element-N" and group ids with
// "group-N", numbered by first appearance. Workflows of elements that are not
// exported are dropped.
func BuildTemplate(s Snapshot) Template {
	t := Template{
		Version:   Version,
		Elements:  make([]TemplateElement, 0, len(s.Elements)),
		Workflows: []TemplateWorkflow{},
	}
	if s.App != nil {
		t.Name = s.App.Name
		t.Description = s.App.Description
	}
	if s.Canvas != nil {
		t.Canvas = TemplateCanvas{
			Width:      s.Canvas.Width,
			Height:     s.Canvas.Height,
			Background: s.Canvas.Background,
			GridSize:   s.Canvas.GridSize,
			SnapToGrid: s.Canvas.SnapToGrid,
		}
	}

	elementRefs := make(map[string]string, len(s.Elements))
	for i, el := range s.Elements {
		elementRefs[el.ID] = fmt.Sprintf("element-%d", i+1)
	}
	groupRefs := make(map[string]string)
	refOf := func(refs map[string]string, id *string) *string {
		if id == nil {
			return nil
		}
		if ref, ok := refs[*id]; ok {
			return &ref
		}
		return nil
	}

	for _, el := range s.Elements {
		if el.GroupID != nil {
			if _, ok := groupRefs[*el.GroupID]; !ok {
				groupRefs[*el.GroupID] = fmt.Sprintf("group-%d", len(groupRefs)+1)
			}
		}
		te := TemplateElement{
			Ref:          elementRefs[el.ID],
			Type:         el.Type,
			Name:         el.Name,
			X:            el.X,
			Y:            el.Y,
			Width:        el.Width,
			Height:       el.Height,
			Rotation:     el.Rotation,
			ZIndex:       el.ZIndex,
			ParentRef:    refOf(elementRefs, el.ParentID),
			GroupRef:     refOf(groupRefs, el.GroupID),
			Properties:   raw(el.Properties, "{}"),
			Styles:       raw(el.Styles, "{}"),
			Constraints:  raw(el.Constraints, "{}"),
			Interactions: make([]TemplateInteraction, 0, len(el.Interactions)),
			Validations:  make([]TemplateValidation, 0, len(el.Validations)),
		}
		for _, in := range el.Interactions {
			te.Interactions = append(te.Interactions, TemplateInteraction{
				Event:  in.Event,
				Action: in.Action,
				Config: raw(in.Config, "{}"),
			})
		}
		for _, v := range el.Validations {
			te.Validations = append(te.Validations, TemplateValidation{Rule: v.Rule, Value: v.Value, Message: v.Message})
		}
		t.Elements = append(t.Elements, te)
	}

	for _, wf := range s.Workflows {
		ref, ok := elementRefs[wf.ElementID]
		if !ok {
			continue
		}
		t.Workflows = append(t.Workflows, TemplateWorkflow{
			ElementRef: ref,
			Nodes:      raw(wf.Nodes, "[]"),
			Edges:      raw(wf.Edges, "[]"),
		})
	}
	return t
}

func raw(j datatypes.JSON, fallback string) json.RawMessage {
	if len(j) == 0 || string(j) == "null" {
		return json.RawMessage(fallback)
	}
	return json.RawMessage(j)
}
