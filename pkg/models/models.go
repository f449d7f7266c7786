package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// History actions recorded in CanvasHistory.Action.
const (
	ActionCanvasUpdated     = "canvas_updated"
	ActionElementCreated    = "element_created"
	ActionElementUpdated    = "element_updated"
	ActionElementDeleted    = "element_deleted"
	ActionElementsGrouped   = "elements_grouped"
	ActionElementsUngrouped = "elements_ungrouped"
	ActionWorkflowSaved     = "workflow_saved"
)

// Canvas defaults applied when an app gets its first canvas.
const (
	DefaultCanvasWidth      = 1440
	DefaultCanvasHeight     = 900
	DefaultCanvasBackground = "#ffffff"
	DefaultGridSize         = 8
)

// App is a user-owned application. Deleting it removes its canvas, elements,
// history and workflows.
type App struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"not null;index" json:"ownerId"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Canvas      *Canvas   `gorm:"foreignKey:AppID" json:"canvas,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// OwnedBy reports whether userID owns the app.
func (a *App) OwnedBy(userID uint) bool {
	return a != nil && userID != 0 && a.OwnerID == userID
}

// Canvas holds layout metadata for an app and the builder's serialized state.
// The shape of CanvasState (pages, elements, groups) is defined by the builder UI
// and is not interpreted here.
type Canvas struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	AppID       uint           `gorm:"not null;uniqueIndex" json:"appId"`
	Name        string         `json:"name"`
	Width       int            `gorm:"not null" json:"width"`
	Height      int            `gorm:"not null" json:"height"`
	Background  string         `json:"background"`
	Zoom        float64        `gorm:"not null" json:"zoom"`
	GridEnabled bool           `json:"gridEnabled"`
	SnapToGrid  bool           `json:"snapToGrid"`
	GridSize    int            `gorm:"not null" json:"gridSize"`
	CanvasState datatypes.JSON `json:"canvasState"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// NewDefaultCanvas returns an unsaved canvas with the builder defaults.
func NewDefaultCanvas(app *App) *Canvas {
	return &Canvas{
		AppID:       app.ID,
		Name:        app.Name,
		Width:       DefaultCanvasWidth,
		Height:      DefaultCanvasHeight,
		Background:  DefaultCanvasBackground,
		Zoom:        1,
		GridEnabled: true,
		SnapToGrid:  true,
		GridSize:    DefaultGridSize,
		CanvasState: datatypes.JSON(`{"pages":[]}`),
	}
}

// CanvasElement is one positioned unit on a canvas. Ids come from the builder
// and are unique within a canvas only, so (CanvasID, ID) is the key and every
// nested row refers to both.
type CanvasElement struct {
	ID           string               `gorm:"primaryKey;size:64" json:"id"`
	CanvasID     uint                 `gorm:"primaryKey;autoIncrement:false;index" json:"canvasId"`
	Type         string               `gorm:"not null" json:"type"`
	Name         string               `json:"name"`
	X            float64              `json:"x"`
	Y            float64              `json:"y"`
	Width        float64              `json:"width"`
	Height       float64              `json:"height"`
	Rotation     float64              `json:"rotation"`
	ZIndex       int                  `gorm:"index" json:"zIndex"`
	Locked       bool                 `json:"locked"`
	Visible      bool                 `json:"visible"`
	GroupID      *string              `gorm:"size:64;index" json:"groupId"`
	ParentID     *string              `gorm:"size:64;index" json:"parentId"`
	Properties   datatypes.JSON       `json:"properties"`
	Styles       datatypes.JSON       `json:"styles"`
	Constraints  datatypes.JSON       `json:"constraints"`
	Interactions []ElementInteraction `gorm:"foreignKey:CanvasID,ElementID;references:CanvasID,ID" json:"interactions"`
	Validations  []ElementValidation  `gorm:"foreignKey:CanvasID,ElementID;references:CanvasID,ID" json:"validations"`
	Children     []CanvasElement      `gorm:"foreignKey:CanvasID,ParentID;references:CanvasID,ID" json:"children,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// BeforeCreate assigns an id when the builder did not supply one.
func (e *CanvasElement) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Snapshot returns the element as JSON for history rows. Nested children are
// left out so a snapshot describes a single element.
func (e *CanvasElement) Snapshot() datatypes.JSON {
	if e == nil {
		return nil
	}
	flat := *e
	flat.Children = nil
	data, err := json.Marshal(flat)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// ElementInteraction binds a UI event on an element to an action.
type ElementInteraction struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CanvasID  uint           `gorm:"not null;index:idx_interaction_element" json:"canvasId"`
	ElementID string         `gorm:"size:64;not null;index:idx_interaction_element" json:"elementId"`
	Event     string         `gorm:"not null" json:"event"`
	Action    string         `gorm:"not null" json:"action"`
	Config    datatypes.JSON `json:"config"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ElementValidation is a single input validation rule on an element.
type ElementValidation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CanvasID  uint      `gorm:"not null;index:idx_validation_element" json:"canvasId"`
	ElementID string    `gorm:"size:64;not null;index:idx_validation_element" json:"elementId"`
	Rule      string    `gorm:"not null" json:"rule"`
	Value     string    `json:"value"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// CanvasHistory is an append-only audit record. ElementID is nil for
// canvas-level actions.
type CanvasHistory struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CanvasID  uint           `gorm:"not null;index:idx_history_canvas_created" json:"canvasId"`
	Action    string         `gorm:"not null" json:"action"`
	ElementID *string        `gorm:"size:64" json:"elementId"`
	OldState  datatypes.JSON `json:"oldState"`
	NewState  datatypes.JSON `json:"newState"`
	UserID    uint           `gorm:"not null" json:"userId"`
	CreatedAt time.Time      `gorm:"index:idx_history_canvas_created" json:"createdAt"`
}

// TableName keeps the history table name singular like the builder expects.
func (CanvasHistory) TableName() string {
	return "canvas_history"
}

// Workflow is the node/edge graph attached to one element of an app.
// (AppID, ElementID) is unique.
type Workflow struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AppID     uint           `gorm:"not null;uniqueIndex:idx_workflow_app_element" json:"appId"`
	ElementID string         `gorm:"size:64;not null;uniqueIndex:idx_workflow_app_element" json:"elementId"`
	Nodes     datatypes.JSON `gorm:"not null" json:"nodes"`
	Edges     datatypes.JSON `gorm:"not null" json:"edges"`
	Metadata  datatypes.JSON `json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// All returns every model managed by AutoMigrate, parents first.
func All() []any {
	return []any{
		&App{},
		&Canvas{},
		&CanvasElement{},
		&ElementInteraction{},
		&ElementValidation{},
		&CanvasHistory{},
		&Workflow{},
	}
}
