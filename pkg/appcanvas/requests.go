package appcanvas

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"

	"github.com/appcanvas/appcanvas/pkg/models"
	"github.com/appcanvas/appcanvas/pkg/store"
)

// maxBodyBytes bounds request bodies. Canvas state blobs can be large.
const maxBodyBytes = 8 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("Request body is required")
		}
		return badRequest("Invalid request payload")
	}
	return nil
}

func appIDParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["appId"], 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("Invalid app ID")
	}
	return uint(id), nil
}

// blob parses one JSON field of a request body. A missing field yields nil.
func blob(name string, raw json.RawMessage) (datatypes.JSON, error) {
	v, err := models.BlobValue(models.ParseBlob(raw))
	if err != nil {
		return nil, badRequest(fmt.Sprintf("Invalid %s: %v", name, err))
	}
	return v, nil
}

// arrayBlob is blob for the required array fields of a workflow.
func arrayBlob(name string, raw json.RawMessage) (datatypes.JSON, error) {
	v, err := models.BlobValue(models.ParseArrayBlob(raw))
	if err != nil {
		return nil, badRequest(fmt.Sprintf("%s must be an array", name))
	}
	return v, nil
}

func orEmptyObject(j datatypes.JSON) datatypes.JSON {
	if len(j) == 0 {
		return datatypes.JSON(`{}`)
	}
	return j
}

type interactionRequest struct {
	Event  string          `json:"event"`
	Action string          `json:"action"`
	Config json.RawMessage `json:"config"`
}

type validationRequest struct {
	Rule    string          `json:"rule"`
	Value   json.RawMessage `json:"value"`
	Message string          `json:"message"`
}

// elementRequest is the body of element create and update requests. Absent
// fields are left untouched by updates.
type elementRequest struct {
	ID           string                `json:"id"`
	Type         *string               `json:"type"`
	Name         *string               `json:"name"`
	X            *float64              `json:"x"`
	Y            *float64              `json:"y"`
	Width        *float64              `json:"width"`
	Height       *float64              `json:"height"`
	Rotation     *float64              `json:"rotation"`
	ZIndex       *int                  `json:"zIndex"`
	Locked       *bool                 `json:"locked"`
	Visible      *bool                 `json:"visible"`
	GroupID      *string               `json:"groupId"`
	ParentID     *string               `json:"parentId"`
	Properties   json.RawMessage       `json:"properties"`
	Styles       json.RawMessage       `json:"styles"`
	Constraints  json.RawMessage       `json:"constraints"`
	Interactions *[]interactionRequest `json:"interactions"`
	Validations  *[]validationRequest  `json:"validations"`
}

// validationValue renders a rule value as text. The builder sends numbers
// for rules such as minLength.
func validationValue(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

func (req elementRequest) interactions() (*[]models.ElementInteraction, error) {
	if req.Interactions == nil {
		return nil, nil
	}
	out := make([]models.ElementInteraction, 0, len(*req.Interactions))
	for _, in := range *req.Interactions {
		if in.Event == "" || in.Action == "" {
			return nil, badRequest("Interactions require event and action")
		}
		cfg, err := blob("interaction config", in.Config)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ElementInteraction{
			ElementID: req.ID,
			Event:     in.Event,
			Action:    in.Action,
			Config:    orEmptyObject(cfg),
		})
	}
	return &out, nil
}

func (req elementRequest) validations() (*[]models.ElementValidation, error) {
	if req.Validations == nil {
		return nil, nil
	}
	out := make([]models.ElementValidation, 0, len(*req.Validations))
	for _, v := range *req.Validations {
		if v.Rule == "" {
			return nil, badRequest("Validations require a rule")
		}
		out = append(out, models.ElementValidation{
			ElementID: req.ID,
			Rule:      v.Rule,
			Value:     validationValue(v.Value),
			Message:   v.Message,
		})
	}
	return &out, nil
}

// patch converts the request into a store patch, parsing every blob once.
func (req elementRequest) patch() (store.ElementPatch, error) {
	p := store.ElementPatch{
		ID:       req.ID,
		Type:     req.Type,
		Name:     req.Name,
		X:        req.X,
		Y:        req.Y,
		Width:    req.Width,
		Height:   req.Height,
		Rotation: req.Rotation,
		ZIndex:   req.ZIndex,
		Locked:   req.Locked,
		Visible:  req.Visible,
		GroupID:  req.GroupID,
		ParentID: req.ParentID,
	}
	var err error
	if p.Properties, err = blob("properties", req.Properties); err != nil {
		return p, err
	}
	if p.Styles, err = blob("styles", req.Styles); err != nil {
		return p, err
	}
	if p.Constraints, err = blob("constraints", req.Constraints); err != nil {
		return p, err
	}
	if p.Interactions, err = req.interactions(); err != nil {
		return p, err
	}
	if p.Validations, err = req.validations(); err != nil {
		return p, err
	}
	return p, nil
}

// element builds a new element. Visible defaults to true.
func (req elementRequest) element(canvasID uint) (*models.CanvasElement, error) {
	if req.Type == nil || strings.TrimSpace(*req.Type) == "" {
		return nil, badRequest("Element type is required")
	}
	p, err := req.patch()
	if err != nil {
		return nil, err
	}
	el := &models.CanvasElement{
		ID:          req.ID,
		CanvasID:    canvasID,
		Type:        *req.Type,
		Visible:     true,
		Properties:  orEmptyObject(p.Properties),
		Styles:      orEmptyObject(p.Styles),
		Constraints: orEmptyObject(p.Constraints),
	}
	setIf(&el.Name, p.Name)
	setIf(&el.X, p.X)
	setIf(&el.Y, p.Y)
	setIf(&el.Width, p.Width)
	setIf(&el.Height, p.Height)
	setIf(&el.Rotation, p.Rotation)
	setIf(&el.ZIndex, p.ZIndex)
	setIf(&el.Locked, p.Locked)
	setIf(&el.Visible, p.Visible)
	el.GroupID = nonEmpty(p.GroupID)
	el.ParentID = nonEmpty(p.ParentID)
	if p.Interactions != nil {
		el.Interactions = *p.Interactions
	}
	if p.Validations != nil {
		el.Validations = *p.Validations
	}
	return el, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

type canvasRequest struct {
	Name        *string         `json:"name"`
	Width       *int            `json:"width"`
	Height      *int            `json:"height"`
	Background  *string         `json:"background"`
	Zoom        *float64        `json:"zoom"`
	GridEnabled *bool           `json:"gridEnabled"`
	SnapToGrid  *bool           `json:"snapToGrid"`
	GridSize    *int            `json:"gridSize"`
	CanvasState json.RawMessage `json:"canvasState"`
}

// apply copies the present settings onto c.
func (req canvasRequest) apply(c *models.Canvas) error {
	if req.Width != nil && *req.Width <= 0 || req.Height != nil && *req.Height <= 0 {
		return badRequest("Canvas width and height must be positive")
	}
	if req.Zoom != nil && *req.Zoom <= 0 {
		return badRequest("Canvas zoom must be positive")
	}
	state, err := blob("canvasState", req.CanvasState)
	if err != nil {
		return err
	}
	setIf(&c.Name, req.Name)
	setIf(&c.Width, req.Width)
	setIf(&c.Height, req.Height)
	setIf(&c.Background, req.Background)
	setIf(&c.Zoom, req.Zoom)
	setIf(&c.GridEnabled, req.GridEnabled)
	setIf(&c.SnapToGrid, req.SnapToGrid)
	setIf(&c.GridSize, req.GridSize)
	if state != nil {
		c.CanvasState = state
	}
	return nil
}

type bulkUpdateRequest struct {
	Elements []elementRequest `json:"elements"`
}

type elementIDsRequest struct {
	ElementIDs []string `json:"elementIds"`
	GroupID    string   `json:"groupId"`
}

type workflowRequest struct {
	ElementID string          `json:"elementId"`
	Nodes     json.RawMessage `json:"nodes"`
	Edges     json.RawMessage `json:"edges"`
	Metadata  json.RawMessage `json:"metadata"`
}

type appRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
