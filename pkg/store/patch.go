package store

import (
	"gorm.io/datatypes"

	"github.com/appcanvas/appcanvas/pkg/models"
)

// ElementPatch is a partial element update. Nil fields are left unchanged.
// An empty GroupID or ParentID clears the column.
type ElementPatch struct {
	ID          string
	Type        *string
	Name        *string
	X           *float64
	Y           *float64
	Width       *float64
	Height      *float64
	Rotation    *float64
	ZIndex      *int
	Locked      *bool
	Visible     *bool
	GroupID     *string
	ParentID    *string
	Properties  datatypes.JSON
	Styles      datatypes.JSON
	Constraints datatypes.JSON

	// Interactions and Validations replace the element's rows when non-nil.
	Interactions *[]models.ElementInteraction
	Validations  *[]models.ElementValidation
}

// Columns returns the column updates carried by the patch.
func (p ElementPatch) Columns() map[string]any {
	cols := make(map[string]any)
	setString := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	setFloat := func(name string, v *float64) {
		if v != nil {
			cols[name] = *v
		}
	}
	setBool := func(name string, v *bool) {
		if v != nil {
			cols[name] = *v
		}
	}
	setNullable := func(name string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			cols[name] = nil
			return
		}
		cols[name] = *v
	}
	setJSON := func(name string, v datatypes.JSON) {
		if v != nil {
			cols[name] = v
		}
	}

	setString("type", p.Type)
	setString("name", p.Name)
	setFloat("x", p.X)
	setFloat("y", p.Y)
	setFloat("width", p.Width)
	setFloat("height", p.Height)
	setFloat("rotation", p.Rotation)
	if p.ZIndex != nil {
		cols["z_index"] = *p.ZIndex
	}
	setBool("locked", p.Locked)
	setBool("visible", p.Visible)
	setNullable("group_id", p.GroupID)
	setNullable("parent_id", p.ParentID)
	setJSON("properties", p.Properties)
	setJSON("styles", p.Styles)
	setJSON("constraints", p.Constraints)
	return cols
}

// IsEmpty reports whether applying the patch would change nothing.
func (p ElementPatch) IsEmpty() bool {
	return len(p.Columns()) == 0 && p.Interactions == nil && p.Validations == nil
}
