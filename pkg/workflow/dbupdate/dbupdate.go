// Package dbupdate converts the configuration of a workflow "database update"
// action between the builder's form representation and the generic backend
// representation.
//
// The form (simple) side lists update fields and where-conditions as rows of
// strings with symbolic operators ("=", ">=", "LIKE"). The backend side holds a
// field->value map and conditions with canonical operator names ("equals",
// "greater_than_or_equal", "contains"). Neither side is validated against a
// real table schema.
package dbupdate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/appcanvas/appcanvas/pkg/models"
)

// Modes reported by ToSimple.
const (
	ModeSimple   = "simple"
	ModeAdvanced = "advanced"
)

// Condition joins. Any other logic value is normalized to LogicAnd.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

var toCanonical = map[string]string{
	"=":    "equals",
	"!=":   "not_equals",
	">":    "greater_than",
	"<":    "less_than",
	">=":   "greater_than_or_equal",
	"<=":   "less_than_or_equal",
	"LIKE": "contains",
	"IN":   "in",
}

var toSymbolic = func() map[string]string {
	m := make(map[string]string, len(toCanonical))
	for sym, canon := range toCanonical {
		m[canon] = sym
	}
	return m
}()

// Operators returns the symbolic operators understood by the converter, sorted.
func Operators() []string {
	ops := make([]string, 0, len(toCanonical))
	for op := range toCanonical {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// CanonicalOperator maps a symbolic operator to its canonical name. Unknown
// operators are returned unchanged.
func CanonicalOperator(op string) string {
	if canon, ok := toCanonical[op]; ok {
		return canon
	}
	return op
}

// SymbolicOperator is the inverse of CanonicalOperator.
func SymbolicOperator(op string) string {
	if sym, ok := toSymbolic[op]; ok {
		return sym
	}
	return op
}

// UpdateField is one "set field to value" row of the form.
type UpdateField struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// SimpleCondition is one where-condition row of the form.
type SimpleCondition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Logic    string `json:"logic"`
}

// SimpleConfig is the form representation.
type SimpleConfig struct {
	Mode            string            `json:"mode"`
	Table           string            `json:"table,omitempty"`
	UpdateFields    []UpdateField     `json:"updateFields"`
	WhereConditions []SimpleCondition `json:"whereConditions"`
}

// BackendCondition is a where-condition with a canonical operator.
type BackendCondition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
	Logic    string `json:"logic"`
}

// BackendConfig is the backend representation produced by ToBackend.
type BackendConfig struct {
	Table           string             `json:"table,omitempty"`
	UpdateData      map[string]any     `json:"updateData"`
	WhereConditions []BackendCondition `json:"whereConditions"`
}

// BackendInput is a backend configuration as stored on a workflow node.
// UpdateData and WhereConditions may be structured JSON or JSON strings
// holding it; WhereConditions may be a single object or an array.
type BackendInput struct {
	Table           string          `json:"table,omitempty"`
	UpdateData      json.RawMessage `json:"updateData"`
	WhereConditions json.RawMessage `json:"whereConditions"`
}

// Converter converts between the two representations. Now stamps the
// synthetic ids of update fields and defaults to time.Now.
type Converter struct {
	Now func() time.Time
}

var defaultConverter = Converter{}

// ToBackend converts with the default converter.
func ToBackend(cfg SimpleConfig) BackendConfig {
	return defaultConverter.ToBackend(cfg)
}

// ToSimple converts with the default converter.
func ToSimple(in BackendInput) SimpleConfig {
	return defaultConverter.ToSimple(in)
}

// ToBackend collapses update rows into a map, later rows winning over earlier
// ones with the same field, and maps condition operators to canonical names.
func (c Converter) ToBackend(cfg SimpleConfig) BackendConfig {
	out := BackendConfig{
		Table:           cfg.Table,
		UpdateData:      make(map[string]any, len(cfg.UpdateFields)),
		WhereConditions: make([]BackendCondition, 0, len(cfg.WhereConditions)),
	}
	for _, f := range cfg.UpdateFields {
		field := strings.TrimSpace(f.Field)
		if field == "" {
			continue
		}
		out.UpdateData[field] = f.Value
	}
	for _, cond := range cfg.WhereConditions {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			continue
		}
		out.WhereConditions = append(out.WhereConditions, BackendCondition{
			Field:    field,
			Operator: CanonicalOperator(cond.Operator),
			Value:    cond.Value,
			Logic:    normalizeLogic(cond.Logic),
		})
	}
	return out
}

// ToSimple is the inverse of ToBackend. It never fails: when either payload
// cannot be parsed the result carries Mode ModeAdvanced and the unparsed part
// is left empty.
func (c Converter) ToSimple(in BackendInput) SimpleConfig {
	out := SimpleConfig{
		Mode:            ModeSimple,
		Table:           in.Table,
		UpdateFields:    []UpdateField{},
		WhereConditions: []SimpleCondition{},
	}

	data, err := decodeUpdateData(in.UpdateData)
	if err != nil {
		out.Mode = ModeAdvanced
	} else {
		fields := make([]string, 0, len(data))
		for field := range data {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		stamp := c.now().UnixMilli()
		for i, field := range fields {
			out.UpdateFields = append(out.UpdateFields, UpdateField{
				ID:    fmt.Sprintf("%d_%d", i, stamp),
				Field: field,
				Value: stringify(data[field]),
			})
		}
	}

	conds, err := decodeConditions(in.WhereConditions)
	if err != nil {
		out.Mode = ModeAdvanced
	} else {
		for _, cond := range conds {
			out.WhereConditions = append(out.WhereConditions, SimpleCondition{
				Field:    cond.Field,
				Operator: SymbolicOperator(cond.Operator),
				Value:    stringify(cond.Value),
				Logic:    normalizeLogic(cond.Logic),
			})
		}
	}
	return out
}

func (c Converter) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func decodeUpdateData(raw json.RawMessage) (map[string]any, error) {
	value, err := models.BlobValue(models.ParseBlob(raw))
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return map[string]any{}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(value, &data); err != nil {
		return nil, fmt.Errorf("updateData is not an object: %w", err)
	}
	return data, nil
}

func decodeConditions(raw json.RawMessage) ([]BackendCondition, error) {
	value, err := models.BlobValue(models.ParseBlob(raw))
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, nil
	}
	if value[0] == '{' {
		var single BackendCondition
		if err := json.Unmarshal(value, &single); err != nil {
			return nil, fmt.Errorf("whereConditions: %w", err)
		}
		return []BackendCondition{single}, nil
	}
	var list []BackendCondition
	if err := json.Unmarshal(value, &list); err != nil {
		return nil, fmt.Errorf("whereConditions: %w", err)
	}
	return list, nil
}

func normalizeLogic(logic string) string {
	switch strings.ToUpper(strings.TrimSpace(logic)) {
	case LogicOr:
		return LogicOr
	default:
		return LogicAnd
	}
}

// stringify renders a backend value the way the form displays it. Strings are
// kept verbatim, null becomes empty and everything else is its JSON text.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
