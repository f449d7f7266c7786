// Package workflow holds the shape checks applied to stored workflow graphs.
// Workflows are persisted as opaque node/edge arrays and are never executed
// by this service.
package workflow

import (
	"encoding/json"
	"fmt"
)

// TriggerCategory is the node category the builder assigns to trigger nodes.
const TriggerCategory = "Triggers"

// MissingTriggerWarning is reported for non-empty graphs without a trigger.
const MissingTriggerWarning = "workflow has no trigger node; it will never start"

var triggerLabels = map[string]struct{}{
	"onClick":  {},
	"onChange": {},
	"onSubmit": {},
	"onDrop":   {},
	"onHover":  {},
	"onFocus":  {},
}

// Node is the subset of a builder graph node inspected by the trigger check.
type Node struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data *NodeData `json:"data,omitempty"`
}

// NodeData is the node payload written by the builder.
type NodeData struct {
	Category  string `json:"category,omitempty"`
	IsTrigger bool   `json:"isTrigger,omitempty"`
	Label     string `json:"label,omitempty"`
}

// IsTrigger reports whether the node starts a workflow.
func (n Node) IsTrigger() bool {
	if n.Data == nil {
		return false
	}
	if n.Data.Category == TriggerCategory || n.Data.IsTrigger {
		return true
	}
	_, ok := triggerLabels[n.Data.Label]
	return ok
}

// TriggerReport is the advisory result of CheckTriggers.
type TriggerReport struct {
	HasTrigger bool
	Warning    string
}

// CheckTriggers looks for at least one trigger node. An empty graph yields
// neither a trigger nor a warning.
func CheckTriggers(nodes []Node) TriggerReport {
	if len(nodes) == 0 {
		return TriggerReport{}
	}
	for _, n := range nodes {
		if n.IsTrigger() {
			return TriggerReport{HasTrigger: true}
		}
	}
	return TriggerReport{Warning: MissingTriggerWarning}
}

// HasTrigger is CheckTriggers reduced to its boolean.
func HasTrigger(nodes []Node) bool {
	return CheckTriggers(nodes).HasTrigger
}

// DecodeNodes reads a JSON node array. Each field is read on its own and a
// field of an unexpected type is ignored, so one odd field never hides the
// rest of a node. A node whose data is not an object is kept with a nil Data.
func DecodeNodes(raw []byte) ([]Node, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode workflow nodes: %w", err)
	}
	nodes := make([]Node, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			nodes = append(nodes, Node{})
			continue
		}
		node := Node{ID: textField(fields["id"]), Type: stringField(fields["type"])}
		var data map[string]json.RawMessage
		if raw := fields["data"]; len(raw) > 0 && json.Unmarshal(raw, &data) == nil && data != nil {
			node.Data = &NodeData{
				Category:  stringField(data["category"]),
				IsTrigger: boolField(data["isTrigger"]),
				Label:     stringField(data["label"]),
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func stringField(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func boolField(raw json.RawMessage) bool {
	var b bool
	if json.Unmarshal(raw, &b) != nil {
		return false
	}
	return b
}

// textField reads a string or a number; builders emit numeric node ids.
func textField(raw json.RawMessage) string {
	if s := stringField(raw); s != "" {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) != nil {
		return ""
	}
	return n.String()
}
