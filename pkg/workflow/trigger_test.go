package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTriggers(t *testing.T) {
	tests := []struct {
		name        string
		nodes       []Node
		wantTrigger bool
		wantWarning bool
	}{
		{name: "empty", nodes: nil},
		{
			name:        "category",
			nodes:       []Node{{ID: "a", Data: &NodeData{Category: "Triggers"}}},
			wantTrigger: true,
		},
		{
			name:        "flag",
			nodes:       []Node{{ID: "a", Data: &NodeData{Category: "Actions"}}, {ID: "b", Data: &NodeData{IsTrigger: true}}},
			wantTrigger: true,
		},
		{
			name:        "label allow-list",
			nodes:       []Node{{ID: "a", Data: &NodeData{Label: "onSubmit"}}},
			wantTrigger: true,
		},
		{
			name:        "label is case sensitive",
			nodes:       []Node{{ID: "a", Data: &NodeData{Label: "onclick"}}},
			wantWarning: true,
		},
		{
			name:        "missing data",
			nodes:       []Node{{ID: "a"}},
			wantWarning: true,
		},
		{
			name:        "no trigger",
			nodes:       []Node{{ID: "a", Data: &NodeData{Category: "Actions", Label: "Update record"}}},
			wantWarning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := CheckTriggers(tt.nodes)
			assert.Equal(t, tt.wantTrigger, report.HasTrigger)
			assert.Equal(t, tt.wantTrigger, HasTrigger(tt.nodes))
			if tt.wantWarning {
				assert.Equal(t, MissingTriggerWarning, report.Warning)
			} else {
				assert.Empty(t, report.Warning)
			}
		})
	}
}

func TestDecodeNodes(t *testing.T) {
	nodes, err := DecodeNodes([]byte(`[
		{"id":"n1","type":"trigger","data":{"category":"Triggers","label":"onClick"}},
		{"id":"n2","type":"action","data":"not an object"},
		{"id":"n3","type":"action"}
	]`))
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.True(t, nodes[0].IsTrigger())
	assert.Nil(t, nodes[1].Data)
	assert.Nil(t, nodes[2].Data)

	_, err = DecodeNodes([]byte(`{"id":"n1"}`))
	assert.Error(t, err)
}

func TestDecodeNodesIgnoresMistypedFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		id    string
	}{
		{name: "isTrigger as string", input: `[{"id":"n1","data":{"category":"Triggers","isTrigger":"yes"}}]`, id: "n1"},
		{name: "label as object", input: `[{"id":"n1","data":{"category":"Triggers","label":{"text":"Start"}}}]`, id: "n1"},
		{name: "isTrigger as number", input: `[{"id":"n1","data":{"label":"onClick","isTrigger":1}}]`, id: "n1"},
		{name: "numeric id", input: `[{"id":7,"type":["x"],"data":{"category":"Triggers"}}]`, id: "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := DecodeNodes([]byte(tt.input))
			require.NoError(t, err)
			require.Len(t, nodes, 1)
			require.NotNil(t, nodes[0].Data)
			assert.Equal(t, tt.id, nodes[0].ID)
			assert.True(t, HasTrigger(nodes))
		})
	}
}
