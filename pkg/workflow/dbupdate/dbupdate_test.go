package dbupdate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.UnixMilli(1700000000000)
}

func TestToBackendLastWriteWins(t *testing.T) {
	out := ToBackend(SimpleConfig{
		UpdateFields: []UpdateField{
			{ID: "1", Field: "a", Value: "1"},
			{ID: "2", Field: "a", Value: "2"},
			{ID: "3", Field: "  ", Value: "ignored"},
			{ID: "4", Field: "b", Value: "x"},
		},
	})
	assert.Equal(t, map[string]any{"a": "2", "b": "x"}, out.UpdateData)
	assert.Empty(t, out.WhereConditions)
}

func TestToBackendConditions(t *testing.T) {
	tests := []struct {
		name string
		in   SimpleCondition
		want BackendCondition
	}{
		{
			name: "symbolic operator",
			in:   SimpleCondition{Field: "age", Operator: ">=", Value: "18", Logic: "AND"},
			want: BackendCondition{Field: "age", Operator: "greater_than_or_equal", Value: "18", Logic: "AND"},
		},
		{
			name: "lower case or",
			in:   SimpleCondition{Field: "name", Operator: "LIKE", Value: "bo", Logic: "or"},
			want: BackendCondition{Field: "name", Operator: "contains", Value: "bo", Logic: "OR"},
		},
		{
			name: "unknown logic defaults to and",
			in:   SimpleCondition{Field: "id", Operator: "=", Value: "3", Logic: "XOR"},
			want: BackendCondition{Field: "id", Operator: "equals", Value: "3", Logic: "AND"},
		},
		{
			name: "unknown operator passes through",
			in:   SimpleCondition{Field: "id", Operator: "BETWEEN", Value: "1,2"},
			want: BackendCondition{Field: "id", Operator: "BETWEEN", Value: "1,2", Logic: "AND"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ToBackend(SimpleConfig{WhereConditions: []SimpleCondition{tt.in}})
			require.Len(t, out.WhereConditions, 1)
			assert.Equal(t, tt.want, out.WhereConditions[0])
		})
	}
}

func TestToSimple(t *testing.T) {
	c := Converter{Now: fixedClock}
	out := c.ToSimple(BackendInput{
		Table:           "users",
		UpdateData:      json.RawMessage(`{"name":"bo","age":31,"active":true}`),
		WhereConditions: json.RawMessage(`{"field":"id","operator":"equals","value":7}`),
	})

	assert.Equal(t, ModeSimple, out.Mode)
	assert.Equal(t, "users", out.Table)
	assert.Equal(t, []UpdateField{
		{ID: "0_1700000000000", Field: "active", Value: "true"},
		{ID: "1_1700000000000", Field: "age", Value: "31"},
		{ID: "2_1700000000000", Field: "name", Value: "bo"},
	}, out.UpdateFields)
	assert.Equal(t, []SimpleCondition{
		{Field: "id", Operator: "=", Value: "7", Logic: "AND"},
	}, out.WhereConditions)
}

func TestToSimpleStringEncodedPayloads(t *testing.T) {
	out := ToSimple(BackendInput{
		UpdateData:      json.RawMessage(`"{\"status\":\"done\"}"`),
		WhereConditions: json.RawMessage(`"[{\"field\":\"id\",\"operator\":\"in\",\"value\":[1,2],\"logic\":\"OR\"}]"`),
	})

	assert.Equal(t, ModeSimple, out.Mode)
	require.Len(t, out.UpdateFields, 1)
	assert.Equal(t, "done", out.UpdateFields[0].Value)
	assert.Equal(t, []SimpleCondition{
		{Field: "id", Operator: "IN", Value: "[1,2]", Logic: "OR"},
	}, out.WhereConditions)
}

func TestToSimpleMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   BackendInput
	}{
		{name: "broken updateData string", in: BackendInput{UpdateData: json.RawMessage(`"{not json"`)}},
		{name: "broken updateData", in: BackendInput{UpdateData: json.RawMessage(`{"a":`)}},
		{name: "updateData array", in: BackendInput{UpdateData: json.RawMessage(`[1,2]`)}},
		{name: "broken whereConditions string", in: BackendInput{WhereConditions: json.RawMessage(`"[{"`)}},
		{name: "whereConditions scalar", in: BackendInput{WhereConditions: json.RawMessage(`42`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out SimpleConfig
			assert.NotPanics(t, func() { out = ToSimple(tt.in) })
			assert.Equal(t, ModeAdvanced, out.Mode)
		})
	}
}

func TestToSimpleEmpty(t *testing.T) {
	out := ToSimple(BackendInput{})
	assert.Equal(t, ModeSimple, out.Mode)
	assert.Empty(t, out.UpdateFields)
	assert.Empty(t, out.WhereConditions)
}

func TestConditionRoundTrip(t *testing.T) {
	for _, sym := range Operators() {
		canon := CanonicalOperator(sym)
		t.Run(canon, func(t *testing.T) {
			raw, err := json.Marshal([]BackendCondition{
				{Field: "col", Operator: canon, Value: "v-" + canon, Logic: "OR"},
			})
			require.NoError(t, err)

			simple := ToSimple(BackendInput{WhereConditions: raw})
			require.Equal(t, ModeSimple, simple.Mode)
			require.Len(t, simple.WhereConditions, 1)
			assert.Equal(t, sym, simple.WhereConditions[0].Operator)

			back := ToBackend(simple)
			require.Len(t, back.WhereConditions, 1)
			got := back.WhereConditions[0]
			assert.Equal(t, "col", got.Field)
			assert.Equal(t, canon, got.Operator)
			assert.Equal(t, "v-"+canon, got.Value)
			assert.Equal(t, "OR", got.Logic)
		})
	}
}

func TestOperatorTableIsBijective(t *testing.T) {
	assert.Len(t, Operators(), 8)
	for _, sym := range Operators() {
		assert.Equal(t, sym, SymbolicOperator(CanonicalOperator(sym)))
	}
	assert.Equal(t, "regex", SymbolicOperator("regex"))
}
