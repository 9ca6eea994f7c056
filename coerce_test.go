package toolbridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestCoerce_PassThrough(t *testing.T) {
	tests := []struct {
		name string
		hint TypeHint
		raw  string
	}{
		{"string", String(), `"x"`},
		{"integer keeps float64", Integer(), `3`},
		{"wrong primitive", Integer(), `"3"`},
		{"any", Any(), `{"a":[1,2]}`},
		{"list of non-array", List(Integer()), `"not a list"`},
		{"dict of non-object", Dict(Integer()), `[1]`},
		{"set of non-array", Set(String()), `5`},
		{"bare list", BareList(), `[1,"a"]`},
		{"literal", Literal("a"), `"b"`},
		{"unsupported", Unsupported("chan int"), `1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := decodeRaw(t, tt.raw)
			got, err := Coerce(tt.hint, raw)
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestCoerce_Record(t *testing.T) {
	got, err := Coerce(RecordOf[point](), decodeRaw(t, `{"x": 1, "y": 2}`))
	require.NoError(t, err)
	assert.Equal(t, point{X: 1, Y: 2}, got)
}

func TestCoerce_RecordFallsBackToRaw(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing field", `{"x": 1}`},
		{"wrong type", `{"x": "one", "y": 2}`},
		{"fractional", `{"x": 1.5, "y": 2}`},
		{"not an object", `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := decodeRaw(t, tt.raw)
			got, err := Coerce(RecordOf[point](), raw)
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestCoerce_NestedRecord(t *testing.T) {
	raw := decodeRaw(t, `{"name": "Ann", "address": {"street": "Main 1", "city": "Oslo", "zip": null}}`)
	got, err := Coerce(RecordOf[person](), raw)
	require.NoError(t, err)
	assert.Equal(t, person{
		Name:    "Ann",
		Address: address{Street: "Main 1", City: "Oslo"},
		Tags:    []string{},
	}, got)
}

func TestCoerce_ListOfRecords(t *testing.T) {
	got, err := Coerce(List(RecordOf[point]()), decodeRaw(t, `[{"x":1,"y":2},{"x":3}]`))
	require.NoError(t, err)
	items := got.([]any)
	require.Len(t, items, 2)
	assert.Equal(t, point{X: 1, Y: 2}, items[0])
	assert.Equal(t, map[string]any{"x": 3.0}, items[1], "invalid element stays raw")
}

func TestCoerce_Dict(t *testing.T) {
	got, err := Coerce(Dict(RecordOf[point]()), decodeRaw(t, `{"a": {"x": 1, "y": 1}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": point{X: 1, Y: 1}}, got)
}

func TestCoerce_Union(t *testing.T) {
	h := Union(Integer(), String())
	got, err := Coerce(h, 3.0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	got, err = Coerce(h, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	_, err = Coerce(h, true)
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, true, ce.Value)
	assert.Equal(t, "could not convert true to union[integer, string]: value matches none of the variants", err.Error())
}

func TestCoerce_UnionPicksFirstMatchingVariant(t *testing.T) {
	h := Union(RecordOf[point](), Dict(Any()))
	got, err := Coerce(h, decodeRaw(t, `{"x": 1, "y": 2}`))
	require.NoError(t, err)
	assert.Equal(t, point{X: 1, Y: 2}, got)

	got, err = Coerce(h, decodeRaw(t, `{"other": true}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"other": true}, got)

	// 1.5 is not integral, so Integer is skipped.
	got, err = Coerce(Union(Integer(), Number()), 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got)
}

func TestCoerce_Tuple(t *testing.T) {
	h := Tuple(Number(), String())
	got, err := Coerce(h, decodeRaw(t, `[1.5, "a"]`))
	require.NoError(t, err)
	assert.Equal(t, []any{1.5, "a"}, got)

	_, err = Coerce(h, decodeRaw(t, `[1.5]`))
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "expected 2 items, got 1", ce.Reason)

	_, err = Coerce(h, "x")
	require.ErrorAs(t, err, &ce)
}

func TestCoerce_NestedErrorsPropagate(t *testing.T) {
	_, err := Coerce(List(Tuple(Integer())), decodeRaw(t, `[[1], [1, 2]]`))
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, err.Error(), "item 1")
}

func TestCoerce_Set(t *testing.T) {
	got, err := Coerce(Set(String()), decodeRaw(t, `["b", "a", "b"]`))
	require.NoError(t, err)
	set, ok := got.(ValueSet)
	require.True(t, ok)
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains("a"))
	assert.False(t, set.Contains("c"))
	assert.Equal(t, []any{"a", "b"}, set.Values())
	assert.Equal(t, `{"a", "b"}`, set.String())
	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(data))
}

func TestValueSet_NumbersCollapse(t *testing.T) {
	s := NewValueSet(1, 1.0, int64(1), 2)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(2.0))
}

func TestCoerce_Optional(t *testing.T) {
	got, err := Coerce(Optional(RecordOf[point]()), nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = Coerce(Optional(RecordOf[point]()), decodeRaw(t, `{"x": 0, "y": 0}`))
	require.NoError(t, err)
	assert.Equal(t, point{}, got)
}

type withDefaults struct {
	Path    string `json:"path" default:"."`
	Pattern string `json:"pattern" default:"*"`
	Depth   int    `json:"depth" default:"2"`
}

func TestCoerce_RecordDefaults(t *testing.T) {
	got, err := Coerce(RecordOf[withDefaults](), map[string]any{"depth": 5.0})
	require.NoError(t, err)
	assert.Equal(t, withDefaults{Path: ".", Pattern: "*", Depth: 5}, got)
}

func TestParseDefault(t *testing.T) {
	assert.Equal(t, ".", parseDefault("."))
	assert.Equal(t, 2.0, parseDefault("2"))
	assert.Equal(t, []any{}, parseDefault("[]"))
	assert.Equal(t, "hello world", parseDefault("hello world"))
	assert.Equal(t, "quoted", parseDefault(`"quoted"`))
}

func TestLiteralContains(t *testing.T) {
	assert.True(t, literalContains([]any{int64(1), int64(2)}, 2.0))
	assert.False(t, literalContains([]any{int64(1)}, 1.5))
	assert.True(t, literalContains([]any{"a", nil}, nil))
	assert.False(t, literalContains([]any{"a"}, "b"))
}
