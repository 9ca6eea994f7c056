package toolbridge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherArgs struct {
	Location string   `json:"location"`
	Unit     string   `json:"unit" default:"\"celsius\"" enum:"celsius,fahrenheit"`
	Days     *int     `json:"days"`
	Fields   []string `json:"fields,omitempty"`
}

const weatherDoc = `Get the weather forecast.

Args:
    location: City name.
    unit: Temperature unit.
    days: How many days ahead, null for today.

Returns:
    A short forecast.
`

func newWeatherTool(t *testing.T, opts ...ToolOption) Tool {
	t.Helper()
	tool, err := NewTool("get_weather", weatherDoc, func(_ context.Context, a weatherArgs) (string, error) {
		return a.Location + " " + a.Unit, nil
	}, opts...)
	require.NoError(t, err)
	return tool
}

func TestDescriptor_MarshalJSON(t *testing.T) {
	d := newWeatherTool(t).Descriptor()
	data, err := json.Marshal(d)
	require.NoError(t, err)
	want := `{"name":"get_weather","description":"Get the weather forecast.","parameters":{"type":"object","properties":{` +
		`"location":{"type":"string","description":"City name."},` +
		`"unit":{"type":"string","enum":["celsius","fahrenheit"],"description":"Temperature unit."},` +
		`"days":{"type":"integer","nullable":true,"description":"How many days ahead, null for today."},` +
		`"fields":{"type":"array","items":{"type":"string"}}},` +
		`"required":["location","days"]},"returns":{"description":"A short forecast."}}`
	assert.Equal(t, want, string(data))
}

func TestDescriptor_NoRequired(t *testing.T) {
	type Args struct {
		Path string `json:"path" default:"."`
	}
	tool, err := NewTool("list_dir", "List a directory.", func(_ context.Context, a Args) (string, error) {
		return a.Path, nil
	})
	require.NoError(t, err)
	d := tool.Descriptor()
	assert.Empty(t, d.Required())
	data, err := json.Marshal(d.ParametersSchema())
	require.NoError(t, err)
	assert.Equal(t, `{"type":"object","properties":{"path":{"type":"string"}}}`, string(data))
}

func TestDescriptor_NoParameters(t *testing.T) {
	tool, err := NewTool("now", "Current time.", func(_ context.Context, _ struct{}) (string, error) {
		return "noon", nil
	})
	require.NoError(t, err)
	data, err := json.Marshal(tool.Descriptor())
	require.NoError(t, err)
	assert.Equal(t, `{"name":"now","description":"Current time.","parameters":{"type":"object","properties":{}}}`, string(data))
}

func TestDescriptor_Strict(t *testing.T) {
	d := newWeatherTool(t, WithStrict()).Descriptor()
	assert.Equal(t, []string{"location", "unit", "days", "fields"}, d.Required())
	m := d.ParametersSchema()
	v, ok := m.Get("additionalProperties")
	require.True(t, ok)
	assert.Equal(t, false, v)
}

func TestDescriptor_Parameter(t *testing.T) {
	d := newWeatherTool(t).Descriptor()
	p, ok := d.Parameter("unit")
	require.True(t, ok)
	assert.Equal(t, "celsius", p.Default)
	assert.True(t, p.HasDefault)
	assert.False(t, p.Required)
	assert.Equal(t, KindLiteral, p.Hint.Kind())

	_, ok = d.Parameter("missing")
	assert.False(t, ok)
}

func TestDescriptor_IsACopy(t *testing.T) {
	tool := newWeatherTool(t)
	d := tool.Descriptor()
	d.Parameters[0].Name = "changed"
	assert.Equal(t, "location", tool.Descriptor().Parameters[0].Name)
}
