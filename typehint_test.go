package toolbridge

import (
	"maps"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotAndRestoreCustomTypes backs up the global custom type registry and registers t.Cleanup
// to restore it. Use in tests that call RegisterType so they do not affect other tests.
// Do not run such tests with t.Parallel().
func snapshotAndRestoreCustomTypes(t *testing.T) {
	t.Helper()
	customTypesMu.Lock()
	before := maps.Clone(customTypes)
	customTypesMu.Unlock()
	t.Cleanup(func() {
		customTypesMu.Lock()
		customTypes = before
		customTypesMu.Unlock()
	})
}

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestHintOf(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want string
	}{
		{"string", reflect.TypeFor[string](), "string"},
		{"bool", reflect.TypeFor[bool](), "boolean"},
		{"int", reflect.TypeFor[int](), "integer"},
		{"uint8", reflect.TypeFor[uint8](), "integer"},
		{"float", reflect.TypeFor[float32](), "number"},
		{"pointer", reflect.TypeFor[*int](), "optional[integer]"},
		{"bytes", reflect.TypeFor[[]byte](), "string"},
		{"time", reflect.TypeFor[time.Time](), "string"},
		{"bare list", reflect.TypeFor[[]any](), "list"},
		{"list", reflect.TypeFor[[]int](), "list[integer]"},
		{"nested list", reflect.TypeFor[[][]string](), "list[list[string]]"},
		{"array", reflect.TypeFor[[2]float64](), "tuple[number, number]"},
		{"set", reflect.TypeFor[map[string]struct{}](), "set[string]"},
		{"dict", reflect.TypeFor[map[string]int](), "dict[string, integer]"},
		{"record", reflect.TypeFor[point](), "toolbridge.point"},
		{"any", reflect.TypeFor[any](), "any"},
		{"nil", nil, "any"},
		{"chan", reflect.TypeFor[chan int](), "chan int"},
		{"func", reflect.TypeFor[func()](), "func()"},
		{"int keys", reflect.TypeFor[map[int]string](), "map[int]string"},
		{"complex", reflect.TypeFor[complex128](), "complex128"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HintOf(tt.typ).String())
		})
	}
}

func TestHintOf_Kinds(t *testing.T) {
	assert.Equal(t, KindUnsupported, HintOf(reflect.TypeFor[chan int]()).Kind())
	assert.Equal(t, KindRecord, HintOf(reflect.TypeFor[point]()).Kind())
	assert.Equal(t, reflect.TypeFor[point](), HintOf(reflect.TypeFor[point]()).RecordType())
	assert.Equal(t, KindRecord, HintOf(reflect.TypeFor[*point]()).elems[0].Kind())
}

func TestTypeHint_ZeroIsAny(t *testing.T) {
	var h TypeHint
	assert.Equal(t, KindAny, h.Kind())
	assert.Equal(t, "any", h.String())
}

func TestTypeHint_Accessors(t *testing.T) {
	elem, ok := List(Integer()).Elem()
	require.True(t, ok)
	assert.Equal(t, KindInteger, elem.Kind())

	_, ok = BareList().Elem()
	assert.False(t, ok)
	_, ok = String().Elem()
	assert.False(t, ok)

	u := Union(Integer(), String())
	elems := u.Elems()
	require.Len(t, elems, 2)
	elems[0] = Boolean()
	assert.Equal(t, KindInteger, u.Elems()[0].Kind(), "Elems must return a copy")

	lit := Literal("a", "b")
	assert.Equal(t, []any{"a", "b"}, lit.Values())
	assert.Equal(t, `literal["a", "b"]`, lit.String())
	assert.Equal(t, reflect.TypeFor[point](), RecordOf[*point]().RecordType())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "union", KindUnion.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

type celsius float64

func TestRegisterType(t *testing.T) {
	snapshotAndRestoreCustomTypes(t)
	RegisterType(celsius(0), Union(Number(), String()))
	assert.Equal(t, "union[number, string]", HintOf(reflect.TypeFor[celsius]()).String())
	assert.Equal(t, "optional[union[number, string]]", HintOf(reflect.TypeFor[*celsius]()).String())
}

func TestRegisterType_NilPanics(t *testing.T) {
	assert.Panics(t, func() { RegisterType(nil, String()) })
}
