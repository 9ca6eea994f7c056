package toolbridge

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindInto[T any](t *testing.T, src any) (T, error) {
	t.Helper()
	var v T
	err := bindValue(reflect.ValueOf(&v).Elem(), src)
	return v, err
}

func TestBindValue_Numbers(t *testing.T) {
	n, err := bindInto[int](t, 42.0)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	u, err := bindInto[uint8](t, 255.0)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), u)

	f, err := bindInto[float32](t, 1.5)
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f)

	_, err = bindInto[int](t, 1.5)
	require.ErrorIs(t, err, ErrInvalidArguments)

	_, err = bindInto[int8](t, 300.0)
	require.ErrorIs(t, err, ErrInvalidArguments)

	_, err = bindInto[uint](t, -1.0)
	require.ErrorIs(t, err, ErrInvalidArguments)

	_, err = bindInto[int64](t, math.MaxFloat64)
	require.ErrorIs(t, err, ErrInvalidArguments)

	_, err = bindInto[float32](t, math.MaxFloat64)
	require.ErrorIs(t, err, ErrInvalidArguments)
}

func TestBindValue_Mismatch(t *testing.T) {
	_, err := bindInto[string](t, 1.0)
	require.ErrorIs(t, err, ErrInvalidArguments)
	assert.Contains(t, err.Error(), "cannot use 1 as string")

	_, err = bindInto[point](t, map[string]any{"x": 1.0})
	require.ErrorIs(t, err, ErrInvalidArguments)
}

func TestBindValue_Containers(t *testing.T) {
	list, err := bindInto[[]int](t, []any{1.0, 2.0})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, list)

	arr, err := bindInto[[2]string](t, []any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [2]string{"a", "b"}, arr)

	_, err = bindInto[[2]string](t, []any{"a"})
	require.ErrorIs(t, err, ErrInvalidArguments)

	dict, err := bindInto[map[string]float64](t, map[string]any{"a": 1.0})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 1}, dict)

	set, err := bindInto[map[int]struct{}](t, NewValueSet(1.0, 2.0))
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{1: {}, 2: {}}, set)

	fromSet, err := bindInto[[]string](t, NewValueSet("b", "a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fromSet)

	data, err := bindInto[[]byte](t, "raw")
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), data)
}

func TestBindValue_Pointers(t *testing.T) {
	p, err := bindInto[*int](t, 7.0)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 7, *p)

	p, err = bindInto[*int](t, nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	rec, err := bindInto[*point](t, point{X: 1})
	require.NoError(t, err)
	assert.Equal(t, &point{X: 1}, rec)
}

func TestBindValue_SelfDecoding(t *testing.T) {
	ts, err := bindInto[time.Time](t, "2024-05-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), ts)

	_, err = bindInto[time.Time](t, "yesterday")
	require.ErrorIs(t, err, ErrInvalidArguments)
}
