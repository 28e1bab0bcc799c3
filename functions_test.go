package twigo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiusin/twigo/value"
)

func callFn(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()
	out, err := NewFunctionRegistry().Call(name, args)
	require.NoError(t, err)
	return out
}

func ints(ns ...int64) []value.Value {
	out := make([]value.Value, len(ns))
	for i, n := range ns {
		out[i] = value.FromInt(n)
	}
	return out
}

func TestRange(t *testing.T) {
	t.Run("stop only", func(t *testing.T) {
		got, ok := callFn(t, "range", ints(3)...).AsSlice()
		require.True(t, ok)
		assert.Equal(t, ints(0, 1, 2), got)
	})

	t.Run("start and stop", func(t *testing.T) {
		got, _ := callFn(t, "range", ints(2, 5)...).AsSlice()
		assert.Equal(t, ints(2, 3, 4), got)
	})

	t.Run("negative step", func(t *testing.T) {
		got, _ := callFn(t, "range", ints(3, 0, -1)...).AsSlice()
		assert.Equal(t, ints(3, 2, 1), got)
	})

	t.Run("empty range", func(t *testing.T) {
		got, ok := callFn(t, "range", ints(3, 3)...).AsSlice()
		require.True(t, ok)
		assert.Empty(t, got)
	})

	t.Run("zero step", func(t *testing.T) {
		_, err := NewFunctionRegistry().Call("range", ints(0, 3, 0))
		requireErrorKind(t, err, ErrInvalidType)
	})

	t.Run("non-integer argument", func(t *testing.T) {
		_, err := NewFunctionRegistry().Call("range", []value.Value{value.FromString("x")})
		requireErrorKind(t, err, ErrInvalidType)
	})
}

func TestMinMax(t *testing.T) {
	assert.Equal(t, value.FromInt(1), callFn(t, "min", ints(3, 1, 2)...))
	assert.Equal(t, value.FromInt(3), callFn(t, "max", ints(3, 1, 2)...))

	arr := value.FromSlice(ints(5, -2, 4))
	assert.Equal(t, value.FromInt(-2), callFn(t, "min", arr))
	assert.Equal(t, value.FromInt(5), callFn(t, "max", arr))

	_, err := NewFunctionRegistry().Call("min", []value.Value{value.FromSlice(nil)})
	requireErrorKind(t, err, ErrTooFewArguments)
}

func TestCycle(t *testing.T) {
	opts := []value.Value{value.FromString("a"), value.FromString("b")}

	got, err := NewFunctionRegistry().Call("cycle", append(ints(0), opts...))
	require.NoError(t, err)
	assert.Equal(t, value.FromString("a"), got)

	got, err = NewFunctionRegistry().Call("cycle", append(ints(3), opts...))
	require.NoError(t, err)
	assert.Equal(t, value.FromString("b"), got)

	// Negative positions wrap too.
	got, err = NewFunctionRegistry().Call("cycle", append(ints(-1), opts...))
	require.NoError(t, err)
	assert.Equal(t, value.FromString("b"), got)
}

func TestRegistryBounds(t *testing.T) {
	reg := NewFunctionRegistry()
	reg.Register("pair", 2, 2, func(args []value.Value) (value.Value, error) {
		return value.FromSlice(args), nil
	})

	_, err := reg.Call("pair", ints(1))
	requireErrorKind(t, err, ErrTooFewArguments)

	_, err = reg.Call("pair", ints(1, 2, 3))
	requireErrorKind(t, err, ErrTooManyArguments)

	_, err = reg.Call("ghost", nil)
	requireErrorKind(t, err, ErrFunctionNotFound)

	assert.True(t, reg.Has("pair"))
	assert.False(t, reg.Has("ghost"))
}

func TestRegisterUnboundedMax(t *testing.T) {
	reg := NewFunctionRegistry()
	reg.Register("count", 0, -1, func(args []value.Value) (value.Value, error) {
		return value.FromInt(int64(len(args))), nil
	})
	got, err := reg.Call("count", ints(1, 2, 3, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, value.FromInt(5), got)
}
