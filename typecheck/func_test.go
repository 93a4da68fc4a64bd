package typecheck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modmap/modmap/typeexpr"
)

func addContract() FuncSpec {
	return FuncSpec{
		Params: []Param{
			{Name: "a", Type: typeexpr.Int()},
			{Name: "b", Type: typeexpr.Int()},
		},
		Result: typeexpr.Int(),
	}
}

func TestNewFunc(t *testing.T) {
	_, err := NewFunc(addContract(), nil)
	require.Error(t, err)

	f, err := NewFunc(addContract(), func(args ...any) (any, error) { return 0, nil })
	require.NoError(t, err)
	assert.Len(t, f.Spec().Params, 2)
}

func TestCallSuccess(t *testing.T) {
	f, err := NewFunc(addContract(), func(args ...any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	})
	require.NoError(t, err)

	got, err := f.Call(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestCallArgumentMismatch(t *testing.T) {
	invoked := false
	f, err := NewFunc(addContract(), func(args ...any) (any, error) {
		invoked = true
		return 0, nil
	})
	require.NoError(t, err)

	_, err = f.Call(2, "three")
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.False(t, invoked, "implementation must not run on argument mismatch")

	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "b", tm.Parameter)
	assert.Contains(t, err.Error(), `argument "b"`)
}

func TestCallArity(t *testing.T) {
	f, err := NewFunc(addContract(), func(args ...any) (any, error) { return 0, nil })
	require.NoError(t, err)

	_, err = f.Call(1)
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), "expected 2 arguments, got 1")
}

func TestCallResultMismatch(t *testing.T) {
	f, err := NewFunc(addContract(), func(args ...any) (any, error) {
		return "not an int", nil
	})
	require.NoError(t, err)

	_, err = f.Call(1, 2)
	require.ErrorIs(t, err, ErrTypeMismatch)

	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.True(t, tm.IsReturn)
	assert.Contains(t, err.Error(), "return value")
}

func TestCallImplementationErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	f, err := NewFunc(addContract(), func(args ...any) (any, error) {
		return nil, boom
	})
	require.NoError(t, err)

	_, err = f.Call(1, 2)
	assert.Same(t, boom, err, "implementation errors must pass through unwrapped")
}

func TestCallNoCoercion(t *testing.T) {
	f, err := NewFunc(addContract(), func(args ...any) (any, error) { return 0, nil })
	require.NoError(t, err)

	// "2" would coerce to int, but call boundaries are strict.
	_, err = f.Call("2", 3)
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestCallZeroResultAdmitsAnything(t *testing.T) {
	f, err := NewFunc(FuncSpec{}, func(args ...any) (any, error) {
		return map[string]any{"ok": true}, nil
	})
	require.NoError(t, err)

	got, err := f.Call()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, got)
}

func TestCallUnnamedParamUsesIndex(t *testing.T) {
	f, err := NewFunc(FuncSpec{Params: []Param{{Type: typeexpr.Int()}}}, func(args ...any) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)

	_, err = f.Call("x")
	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "0", tm.Parameter)
}
