package gvm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModuleRoundTrip(t *testing.T) {
	m := newModule("math")
	m.Pool = []PoolEntry{
		{Tag: PoolString, Str: "hi"},
		{Tag: PoolInteger, Int: 7},
	}
	m.addFunction(&Function{
		Name:       "add",
		ArgCount:   2,
		LocalCount: 2,
		Code:       []byte{byte(LOAD_0), byte(LOAD_1), byte(IADD), byte(RETURN)},
	})

	class := newClass("Point")
	class.Fields = []Field{{Name: "x", Offset: 0}, {Name: "y", Offset: 1}}
	class.addMethod(&Function{Name: "sum", ArgCount: 1, LocalCount: 1, Code: []byte{byte(RETURN)}})
	m.addClass(class)

	var buf bytes.Buffer
	require.NoError(t, WriteModule(&buf, m))

	decoded, err := ReadModule(&buf)
	require.NoError(t, err)
	require.Equal(t, "math", decoded.Name)
	require.Len(t, decoded.Pool, 2)
	require.Equal(t, "hi", decoded.Pool[0].Str)
	require.Equal(t, int32(7), decoded.Pool[1].Int)

	fn, ok := decoded.Function("add")
	require.True(t, ok)
	require.EqualValues(t, 2, fn.ArgCount)
	require.Equal(t, []byte{byte(LOAD_0), byte(LOAD_1), byte(IADD), byte(RETURN)}, fn.Code)

	cls, ok := decoded.Class("Point")
	require.True(t, ok)
	require.Len(t, cls.Fields, 2)
	_, ok = cls.Method("sum")
	require.True(t, ok)
}

func TestModuleBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	_, err := ReadModule(buf)
	require.Error(t, err)
	var vmErr *VMError
	require.ErrorAs(t, err, &vmErr)
	require.Equal(t, MalformedModule, vmErr.Kind)
}
