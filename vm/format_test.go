package gvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayValueScalars(t *testing.T) {
	h := NewHeap()
	require.Equal(t, "null", DisplayValue(h, Null))
	require.Equal(t, "42", DisplayValue(h, IntegerValue(42)))
	require.Equal(t, "9", DisplayValue(h, ByteValue(9)))
}

func TestDisplayValueString(t *testing.T) {
	h := NewHeap()
	v := StringValue(h.AllocString("hi"))
	require.Equal(t, "hi", DisplayValue(h, v))
}

func TestDisplayValueArray(t *testing.T) {
	h := NewHeap()
	v := ArrayValue(h.AllocArray([]Value{IntegerValue(1), IntegerValue(2)}))
	require.Equal(t, "[1;2;]", DisplayValue(h, v))
}

func TestDisplayValueClassInstance(t *testing.T) {
	h := NewHeap()
	class := newClass("Point")
	v := ClassValue(h.AllocInstance(class))
	require.Contains(t, DisplayValue(h, v), "Point@")
}

func TestDebugValueHidesReferenceContents(t *testing.T) {
	h := NewHeap()
	v := StringValue(h.AllocString("secret"))
	out := DebugValue(v)
	require.NotContains(t, out, "secret")
	require.Contains(t, out, "@")
}

func TestDebugValueScalarMatchesDisplay(t *testing.T) {
	require.Equal(t, DisplayValue(nil, IntegerValue(5)), DebugValue(IntegerValue(5)))
}
