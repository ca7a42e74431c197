package gvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeapStringRoundTrip(t *testing.T) {
	h := NewHeap()
	handle := h.AllocString("hello")
	s, err := h.String(handle)
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestHeapArrayGetSet(t *testing.T) {
	h := NewHeap()
	handle := h.AllocArray([]Value{IntegerValue(1), IntegerValue(2)})

	v, err := h.ArrayGet(handle, 1)
	require.NoError(t, err)
	require.Equal(t, int32(2), v.Integer())

	require.NoError(t, h.ArraySet(handle, 0, IntegerValue(99)))
	v, err = h.ArrayGet(handle, 0)
	require.NoError(t, err)
	require.Equal(t, int32(99), v.Integer())

	_, err = h.ArrayGet(handle, 10)
	require.Error(t, err)
}

func TestHeapDict(t *testing.T) {
	h := NewHeap()
	handle := h.AllocDict()
	key := StringValue(h.AllocString("k"))

	require.NoError(t, h.DictSet(handle, key, IntegerValue(42)))
	v, err := h.DictGet(handle, key)
	require.NoError(t, err)
	require.Equal(t, int32(42), v.Integer())

	missing, err := h.DictGet(handle, StringValue(h.AllocString("missing")))
	require.NoError(t, err)
	require.True(t, missing.IsNull())
}

func TestHeapInstanceFields(t *testing.T) {
	h := NewHeap()
	class := newClass("Point")
	class.Fields = []Field{{Name: "x", Offset: 0}, {Name: "y", Offset: 1}}

	handle := h.AllocInstance(class)
	inst, err := h.Instance(handle)
	require.NoError(t, err)
	require.Len(t, inst.Fields, 2)
	require.True(t, inst.Fields[0].IsNull())
}

func TestHeapCollectReclaimsUnreachable(t *testing.T) {
	h := NewHeap()
	live := h.AllocString("kept")
	_ = h.AllocString("garbage")

	require.Equal(t, 2, h.Live())
	h.Collect([]Value{StringValue(live)})
	require.Equal(t, 1, h.Live())

	s, err := h.String(live)
	require.NoError(t, err)
	require.Equal(t, "kept", s)
}

func TestHeapCollectMarksArrayElements(t *testing.T) {
	h := NewHeap()
	innerHandle := h.AllocString("inner")
	outerHandle := h.AllocArray([]Value{StringValue(innerHandle)})

	h.Collect([]Value{ArrayValue(outerHandle)})
	require.Equal(t, 2, h.Live())

	s, err := h.String(innerHandle)
	require.NoError(t, err)
	require.Equal(t, "inner", s)
}

func TestHeapFreedHandleIsStale(t *testing.T) {
	h := NewHeap()
	handle := h.AllocString("gone")
	h.Collect(nil)

	_, err := h.String(handle)
	require.Error(t, err)
}
