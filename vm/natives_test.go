package gvm

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileReadToString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greeting.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	m := fileModule()
	fn, ok := m.Function("read_to_string")
	require.True(t, ok)

	h := NewHeap()
	interp := &Interp{Heap: h}
	v, err := fn.Native(interp, []Value{StringValue(h.AllocString(path))})
	require.NoError(t, err)

	s, err := h.String(v.Handle())
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestFileReadToStringMissingFile(t *testing.T) {
	m := fileModule()
	fn, ok := m.Function("read_to_string")
	require.True(t, ok)

	h := NewHeap()
	interp := &Interp{Heap: h}
	_, err := fn.Native(interp, []Value{StringValue(h.AllocString(filepath.Join(t.TempDir(), "missing")))})
	require.Error(t, err)
	var vmErr *VMError
	require.ErrorAs(t, err, &vmErr)
	require.Equal(t, IoError, vmErr.Kind)
}

func TestFileReadToBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	m := fileModule()
	fn, ok := m.Function("read_to_bytes")
	require.True(t, ok)

	h := NewHeap()
	interp := &Interp{Heap: h}
	v, err := fn.Native(interp, []Value{StringValue(h.AllocString(path))})
	require.NoError(t, err)

	arr, err := h.Array(v.Handle())
	require.NoError(t, err)
	require.Len(t, arr, 3)
	require.EqualValues(t, 2, arr[1].Byte())
}

func TestTCPListenerAcceptRoundTrip(t *testing.T) {
	// Bind to an OS-chosen port via a throwaway listener first, just to
	// learn a free port number, then hand that exact address to the
	// native under test.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addrStr := probe.Addr().String()
	require.NoError(t, probe.Close())

	m := tcpModule()
	newListener, _ := m.Function("new_listener")
	accept, _ := m.Function("accept")
	recvString, _ := m.Function("recv_string")
	destroy, _ := m.Function("destroy")

	h := NewHeap()
	interp := &Interp{Heap: h}

	lnHandle, err := newListener.Native(interp, []Value{StringValue(h.AllocString(addrStr))})
	require.NoError(t, err)

	dialErrCh := make(chan error, 1)
	go func() {
		conn, err := net.Dial("tcp", addrStr)
		if err != nil {
			dialErrCh <- err
			return
		}
		defer conn.Close()
		_, err = conn.Write([]byte("ping\n"))
		dialErrCh <- err
	}()

	connHandle, err := accept.Native(interp, []Value{lnHandle})
	require.NoError(t, err)
	require.NoError(t, <-dialErrCh)

	msg, err := recvString.Native(interp, []Value{connHandle})
	require.NoError(t, err)
	s, err := h.String(msg.Handle())
	require.NoError(t, err)
	require.Equal(t, "ping\n", s)

	_, err = destroy.Native(interp, []Value{connHandle})
	require.NoError(t, err)
	_, err = destroy.Native(interp, []Value{lnHandle})
	require.NoError(t, err)
}

func TestTCPDestroyUnknownHandleErrors(t *testing.T) {
	m := tcpModule()
	destroy, _ := m.Function("destroy")
	h := NewHeap()
	interp := &Interp{Heap: h}

	_, err := destroy.Native(interp, []Value{IntegerValue(999)})
	require.Error(t, err)
	var vmErr *VMError
	require.ErrorAs(t, err, &vmErr)
	require.Equal(t, NullDereference, vmErr.Kind)
}
