package gvm

import (
	"bufio"
	"net"
)

// tcpState backs the tcp built-in's opaque resource handles. Listeners
// and connections can't be represented as a tagged Value directly (the
// tag set is closed at NULL..CLASS), so each is given a plain Integer
// handle allocated here instead of a heap cell, with the real
// net.Listener/net.Conn kept in a Go map keyed by that handle.
type tcpState struct {
	next      int32
	listeners map[int32]net.Listener
	conns     map[int32]*tcpConn
}

type tcpConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func newTCPState() *tcpState {
	return &tcpState{
		listeners: map[int32]net.Listener{},
		conns:     map[int32]*tcpConn{},
	}
}

func (s *tcpState) allocHandle() int32 {
	s.next++
	return s.next
}

// tcpModule builds the tcp built-in: new_listener, accept, recv_string,
// send_string, destroy.
func tcpModule() *Module {
	state := newTCPState()
	m := newModule("tcp")

	m.addFunction(&Function{Name: "new_listener", ArgCount: 1, Native: func(i *Interp, args []Value) (Value, error) {
		addr, err := requireString(i.Heap, args[0])
		if err != nil {
			return Null, err
		}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return Null, wrapIO(err, "listen "+addr)
		}
		handle := state.allocHandle()
		state.listeners[handle] = ln
		return IntegerValue(handle), nil
	}})

	m.addFunction(&Function{Name: "accept", ArgCount: 1, Native: func(i *Interp, args []Value) (Value, error) {
		handle, err := requireInt(args[0])
		if err != nil {
			return Null, err
		}
		ln, ok := state.listeners[handle]
		if !ok {
			return Null, newErrf(NullDereference, "no listener with handle %d", handle)
		}
		conn, err := ln.Accept()
		if err != nil {
			return Null, wrapIO(err, "accept")
		}
		connHandle := state.allocHandle()
		state.conns[connHandle] = &tcpConn{conn: conn, reader: bufio.NewReader(conn)}
		return IntegerValue(connHandle), nil
	}})

	m.addFunction(&Function{Name: "recv_string", ArgCount: 1, Native: func(i *Interp, args []Value) (Value, error) {
		handle, err := requireInt(args[0])
		if err != nil {
			return Null, err
		}
		c, ok := state.conns[handle]
		if !ok {
			return Null, newErrf(NullDereference, "no connection with handle %d", handle)
		}
		line, err := c.reader.ReadString('\n')
		if err != nil && line == "" {
			return Null, wrapIO(err, "recv_string")
		}
		return StringValue(i.Heap.AllocString(line)), nil
	}})

	m.addFunction(&Function{Name: "send_string", ArgCount: 2, Native: func(i *Interp, args []Value) (Value, error) {
		handle, err := requireInt(args[0])
		if err != nil {
			return Null, err
		}
		s, err := requireString(i.Heap, args[1])
		if err != nil {
			return Null, err
		}
		c, ok := state.conns[handle]
		if !ok {
			return Null, newErrf(NullDereference, "no connection with handle %d", handle)
		}
		if _, err := c.conn.Write([]byte(s)); err != nil {
			return Null, wrapIO(err, "send_string")
		}
		return Null, nil
	}})

	m.addFunction(&Function{Name: "destroy", ArgCount: 1, Native: func(i *Interp, args []Value) (Value, error) {
		handle, err := requireInt(args[0])
		if err != nil {
			return Null, err
		}
		if ln, ok := state.listeners[handle]; ok {
			delete(state.listeners, handle)
			if err := ln.Close(); err != nil {
				return Null, wrapIO(err, "destroy listener")
			}
			return Null, nil
		}
		if c, ok := state.conns[handle]; ok {
			delete(state.conns, handle)
			if err := c.conn.Close(); err != nil {
				return Null, wrapIO(err, "destroy connection")
			}
			return Null, nil
		}
		return Null, newErrf(NullDereference, "no resource with handle %d", handle)
	}})

	return m
}

func requireInt(v Value) (int32, error) {
	if v.Tag() != TagInteger {
		return 0, newErrf(TypeMismatch, "expected integer, got %s", v.Tag())
	}
	return v.Integer(), nil
}
