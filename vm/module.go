package gvm

import "io"

// poolOwner is whatever a call frame resolves LOADCONST/CALL/NEW/
// CALL_METHOD/GET_FIELD/SET_FIELD pool indices against: a Module for an
// ordinary function, or a Class for a method running against that
// class's own pool.
type poolOwner interface {
	poolEntry(idx uint16) (PoolEntry, error)
	unitName() string
}

func (m *Module) poolEntry(idx uint16) (PoolEntry, error) {
	if int(idx) >= len(m.Pool) {
		return PoolEntry{}, invalidEntry(int(idx))
	}
	return m.Pool[idx], nil
}

func (m *Module) unitName() string { return m.Name }

// Module is one loaded unit: a name, its own constant pool, a function
// table and a class table. The on-wire layout is:
//
//	magic:u32  name:str  pool_count:u16 pool[pool_count]
//	func_count:u16 functions[func_count]  class_count:u16 classes[class_count]
type Module struct {
	Name string
	Pool []PoolEntry

	functions     map[string]*Function
	functionOrder []string
	classes       map[string]*Class
	classOrder    []string
}

func newModule(name string) *Module {
	return &Module{
		Name:      name,
		functions: map[string]*Function{},
		classes:   map[string]*Class{},
	}
}

func (m *Module) addFunction(f *Function) {
	if _, exists := m.functions[f.Name]; !exists {
		m.functionOrder = append(m.functionOrder, f.Name)
	}
	m.functions[f.Name] = f
}

func (m *Module) addClass(c *Class) {
	if _, exists := m.classes[c.Name]; !exists {
		m.classOrder = append(m.classOrder, c.Name)
	}
	m.classes[c.Name] = c
}

func (m *Module) Function(name string) (*Function, bool) {
	f, ok := m.functions[name]
	return f, ok
}

func (m *Module) Class(name string) (*Class, bool) {
	c, ok := m.classes[name]
	return c, ok
}

func (m *Module) Functions() []*Function {
	out := make([]*Function, 0, len(m.functionOrder))
	for _, name := range m.functionOrder {
		out = append(out, m.functions[name])
	}
	return out
}

func (m *Module) Classes() []*Class {
	out := make([]*Class, 0, len(m.classOrder))
	for _, name := range m.classOrder {
		out = append(out, m.classes[name])
	}
	return out
}

// ReadModule decodes a module file per the layout above, rejecting a bad
// magic number or truncated input as MalformedModule.
func ReadModule(r io.Reader) (*Module, error) {
	rd := newReader(r)

	magic, err := rd.u32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, newErrf(MalformedModule, "bad magic 0x%08X", magic)
	}

	name, err := rd.str()
	if err != nil {
		return nil, err
	}
	m := newModule(name)

	poolCount, err := rd.u16()
	if err != nil {
		return nil, err
	}
	m.Pool = make([]PoolEntry, poolCount)
	for i := range m.Pool {
		e, err := decodePoolEntry(rd)
		if err != nil {
			return nil, err
		}
		m.Pool[i] = e
	}

	funcCount, err := rd.u16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < funcCount; i++ {
		f, err := decodeFunction(rd)
		if err != nil {
			return nil, err
		}
		m.addFunction(f)
	}

	classCount, err := rd.u16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < classCount; i++ {
		c, err := decodeClass(rd)
		if err != nil {
			return nil, err
		}
		m.addClass(c)
	}

	return m, nil
}

// WriteModule encodes m in the layout ReadModule expects. Used by tests to
// build module fixtures in-memory.
func WriteModule(w io.Writer, m *Module) error {
	wr := newWriter(w)

	if err := wr.u32(Magic); err != nil {
		return err
	}
	if err := wr.str(m.Name); err != nil {
		return err
	}

	if err := wr.u16(uint16(len(m.Pool))); err != nil {
		return err
	}
	for _, e := range m.Pool {
		if err := e.encode(wr); err != nil {
			return err
		}
	}

	functions := m.Functions()
	if err := wr.u16(uint16(len(functions))); err != nil {
		return err
	}
	for _, f := range functions {
		if err := encodeFunction(wr, f); err != nil {
			return err
		}
	}

	classes := m.Classes()
	if err := wr.u16(uint16(len(classes))); err != nil {
		return err
	}
	for _, c := range classes {
		if err := encodeClass(wr, c); err != nil {
			return err
		}
	}

	return nil
}
