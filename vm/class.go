package gvm

// Field is one slot of a class's instance layout. Offset is redundant
// with the field's position in Class.Fields (declaration order is offset
// order) but is kept explicit since GET_FIELD/SET_FIELD address by offset
// and diagnostics want to print it without recomputing the index.
type Field struct {
	Name   string
	Offset uint16
}

// Class is a loaded class: its instance field layout, its own constant
// pool (LOADCONST inside a method resolves against this pool, not the
// owning module's), and its method table.
type Class struct {
	Name   string
	Fields []Field
	Pool   []PoolEntry

	methods     map[string]*Function
	methodOrder []string
}

func newClass(name string) *Class {
	return &Class{Name: name, methods: map[string]*Function{}}
}

func (c *Class) addMethod(f *Function) {
	if _, exists := c.methods[f.Name]; !exists {
		c.methodOrder = append(c.methodOrder, f.Name)
	}
	c.methods[f.Name] = f
}

func (c *Class) Method(name string) (*Function, bool) {
	f, ok := c.methods[name]
	return f, ok
}

// Methods returns methods in declaration order, for disassembly and
// deterministic iteration.
func (c *Class) Methods() []*Function {
	out := make([]*Function, 0, len(c.methodOrder))
	for _, name := range c.methodOrder {
		out = append(out, c.methods[name])
	}
	return out
}

func (c *Class) poolEntry(idx uint16) (PoolEntry, error) {
	if int(idx) >= len(c.Pool) {
		return PoolEntry{}, invalidEntry(int(idx))
	}
	return c.Pool[idx], nil
}

func (c *Class) unitName() string { return c.Name }

func (c *Class) FieldOffset(name string) (uint16, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Offset, true
		}
	}
	return 0, false
}

func encodeClass(w *writer, c *Class) error {
	if err := w.str(c.Name); err != nil {
		return err
	}
	if err := w.u16(uint16(len(c.Fields))); err != nil {
		return err
	}
	for _, f := range c.Fields {
		if err := w.str(f.Name); err != nil {
			return err
		}
	}
	if err := w.u16(uint16(len(c.Pool))); err != nil {
		return err
	}
	for _, e := range c.Pool {
		if err := e.encode(w); err != nil {
			return err
		}
	}
	methods := c.Methods()
	if err := w.u16(uint16(len(methods))); err != nil {
		return err
	}
	for _, f := range methods {
		if err := encodeFunction(w, f); err != nil {
			return err
		}
	}
	return nil
}

func decodeClass(r *reader) (*Class, error) {
	name, err := r.str()
	if err != nil {
		return nil, err
	}
	c := newClass(name)

	fieldCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	c.Fields = make([]Field, fieldCount)
	for i := range c.Fields {
		fname, err := r.str()
		if err != nil {
			return nil, err
		}
		c.Fields[i] = Field{Name: fname, Offset: uint16(i)}
	}

	poolCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	c.Pool = make([]PoolEntry, poolCount)
	for i := range c.Pool {
		e, err := decodePoolEntry(r)
		if err != nil {
			return nil, err
		}
		c.Pool[i] = e
	}

	methodCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	for i := uint16(0); i < methodCount; i++ {
		f, err := decodeFunction(r)
		if err != nil {
			return nil, err
		}
		c.addMethod(f)
	}

	return c, nil
}
