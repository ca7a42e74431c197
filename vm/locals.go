package gvm

// Locals is the VM's single appendable local-variable vector, shared by
// every active call frame. A frame's variables live at data[base:base+size];
// PushFrame grows the vector for a callee and PopFrame truncates back to
// the caller's slice, so nested calls behave like a real call stack
// without each frame owning a separate allocation.
type Locals struct {
	data []Value
	base int
}

func NewLocals() *Locals {
	return &Locals{}
}

// PushFrame reserves size Null-initialized slots for a new frame and
// returns the caller's base, which must be passed back to PopFrame.
func (l *Locals) PushFrame(size uint16) int {
	saved := l.base
	l.base = len(l.data)
	for i := uint16(0); i < size; i++ {
		l.data = append(l.data, Null)
	}
	return saved
}

// PopFrame discards the current frame's slots and restores the caller's
// base.
func (l *Locals) PopFrame(savedBase int) {
	l.data = l.data[:l.base]
	l.base = savedBase
}

func (l *Locals) index(i uint16) (int, error) {
	idx := l.base + int(i)
	if idx < 0 || idx >= len(l.data) {
		return 0, newErrf(IndexOutOfBounds, "local %d (frame size %d)", i, len(l.data)-l.base)
	}
	return idx, nil
}

func (l *Locals) Load(i uint16) (Value, error) {
	idx, err := l.index(i)
	if err != nil {
		return Null, err
	}
	return l.data[idx], nil
}

func (l *Locals) Store(i uint16, v Value) error {
	idx, err := l.index(i)
	if err != nil {
		return err
	}
	l.data[idx] = v
	return nil
}

// IInc adds delta to the integer local at i in place.
func (l *Locals) IInc(i uint16, delta int32) error {
	idx, err := l.index(i)
	if err != nil {
		return err
	}
	v := l.data[idx]
	if v.Tag() != TagInteger {
		return newErrf(TypeMismatch, "iinc on %s local", v.Tag())
	}
	l.data[idx] = IntegerValue(v.Integer() + delta)
	return nil
}

// Roots returns every slot of every currently-active frame, used by the
// garbage collector to seed its mark set.
func (l *Locals) Roots() []Value { return l.data }
