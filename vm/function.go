package gvm

// NativeFunc is the Go-side implementation of a built-in function: it
// receives its arguments already popped off the operand stack (in call
// order) and returns the single Value CALL/TAILCALL pushes back, or an
// error. Built-ins (std:out, file, tcp) are the only functions with a
// NativeFunc; every function decoded from a module file is bytecode.
type NativeFunc func(i *Interp, args []Value) (Value, error)

// Function is one callable unit: either bytecode loaded from a module
// file or a NativeFunc registered by a built-in module at startup.
type Function struct {
	Name       string
	ArgCount   uint8
	LocalCount uint16

	Code   []byte
	Native NativeFunc
}

func (f *Function) IsNative() bool { return f.Native != nil }

func encodeFunction(w *writer, f *Function) error {
	if err := w.str(f.Name); err != nil {
		return err
	}
	if err := w.u8(f.ArgCount); err != nil {
		return err
	}
	if err := w.u16(f.LocalCount); err != nil {
		return err
	}
	if err := w.u32(uint32(len(f.Code))); err != nil {
		return err
	}
	return w.bytes(f.Code)
}

func decodeFunction(r *reader) (*Function, error) {
	name, err := r.str()
	if err != nil {
		return nil, err
	}
	argc, err := r.u8()
	if err != nil {
		return nil, err
	}
	localc, err := r.u16()
	if err != nil {
		return nil, err
	}
	codeLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	code, err := r.bytes(int(codeLen))
	if err != nil {
		return nil, err
	}
	return &Function{Name: name, ArgCount: argc, LocalCount: localc, Code: code}, nil
}
