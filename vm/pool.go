package gvm

// PoolTag identifies the wire encoding of a single constant pool entry.
// 0 is reserved/unused so a zeroed PoolEntry is never mistaken for a
// valid one.
type PoolTag uint8

const (
	PoolString PoolTag = iota + 1
	PoolInteger
	PoolFloat
	PoolModule
	PoolFunction
	PoolClass
	PoolField
)

// PoolEntry is one slot of a module's constant pool. Exactly one of the
// value fields is meaningful, selected by Tag. Module/Function/Class/Field
// entries carry plain names rather than indices into a separate names
// table, folding the name directly into the entry instead of interning
// it ahead of the pool.
type PoolEntry struct {
	Tag PoolTag

	Str string
	Int int32
	Flt float32

	// Module names the module a Function/Class entry is qualified by.
	// For a bare PoolModule entry it is the module's own name.
	Module string
	Name   string
}

func (e PoolEntry) encode(w *writer) error {
	if err := w.u8(uint8(e.Tag)); err != nil {
		return err
	}
	switch e.Tag {
	case PoolString:
		return w.str(e.Str)
	case PoolInteger:
		return w.u32(uint32(e.Int))
	case PoolFloat:
		return w.f32(e.Flt)
	case PoolModule:
		return w.str(e.Module)
	case PoolFunction, PoolClass, PoolField:
		if err := w.str(e.Module); err != nil {
			return err
		}
		return w.str(e.Name)
	default:
		return newErrf(MalformedModule, "unknown pool tag %d", e.Tag)
	}
}

func decodePoolEntry(r *reader) (PoolEntry, error) {
	tagByte, err := r.u8()
	if err != nil {
		return PoolEntry{}, err
	}
	tag := PoolTag(tagByte)
	switch tag {
	case PoolString:
		s, err := r.str()
		if err != nil {
			return PoolEntry{}, err
		}
		return PoolEntry{Tag: tag, Str: s}, nil
	case PoolInteger:
		v, err := r.u32()
		if err != nil {
			return PoolEntry{}, err
		}
		return PoolEntry{Tag: tag, Int: int32(v)}, nil
	case PoolFloat:
		f, err := r.f32()
		if err != nil {
			return PoolEntry{}, err
		}
		return PoolEntry{Tag: tag, Flt: f}, nil
	case PoolModule:
		m, err := r.str()
		if err != nil {
			return PoolEntry{}, err
		}
		return PoolEntry{Tag: tag, Module: m}, nil
	case PoolFunction, PoolClass, PoolField:
		m, err := r.str()
		if err != nil {
			return PoolEntry{}, err
		}
		n, err := r.str()
		if err != nil {
			return PoolEntry{}, err
		}
		return PoolEntry{Tag: tag, Module: m, Name: n}, nil
	default:
		return PoolEntry{}, newErrf(MalformedModule, "unknown pool tag %d", tagByte)
	}
}

// asConstant turns a pool entry holding a literal (String/Integer/Float)
// into the Value LOADCONST pushes. Reference-kind entries (Module/
// Function/Class/Field) are resolved through the Context instead and have
// no direct Value form, since they name loader-level symbols rather than
// runtime data.
func (e PoolEntry) asConstant(h *Heap) (Value, error) {
	switch e.Tag {
	case PoolString:
		return StringValue(h.AllocString(e.Str)), nil
	case PoolInteger:
		return IntegerValue(e.Int), nil
	case PoolFloat:
		return FloatValue(e.Flt), nil
	default:
		return Null, invalidEntry(-1)
	}
}
