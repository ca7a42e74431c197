package gvm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// asm is a tiny test-only bytecode assembler: it exists only to keep
// the hand-encoded programs below readable, not as part of the VM.
type asm struct{ buf []byte }

func (a *asm) op(o Opcode) *asm { a.buf = append(a.buf, byte(o)); return a }
func (a *asm) u8(v uint8) *asm  { a.buf = append(a.buf, v); return a }
func (a *asm) u16(v uint16) *asm {
	a.buf = append(a.buf, byte(v>>8), byte(v))
	return a
}
func (a *asm) code() []byte { return a.buf }

func testContext(modules ...*Module) *Context {
	m := map[string]*Module{}
	classes := map[string]*Class{}
	for _, mod := range modules {
		m[mod.Name] = mod
		for _, c := range mod.Classes() {
			classes[c.Name] = c
		}
	}
	return newContext(m, classes)
}

func TestInterpRecursiveFibonacci(t *testing.T) {
	mod := newModule("math")
	mod.Pool = []PoolEntry{
		{Tag: PoolFunction, Module: "math", Name: "fib"},
	}

	code := (&asm{}).
		op(LOAD_0).
		op(I_PUSH_BYTE).u8(2).
		op(I_IFLT).u16(24).
		op(LOAD_0).
		op(I_PUSH_BYTE).u8(1).
		op(ISUB).
		op(CALL).u16(0).u8(1).
		op(LOAD_0).
		op(I_PUSH_BYTE).u8(2).
		op(ISUB).
		op(CALL).u16(0).u8(1).
		op(IADD).
		op(RETURN).
		op(LOAD_0).
		op(RETURN).
		code()

	mod.addFunction(&Function{Name: "fib", ArgCount: 1, LocalCount: 1, Code: code})

	interp := NewInterp(testContext(mod), 64, NewHeap())
	v, err := interp.Run("math", "fib", []Value{IntegerValue(10)})
	require.NoError(t, err)
	require.Equal(t, int32(55), v.Integer())
}

func TestInterpIterativeFactorialTailcall(t *testing.T) {
	// factorial(n, acc) = acc if n == 0 else factorial(n-1, acc*n)
	mod := newModule("math")
	mod.Pool = []PoolEntry{
		{Tag: PoolFunction, Module: "math", Name: "factorial"},
	}

	code := (&asm{}).
		op(LOAD_0).
		op(ICONST_0).
		op(I_IFEQ).u16(16).
		op(LOAD_0).            // push n
		op(I_PUSH_BYTE).u8(1). // push 1
		op(ISUB).               // push n-1, becomes arg 0
		op(LOAD_1).            // push acc
		op(LOAD_0).            // push n
		op(IMUL).               // push acc*n, becomes arg 1
		op(TAILCALL).u16(0).u8(2).
		op(LOAD_1).
		op(RETURN).
		code()

	mod.addFunction(&Function{Name: "factorial", ArgCount: 2, LocalCount: 2, Code: code})

	interp := NewInterp(testContext(mod), 64, NewHeap())
	v, err := interp.Run("math", "factorial", []Value{IntegerValue(5), IntegerValue(1)})
	require.NoError(t, err)
	require.Equal(t, int32(120), v.Integer())
}

func TestInterpArrayMutation(t *testing.T) {
	mod := newModule("arrays")
	code := (&asm{}).
		op(I_PUSH_BYTE).u8(3).
		op(NEW_ARRAY).
		op(STORE_0).
		op(LOAD_0).
		op(ICONST_0).
		op(I_PUSH_BYTE).u8(42).
		op(ARRAY_SET).
		op(LOAD_0).
		op(ICONST_0).
		op(ARRAY_GET).
		op(RETURN).
		code()
	mod.addFunction(&Function{Name: "main", ArgCount: 0, LocalCount: 1, Code: code})

	interp := NewInterp(testContext(mod), 64, NewHeap())
	v, err := interp.Run("arrays", "main", nil)
	require.NoError(t, err)
	require.Equal(t, TagInteger, v.Tag())
	require.EqualValues(t, 42, v.Integer())
}

// TestInterpObjectFieldRoundTrip exercises NEW running the class's "new"
// constructor: push byte 42, NEW Box, STORE_0, LOAD_0 GET_FIELD value
// must yield 42, not the field's null default.
func TestInterpObjectFieldRoundTrip(t *testing.T) {
	mod := newModule("shapes")
	class := newClass("Box")
	class.Fields = []Field{{Name: "value", Offset: 0}}
	class.Pool = []PoolEntry{
		{Tag: PoolField, Name: "value"},
	}
	ctorCode := (&asm{}).
		op(LOAD_0).
		op(LOAD_1).
		op(SET_FIELD).u16(0).
		op(CONST_NULL).
		op(RETURN).
		code()
	class.addMethod(&Function{Name: "new", ArgCount: 1, LocalCount: 2, Code: ctorCode})
	mod.addClass(class)
	mod.Pool = []PoolEntry{
		{Tag: PoolClass, Name: "Box"},
		{Tag: PoolField, Name: "value"},
	}

	code := (&asm{}).
		op(I_PUSH_BYTE).u8(42).
		op(NEW).u16(0).
		op(STORE_0).
		op(LOAD_0).
		op(GET_FIELD).u16(1).
		op(RETURN).
		code()
	mod.addFunction(&Function{Name: "main", ArgCount: 0, LocalCount: 1, Code: code})

	interp := NewInterp(testContext(mod), 64, NewHeap())
	v, err := interp.Run("shapes", "main", nil)
	require.NoError(t, err)
	require.EqualValues(t, 42, v.Byte())
}

// TestInterpNewBytesConsumesLengthOperand exercises NEW_BYTES with its
// u16 length operand: pushing 2 bytes then NEW_BYTES 2 must pop exactly
// those two bytes into the allocated array, and the instruction stream
// must resynchronize correctly afterward (the following ARRAY_GET reads
// a real opcode, not a misdecoded length byte).
func TestInterpNewBytesConsumesLengthOperand(t *testing.T) {
	mod := newModule("bytes")
	code := (&asm{}).
		op(PUSH_BYTE).u8(0xAA).
		op(PUSH_BYTE).u8(0xBB).
		op(NEW_BYTES).u16(2).
		op(STORE_0).
		op(LOAD_0).
		op(ICONST_1).
		op(ARRAY_GET).
		op(RETURN).
		code()
	mod.addFunction(&Function{Name: "main", ArgCount: 0, LocalCount: 1, Code: code})

	interp := NewInterp(testContext(mod), 64, NewHeap())
	v, err := interp.Run("bytes", "main", nil)
	require.NoError(t, err)
	require.Equal(t, TagByte, v.Tag())
	require.EqualValues(t, 0xBB, v.Byte())
}

func TestInterpArithmeticOpcodesDispatch(t *testing.T) {
	mod := newModule("arith")
	code := (&asm{}).
		op(I_PUSH_BYTE).u8(1).
		op(I_PUSH_BYTE).u8(5).
		op(ISHL).
		op(RETURN).
		code()
	mod.addFunction(&Function{Name: "main", ArgCount: 0, LocalCount: 0, Code: code})

	interp := NewInterp(testContext(mod), 64, NewHeap())
	v, err := interp.Run("arith", "main", nil)
	require.NoError(t, err)
	require.Equal(t, int32(32), v.Integer())
}

func TestInterpHaltStopsExecution(t *testing.T) {
	mod := newModule("m")
	code := (&asm{}).
		op(I_PUSH_BYTE).u8(1).
		op(HALT).
		op(I_PUSH_BYTE).u8(99).
		op(RETURN).
		code()
	mod.addFunction(&Function{Name: "main", ArgCount: 0, LocalCount: 0, Code: code})

	interp := NewInterp(testContext(mod), 64, NewHeap())
	v, err := interp.Run("m", "main", nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, v.Byte())
}

func TestInterpPopOnEmptyStackErrors(t *testing.T) {
	mod := newModule("m")
	code := (&asm{}).op(POP).op(RETURN).code()
	mod.addFunction(&Function{Name: "main", ArgCount: 0, LocalCount: 0, Code: code})

	interp := NewInterp(testContext(mod), 64, NewHeap())
	_, err := interp.Run("m", "main", nil)
	require.Error(t, err)
	var vmErr *VMError
	require.ErrorAs(t, err, &vmErr)
	require.Equal(t, StackUnderflow, vmErr.Kind)
}
