package gvm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the closed set of error kinds the VM can signal, per the error
// taxonomy: StackUnderflow, TypeMismatch, DivideByZero, IndexOutOfBounds,
// NullDereference, ModuleNotFound, ModuleAlreadyExists, FunctionNotFound,
// ClassNotFound, ClassAlreadyExists, FieldNotFound, InvalidConstantPoolEntry,
// MalformedModule, UnknownOpcode, IoError.
type Kind int

const (
	StackUnderflow Kind = iota
	TypeMismatch
	DivideByZero
	IndexOutOfBounds
	NullDereference
	ModuleNotFound
	ModuleAlreadyExists
	FunctionNotFound
	ClassNotFound
	ClassAlreadyExists
	FieldNotFound
	InvalidConstantPoolEntry
	MalformedModule
	UnknownOpcode
	IoError
)

func (k Kind) String() string {
	switch k {
	case StackUnderflow:
		return "stack underflow"
	case TypeMismatch:
		return "type mismatch"
	case DivideByZero:
		return "divide by zero"
	case IndexOutOfBounds:
		return "index out of bounds"
	case NullDereference:
		return "null dereference"
	case ModuleNotFound:
		return "module not found"
	case ModuleAlreadyExists:
		return "module already exists"
	case FunctionNotFound:
		return "function not found"
	case ClassNotFound:
		return "class not found"
	case ClassAlreadyExists:
		return "class already exists"
	case FieldNotFound:
		return "field not found"
	case InvalidConstantPoolEntry:
		return "invalid constant pool entry"
	case MalformedModule:
		return "malformed module"
	case UnknownOpcode:
		return "unknown opcode"
	case IoError:
		return "io error"
	default:
		return "?unknown error?"
	}
}

// VMError is the VM's own result-type discipline: every fallible
// interpreter step returns one of these rather than panicking. Cause wraps
// a host-level error (file I/O, network) via github.com/pkg/errors so the
// original error chain survives for diagnostics while Kind stays a closed
// taxonomy the dispatch loop can switch on.
type VMError struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *VMError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return e.Kind.String()
}

func (e *VMError) Unwrap() error { return e.Cause }

func newErr(kind Kind, detail string) *VMError {
	return &VMError{Kind: kind, Detail: detail}
}

func newErrf(kind Kind, format string, args ...any) *VMError {
	return &VMError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// wrapIO lifts a host I/O failure into an IoError, keeping the cause chain
// via pkg/errors: %+v on the VMError's Cause prints the original error
// plus a stack trace captured where wrapIO was called.
func wrapIO(err error, context string) *VMError {
	if err == nil {
		return nil
	}
	return &VMError{Kind: IoError, Detail: context, Cause: errors.Wrap(err, context)}
}

func invalidEntry(index int) *VMError {
	return newErrf(InvalidConstantPoolEntry, "index %d", index)
}

func unknownOpcode(op byte) *VMError {
	return newErrf(UnknownOpcode, "0x%02X", op)
}
