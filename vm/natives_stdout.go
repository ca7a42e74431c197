package gvm

import (
	"fmt"
	"os"
)

// stdOutModule builds the std:out built-in: println/print/debug/eprintln,
// each a single-argument native writing to stdout (or stderr for
// eprintln) using the display/debug formatting rules in format.go.
func stdOutModule() *Module {
	m := newModule("std:out")

	m.addFunction(&Function{Name: "println", ArgCount: 1, Native: func(i *Interp, args []Value) (Value, error) {
		fmt.Fprintln(os.Stdout, DisplayValue(i.Heap, args[0]))
		return Null, nil
	}})
	m.addFunction(&Function{Name: "print", ArgCount: 1, Native: func(i *Interp, args []Value) (Value, error) {
		fmt.Fprint(os.Stdout, DisplayValue(i.Heap, args[0]))
		return Null, nil
	}})
	m.addFunction(&Function{Name: "debug", ArgCount: 1, Native: func(i *Interp, args []Value) (Value, error) {
		fmt.Fprintln(os.Stdout, DebugValue(args[0]))
		return Null, nil
	}})
	m.addFunction(&Function{Name: "eprintln", ArgCount: 1, Native: func(i *Interp, args []Value) (Value, error) {
		fmt.Fprintln(os.Stderr, DisplayValue(i.Heap, args[0]))
		return Null, nil
	}})

	return m
}
