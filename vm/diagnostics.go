package gvm

import (
	"bytes"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/olekukonko/tablewriter"
)

// ReportError prints a VM error to w: the error's own message in red,
// followed by the interpreter's stack trace in the "At .../  ~..."
// format.
func ReportError(w io.Writer, err error, trace string) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(w, "Error: %s\n", err)
	if trace != "" {
		fmt.Fprint(w, trace)
	}
}

// ReportPanic renders a host-level panic (an interpreter invariant
// violation, not a well-formed VMError) with a Go-level call stack, so a
// bug in the VM itself is still diagnosable instead of looking like a
// silent crash.
func ReportPanic(w io.Writer, r any) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(w, "panic: %v\n", r)
	trace := stack.Trace().TrimRuntime()
	fmt.Fprintf(w, "%+v\n", trace)
}

// DumpValue spews a Value's raw tagged representation, used by the
// --debug REPL's inspect command.
func DumpValue(v Value) string {
	return spew.Sdump(v)
}

// Disassemble renders fn's bytecode as an aligned table: offset,
// opcode mnemonic, operand bytes. Used by the disasm CLI subcommand.
func Disassemble(w io.Writer, fn *Function) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"offset", "opcode", "bytes"})
	table.SetAutoWrapText(false)

	code := fn.Code
	for ip := 0; ip < len(code); {
		op := Opcode(code[ip])
		width := operandWidth(op)
		end := ip + 1 + width
		if end > len(code) {
			end = len(code)
		}
		table.Append([]string{
			fmt.Sprintf("%04d", ip),
			op.String(),
			fmt.Sprintf("% x", code[ip+1:end]),
		})
		ip = end
	}
	table.Render()
}

// operandWidth reports how many bytes follow an opcode's tag byte,
// so the disassembler can print each instruction on its own row.
func operandWidth(op Opcode) int {
	switch op {
	case PUSH_BYTE, I_PUSH_BYTE:
		return 1
	case I_PUSH_SHORT, LOAD, STORE, I_IFEQ, I_IFNEQ, I_IFGT, I_IFGE, I_IFLT, I_IFLE,
		IF_NULL, IFNOT_NULL, GOTO, LOADCONST, NEW_BYTES, NEW, GET_FIELD, SET_FIELD:
		return 2
	case IINC:
		return 6
	case CALL, TAILCALL, CALL_METHOD:
		return 3
	default:
		return 0
	}
}

// DumpHeap renders a summary table of every live heap cell: handle,
// kind, and a short description. Used by the --debug REPL's heap
// command.
func DumpHeap(w io.Writer, h *Heap) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"handle", "kind", "value"})
	table.SetAutoWrapText(false)

	for idx := range h.cells {
		c := &h.cells[idx]
		if c.kind == objFree {
			continue
		}
		var kind, desc string
		switch c.kind {
		case objString:
			kind, desc = "string", c.str
		case objArray:
			kind, desc = "array", fmt.Sprintf("len=%d", len(c.arr))
		case objDict:
			kind, desc = "dict", fmt.Sprintf("len=%d", len(c.dict))
		case objInstance:
			kind, desc = "instance", c.inst.Class.Name
		}
		table.Append([]string{fmt.Sprintf("%d", idx), kind, desc})
	}
	table.Render()
}

// formatToString runs a writer-based renderer (Disassemble, DumpHeap
// and the like) against a buffer and returns what it wrote as a string.
func formatToString(fn func(w io.Writer)) string {
	var buf bytes.Buffer
	fn(&buf)
	return buf.String()
}
