package gvm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

// Debugger drives the --debug REPL: single-instruction stepping (n/next),
// free-running until a breakpoint (r/run), setting a breakpoint by
// instruction pointer (b <ip>), and inspecting a local slot
// (inspect <slot>), using github.com/peterh/liner for line editing and
// history.
type Debugger struct {
	line        *liner.State
	breakpoints map[int]bool
	stepping    bool
	out         io.Writer
}

func NewDebugger(out io.Writer) *Debugger {
	d := &Debugger{
		line:        liner.NewLiner(),
		breakpoints: map[int]bool{},
		stepping:    true,
		out:         out,
	}
	d.line.SetCtrlCAborts(true)
	return d
}

func (d *Debugger) Close() error {
	return d.line.Close()
}

// Before is installed as the Interp's DebugHook and runs ahead of every
// bytecode instruction. It only prompts when single-stepping or when the
// frame's current ip has a breakpoint set.
func (d *Debugger) Before(i *Interp, frame *callFrame) error {
	if !d.stepping && !d.breakpoints[frame.ip] {
		return nil
	}

	for {
		prompt := fmt.Sprintf("%s:%s%%%d (gvm) ", frame.owner.unitName(), frame.function, frame.ip)
		input, err := d.line.Prompt(prompt)
		if err != nil {
			return wrapIO(err, "debugger input")
		}
		d.line.AppendHistory(input)

		fields := strings.Fields(input)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "n", "next":
			d.stepping = true
			return nil
		case "r", "run":
			d.stepping = false
			return nil
		case "b", "break":
			if len(fields) < 2 {
				fmt.Fprintln(d.out, "usage: b <ip>")
				continue
			}
			ip, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Fprintln(d.out, "bad ip:", fields[1])
				continue
			}
			d.breakpoints[ip] = true
			fmt.Fprintf(d.out, "breakpoint set at %d\n", ip)
		case "inspect":
			if len(fields) < 2 {
				fmt.Fprintln(d.out, "usage: inspect <slot>")
				continue
			}
			slot, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Fprintln(d.out, "bad slot:", fields[1])
				continue
			}
			v, err := i.Locals.Load(uint16(slot))
			if err != nil {
				fmt.Fprintln(d.out, err)
				continue
			}
			fmt.Fprint(d.out, DumpValue(v))
		case "stack":
			fmt.Fprintf(d.out, "%d operands live\n", i.Stack.Len())
		case "heap":
			DumpHeap(d.out, i.Heap)
		default:
			fmt.Fprintln(d.out, "commands: n|next, r|run, b|break <ip>, inspect <slot>, stack, heap")
		}
	}
}
