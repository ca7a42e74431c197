// Command gvm loads a Grape module file and runs it. Exit codes: 0 on
// a normal RETURN or HALT, 1 on a VM error (stack trace printed to
// stderr), 2 on a CLI usage error.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	gvm "gvm/vm"

	"gopkg.in/urfave/cli.v1"
)

func main() {
	app := cli.NewApp()
	app.Name = "gvm"
	app.Usage = "run Grape bytecode modules"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "entrypoint", Value: "main", Usage: "function to run in the entry module"},
		cli.BoolFlag{Name: "debug", Usage: "run under the interactive instruction-level debugger"},
		cli.IntFlag{Name: "gc-tick-threshold", Usage: "override the configured GC tick threshold (0 = use config)"},
		cli.StringFlag{Name: "config", Value: "gvm.toml", Usage: "path to an optional config file"},
	}

	app.Commands = []cli.Command{
		{
			Name:      "run",
			Usage:     "load and run a module",
			ArgsUsage: "<module>",
			Action:    runAction,
		},
		{
			Name:      "disasm",
			Usage:     "disassemble every function in a module",
			ArgsUsage: "<module>",
			Action:    disasmAction,
		},
	}
	app.Action = runAction

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

func runAction(c *cli.Context) error {
	moduleName := c.Args().First()
	if moduleName == "" {
		return cli.NewExitError("usage: gvm run <module>", 2)
	}

	cfg, err := gvm.LoadConfig(c.GlobalString("config"))
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	if threshold := c.GlobalInt("gc-tick-threshold"); threshold > 0 {
		cfg.GCTickThreshold = threshold
	}

	loader := gvm.NewLoader()
	ctx, err := loader.Load(moduleName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.NewExitError("", 1)
	}

	heap := gvm.NewHeapWithCapacity(cfg.HeapPrealloc)
	heap.SetThreshold(cfg.GCTickThreshold)
	interp := gvm.NewInterp(ctx, cfg.StackCapacity, heap)

	if c.GlobalBool("debug") {
		dbg := gvm.NewDebugger(os.Stdout)
		defer dbg.Close()
		interp.DebugHook = dbg.Before
	}

	entry := c.GlobalString("entrypoint")
	if entry == "" {
		entry = "main"
	}

	_, err = interp.Run(moduleName, entry, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		fmt.Fprint(os.Stderr, interp.StackTrace())
		return cli.NewExitError("", 1)
	}
	return nil
}

func disasmAction(c *cli.Context) error {
	moduleName := c.Args().First()
	if moduleName == "" {
		return cli.NewExitError("usage: gvm disasm <module>", 2)
	}

	path := moduleName
	if filepath.Ext(path) == "" {
		path = moduleName + ".grape"
	}
	f, err := os.Open(path)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer f.Close()

	mod, err := gvm.ReadModule(f)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	for _, fn := range mod.Functions() {
		fmt.Printf("function %s\n", fn.Name)
		gvm.Disassemble(os.Stdout, fn)
	}
	for _, class := range mod.Classes() {
		for _, fn := range class.Methods() {
			fmt.Printf("method %s.%s\n", class.Name, fn.Name)
			gvm.Disassemble(os.Stdout, fn)
		}
	}
	return nil
}
