package gvm

// builtinModules returns the VM's pre-registered native modules,
// available under their names (std:out, file, tcp) without ever being
// read from disk — the Loader seeds these into its module table before
// resolving any entrypoint.
func builtinModules() []*Module {
	return []*Module{
		stdOutModule(),
		fileModule(),
		tcpModule(),
	}
}
