package gvm

// Context is the read-only view of everything the Loader resolved: every
// module reachable from an entrypoint, and every class registered across
// all of them under its own (module-independent) namespace. The
// interpreter only ever sees a Context, never a Loader, once loading is
// complete. Plain maps back both registries since Go's garbage
// collector already owns the lifetime of every Module and Class value.
type Context struct {
	modules map[string]*Module
	classes map[string]*Class
}

func newContext(modules map[string]*Module, classes map[string]*Class) *Context {
	return &Context{modules: modules, classes: classes}
}

func (c *Context) Module(name string) (*Module, error) {
	m, ok := c.modules[name]
	if !ok {
		return nil, newErrf(ModuleNotFound, "%s", name)
	}
	return m, nil
}

func (c *Context) Class(name string) (*Class, error) {
	cl, ok := c.classes[name]
	if !ok {
		return nil, newErrf(ClassNotFound, "%s", name)
	}
	return cl, nil
}

// Function resolves a function qualified by module name, returning
// FunctionNotFound if the module exists but lacks it.
func (c *Context) Function(module, name string) (*Function, error) {
	m, err := c.Module(module)
	if err != nil {
		return nil, err
	}
	f, ok := m.Function(name)
	if !ok {
		return nil, newErrf(FunctionNotFound, "%s:%s", module, name)
	}
	return f, nil
}
