package gvm

import (
	"os"
	"strings"
)

// modulePath turns a colon-qualified module name ("std:out") into the
// on-disk path ("std/out.grape") the loader reads it from. Built-in
// modules never reach this: they are pre-registered before any path is
// resolved.
func modulePath(name string) string {
	return strings.ReplaceAll(name, ":", "/") + ".grape"
}

// Loader resolves an entrypoint module and everything it transitively
// references into a read-only Context. It traverses a worklist fed by the
// module named in each PoolModule, PoolFunction, PoolClass and PoolField
// entry discovered while decoding each module, memoizing
// already-loaded module names so a diamond dependency is read once.
type Loader struct {
	modules map[string]*Module
	classes map[string]*Class
}

// NewLoader creates a Loader pre-seeded with the std:out, file and tcp
// built-in modules before any file is opened.
func NewLoader() *Loader {
	l := &Loader{
		modules: map[string]*Module{},
		classes: map[string]*Class{},
	}
	for _, m := range builtinModules() {
		l.modules[m.Name] = m
	}
	return l
}

// Load reads entrypoint and every module it references (directly or
// transitively), producing the Context the interpreter runs against.
func (l *Loader) Load(entrypoint string) (*Context, error) {
	worklist := []string{entrypoint}

	for len(worklist) > 0 {
		name := worklist[0]
		worklist = worklist[1:]

		if _, ok := l.modules[name]; ok {
			continue
		}

		m, err := l.readModule(name)
		if err != nil {
			return nil, err
		}
		l.modules[name] = m

		for _, c := range m.Classes() {
			if existing, ok := l.classes[c.Name]; ok && existing != c {
				return nil, newErrf(ClassAlreadyExists, "%s", c.Name)
			}
			l.classes[c.Name] = c
		}

		for _, e := range m.Pool {
			if e.Tag == PoolModule {
				worklist = append(worklist, e.Module)
			} else if e.Tag == PoolFunction || e.Tag == PoolClass || e.Tag == PoolField {
				worklist = append(worklist, e.Module)
			}
		}
	}

	return newContext(l.modules, l.classes), nil
}

func (l *Loader) readModule(name string) (*Module, error) {
	path := modulePath(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapIO(err, "open "+path)
	}
	defer f.Close()

	m, err := ReadModule(f)
	if err != nil {
		return nil, err
	}
	if m.Name != name {
		return nil, newErrf(MalformedModule, "expected module %q, file declares %q", name, m.Name)
	}
	return m, nil
}

// AddModule registers an already-decoded module (used by callers that
// construct modules in memory, e.g. tests), rejecting a name collision
// with ModuleAlreadyExists rather than silently overwriting.
func (l *Loader) AddModule(m *Module) error {
	if _, exists := l.modules[m.Name]; exists {
		return newErrf(ModuleAlreadyExists, "%s", m.Name)
	}
	l.modules[m.Name] = m
	for _, c := range m.Classes() {
		if _, exists := l.classes[c.Name]; exists {
			return newErrf(ClassAlreadyExists, "%s", c.Name)
		}
		l.classes[c.Name] = c
	}
	return nil
}
