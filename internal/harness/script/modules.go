package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/searchpath"
)

// modules is a CommonJS loader bound to one runtime. Each run has its own
// cache, so a module is evaluated at most once per run.
type modules struct {
	vm    *goja.Runtime
	paths *searchpath.List
	cache map[string]*goja.Object
}

func newModules(vm *goja.Runtime, paths *searchpath.List) *modules {
	return &modules{
		vm:    vm,
		paths: paths,
		cache: make(map[string]*goja.Object),
	}
}

// requireFrom returns a require function resolving relative names against dir.
// An empty dir means the working directory.
func (m *modules) requireFrom(dir string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		path, err := m.resolve(name, dir)
		if err != nil {
			m.throw("ModuleNotFoundError", err.Error())
		}
		return m.load(path)
	}
}

// resolve maps a module name to a file. Relative and absolute names are
// looked up directly; bare names are searched in search path order.
func (m *modules) resolve(name, dir string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty module name", ErrModuleNotFound)
	}

	if filepath.IsAbs(name) || strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") {
		base := name
		if !filepath.IsAbs(name) {
			base = filepath.Join(dir, name)
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return "", err
				}
				base = filepath.Join(wd, name)
			}
		}
		if p, ok := probe(base); ok {
			return p, nil
		}
		return "", fmt.Errorf("%w: Cannot find module '%s'", ErrModuleNotFound, name)
	}

	searched := m.paths.Snapshot()
	for _, root := range searched {
		if p, ok := probe(filepath.Join(root, name)); ok {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: Cannot find module '%s' (searched %d paths)", ErrModuleNotFound, name, len(searched))
}

// probe tries base, base.js and base/index.js
func probe(base string) (string, bool) {
	for _, candidate := range []string{base, base + ".js", filepath.Join(base, "index.js")} {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

func (m *modules) load(path string) goja.Value {
	if mod, ok := m.cache[path]; ok {
		return mod.Get("exports")
	}

	src, err := os.ReadFile(path)
	if err != nil {
		m.throw("ModuleNotFoundError", err.Error())
	}

	// The wrapper shares the first line with the source so line numbers in
	// traces match the file.
	wrapped := "(function (exports, require, module, __filename, __dirname) {" + string(src) + "\n})"
	prg, err := goja.Compile(path, wrapped, false)
	if err != nil {
		m.throw("SyntaxError", err.Error())
	}

	fnVal, err := m.vm.RunProgram(prg)
	if err != nil {
		m.rethrow(err)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		m.throw("TypeError", "module wrapper is not a function: "+path)
	}

	module := m.vm.NewObject()
	exports := m.vm.NewObject()
	module.Set("exports", exports)
	module.Set("id", path)
	m.cache[path] = module

	_, err = fn(goja.Undefined(),
		exports,
		m.vm.ToValue(m.requireFrom(filepath.Dir(path))),
		module,
		m.vm.ToValue(path),
		m.vm.ToValue(filepath.Dir(path)),
	)
	if err != nil {
		delete(m.cache, path)
		m.rethrow(err)
	}
	return module.Get("exports")
}

// throw raises a JavaScript Error with the given name
func (m *modules) throw(name, msg string) {
	obj, err := m.vm.New(m.vm.Get("Error"), m.vm.ToValue(msg))
	if err != nil {
		panic(m.vm.NewGoError(fmt.Errorf("%s: %s", name, msg)))
	}
	obj.Set("name", name)
	panic(obj)
}

func (m *modules) rethrow(err error) {
	if ex, ok := err.(*goja.Exception); ok {
		panic(ex)
	}
	panic(m.vm.NewGoError(err))
}
