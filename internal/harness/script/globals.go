package script

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// setupGlobals seeds a fresh runtime with the top-level program markers and
// the harness builtins
func setupGlobals(vm *goja.Runtime, env Env) error {
	out := &printer{vm: vm}
	loader := newModules(vm, env.Paths.List())

	globals := map[string]interface{}{
		"__name__": "__main__",
		"print":    out.line(env.Stdout),
		"sleep":    sleep,
		"require":  loader.requireFrom(""),
	}
	for name, v := range globals {
		if err := vm.Set(name, v); err != nil {
			return err
		}
	}

	console := vm.NewObject()
	console.Set("log", out.line(env.Stdout))
	console.Set("info", out.line(env.Stdout))
	console.Set("warn", out.line(env.Stderr))
	console.Set("error", out.line(env.Stderr))
	if err := vm.Set("console", console); err != nil {
		return err
	}

	process := vm.NewObject()
	process.Set("stdout", writerObject(vm, env.Stdout))
	process.Set("stderr", writerObject(vm, env.Stderr))
	if err := vm.Set("process", process); err != nil {
		return err
	}

	if err := vm.Set("sys", sysObject(vm, env)); err != nil {
		return err
	}
	return vm.Set("os", osObject(vm))
}

// printer formats values the way print shows them
type printer struct {
	vm *goja.Runtime
}

func (p *printer) line(w io.Writer) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = p.format(arg)
		}
		if _, err := io.WriteString(w, strings.Join(parts, " ")+"\n"); err != nil {
			panic(p.vm.NewGoError(err))
		}
		return goja.Undefined()
	}
}

func (p *printer) format(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return obj.String()
	}
	switch obj.ClassName() {
	case "Array", "Object":
		if s, err := obj.MarshalJSON(); err == nil {
			return string(s)
		}
	}
	return obj.String()
}

func writerObject(vm *goja.Runtime, w io.Writer) *goja.Object {
	obj := vm.NewObject()
	obj.Set("write", func(call goja.FunctionCall) goja.Value {
		n, err := io.WriteString(w, call.Argument(0).String())
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(n)
	})
	return obj
}

func sleep(ms int64) {
	if ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
}

func sysObject(vm *goja.Runtime, env Env) *goja.Object {
	paths := env.Paths
	sys := vm.NewObject()
	sys.Set("path", func() *goja.Object {
		return stringArray(vm, paths.List().Snapshot())
	})
	sys.Set("addPath", func(p string) bool {
		return paths.Append(p)
	})
	sys.Set("insertPath", func(p string) bool {
		return paths.InsertFront(p)
	})
	sys.Set("removePath", func(p string) bool {
		return paths.Remove(p)
	})
	sys.Set("nativeLibraries", func() *goja.Object {
		if env.Libraries == nil {
			return vm.NewArray()
		}
		return stringArray(vm, env.Libraries())
	})
	return sys
}

func stringArray(vm *goja.Runtime, items []string) *goja.Object {
	values := make([]interface{}, len(items))
	for i, s := range items {
		values[i] = s
	}
	return vm.NewArray(values...)
}

func osObject(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()
	obj.Set("getcwd", func() string {
		wd, err := os.Getwd()
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return wd
	})
	obj.Set("readFile", func(p string) string {
		data, err := os.ReadFile(p)
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("readFile: %w", err)))
		}
		return string(data)
	})
	obj.Set("writeFile", func(p, content string) {
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			panic(vm.NewGoError(fmt.Errorf("writeFile: %w", err)))
		}
	})
	return obj
}
