package script

import (
	"io"
	"runtime/debug"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/searchpath"
)

// Engine compiles and runs script bodies
type Engine struct {
	config Config
}

// New creates an engine
func New(config Config) *Engine {
	if config.SourceName == "" {
		config.SourceName = SourceName
	}
	return &Engine{config: config}
}

// Compile parses code as a standalone program
func (e *Engine) Compile(code string) (*goja.Program, error) {
	return goja.Compile(e.config.SourceName, code, false)
}

// Run compiles env.Code and executes it in a fresh runtime. Go panics raised
// while the script runs are returned as *PanicError.
func (e *Engine) Run(env Env) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()

	if env.Stdout == nil {
		env.Stdout = io.Discard
	}
	if env.Stderr == nil {
		env.Stderr = io.Discard
	}
	if env.Paths == nil {
		env.Paths = searchpath.NewJournal(searchpath.New())
	}

	prg, err := e.Compile(env.Code)
	if err != nil {
		return err
	}

	vm := goja.New()
	if e.config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(e.config.MaxCallStackSize)
	}
	if err := setupGlobals(vm, env); err != nil {
		return err
	}

	_, err = vm.RunProgram(prg)
	return err
}
