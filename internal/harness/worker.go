package harness

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/native"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/script"
	"github.com/GriffinCanCode/AgentOS/harness/internal/harness/searchpath"
)

// Worker exit codes
const (
	WorkerExitCompleted = 0
	WorkerExitFailed    = 1
	WorkerExitProtocol  = 2
)

// RunWorker reads one request from stdin, runs it with the real output
// streams and returns the process exit code
func RunWorker(stdin io.Reader, stdout, stderr io.Writer, logger *zap.Logger) (code int) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		fmt.Fprintf(stderr, "worker: read request: %v\n", err)
		return WorkerExitProtocol
	}
	var req workerRequest
	if err := sonic.Unmarshal(data, &req); err != nil {
		fmt.Fprintf(stderr, "worker: decode request: %v\n", err)
		return WorkerExitProtocol
	}

	defer func() {
		if rec := recover(); rec != nil {
			_, _ = io.WriteString(stderr, script.Diagnose(&script.PanicError{Value: rec, Stack: debug.Stack()}))
			code = WorkerExitFailed
		}
	}()

	p := newPipeline(logger, nopObserver{}, script.New(script.DefaultConfig()), searchpath.New(),
		native.NewRegistry(), nil, req.Native, req.BaseSearchPaths)
	err = p.run(Request{
		RunID:            req.RunID,
		Code:             req.Code,
		SearchPaths:      CoercePaths(req.SearchPaths),
		WorkingDirectory: req.WorkingDirectory,
	}, stdout, stderr)
	if err != nil {
		_, _ = io.WriteString(stderr, script.Diagnose(err))
		return WorkerExitFailed
	}
	return WorkerExitCompleted
}
