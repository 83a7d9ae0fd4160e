package main

import (
	"io"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/logging"
)

func workerCommand(stdin io.Reader, stdout, stderr io.Writer) error {
	logger := logging.NewOrNop(logging.WorkerConfig())
	defer logger.Sync()

	if code := harness.RunWorker(stdin, stdout, stderr, logger.Logger); code != harness.WorkerExitCompleted {
		return exitError{code: code}
	}
	return nil
}
