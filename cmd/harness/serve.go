package main

import (
	"context"
	"io"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/harness/internal/infrastructure/server"
)

func serveCommand(ctx context.Context, args []string, stderr io.Writer) error {
	var flags configFlags
	var port, host string
	var dev bool

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	flags.add(fs)
	fs.StringVarP(&port, "port", "p", "", "listen port (default $PORT or 8000)")
	fs.StringVar(&host, "host", "", "listen host (default $HOST or 0.0.0.0)")
	fs.BoolVar(&dev, "dev", false, "development mode: debug console logs")
	if done, err := parse(fs, args, stderr); done {
		return err
	}

	cfg, err := flags.load(fs)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, logger, nil)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}
	defer srv.Close()

	return srv.Run(ctx)
}
