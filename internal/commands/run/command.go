// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package run implements `mcrun run`: install the selected server and
// supervise it until it exits or is told to stop.
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tombee/mcrun/internal/commands/shared"
	"github.com/tombee/mcrun/internal/config"
	"github.com/tombee/mcrun/internal/lifecycle"
	"github.com/tombee/mcrun/internal/log"
	"github.com/tombee/mcrun/internal/metrics"
	"github.com/tombee/mcrun/internal/workspace"
	mcerrors "github.com/tombee/mcrun/pkg/errors"
)

type options struct {
	java            string
	minMemory       string
	maxMemory       string
	shutdownTimeout string
	acceptEULA      bool
	metricsAddr     string
}

// NewCommand creates the run command.
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Install the selected server version and run it",
		Long: `Run resolves the server version, installs its verified jar into the
working directory and starts it with the configured Java runtime.

Console input is forwarded to the server line by line. On SIGTERM or Ctrl-C
the stop command is sent and the server is given --shutdown-timeout to exit
before its process group is killed.`,
		Example: `  # Latest release in ./server, accepting the EULA
  mcrun run -d ./server --accept-eula

  # A pinned version with 2G-8G heap
  mcrun run --server-version 1.20.4 --min-memory 2G --max-memory 8G

  # Expose Prometheus metrics while the server runs
  mcrun run --metrics-addr 127.0.0.1:9225`,
		Annotations: map[string]string{"group": "server"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.java, "java", "", "Java executable (default: java)")
	cmd.Flags().StringVar(&opts.minMemory, "min-memory", "", "Initial heap size, e.g. 1G (default: 4096M)")
	cmd.Flags().StringVar(&opts.maxMemory, "max-memory", "", "Maximum heap size, e.g. 4G (default: 4096M)")
	cmd.Flags().StringVar(&opts.shutdownTimeout, "shutdown-timeout", "", "Time allowed for a graceful stop, e.g. 30s (default: 10s)")
	cmd.Flags().BoolVar(&opts.acceptEULA, "accept-eula", false, "Accept the Minecraft EULA by writing eula.txt")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}

// overrides turns the flags the user set into a config override.
func (o options) overrides(flags *pflag.FlagSet) (config.Override, error) {
	var timeout time.Duration
	if flags.Changed("shutdown-timeout") {
		d, err := config.ParseTimeout(o.shutdownTimeout)
		if err != nil {
			return nil, shared.NewUsageError("invalid --shutdown-timeout", err)
		}
		timeout = d
	}

	return func(c *config.Config) {
		if flags.Changed("java") {
			c.Server.Java = o.java
		}
		if flags.Changed("min-memory") {
			c.Server.MinMemory = o.minMemory
		}
		if flags.Changed("max-memory") {
			c.Server.MaxMemory = o.maxMemory
		}
		if flags.Changed("shutdown-timeout") {
			c.Server.ShutdownTimeout = timeout
		}
		if flags.Changed("accept-eula") {
			c.Server.AcceptEULA = o.acceptEULA
		}
		if flags.Changed("metrics-addr") {
			c.Metrics.Addr = o.metricsAddr
		}
	}, nil
}

func runServer(cmd *cobra.Command, opts options) error {
	override, err := opts.overrides(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := shared.LoadConfig(override)
	if err != nil {
		return err
	}

	logger, runID := shared.NewLogger(cfg, cmd.ErrOrStderr())
	if src := cfg.Source(); src != "" {
		logger.Debug("loaded config file", log.PathKey, src)
	}

	dir, err := workspace.Prepare(cfg.Directory)
	if err != nil {
		return err
	}

	pidFile := lifecycle.NewPIDFile(filepath.Join(dir, lifecycle.PIDFileName))
	if err := pidFile.Acquire(os.Getpid()); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Release(); err != nil {
			logger.Warn("failed to release pid file", log.PathKey, pidFile.Path(), log.Error(err))
		}
	}()

	// Registered before installing so a signal that lands between install
	// and spawn still reaches the supervisor.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(signals)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := install(ctx, cfg, dir, logger)
	if err != nil {
		if errors.Is(err, errInterrupted) {
			logger.Info("interrupted before the server started")
			return nil
		}
		return err
	}

	if err := ensureEULA(dir, cfg.Server.AcceptEULA, logger); err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		if _, err := metrics.Serve(metricsCtx, cfg.Metrics.Addr, logger); err != nil {
			return &mcerrors.ConfigError{Key: "metrics.addr", Reason: "cannot listen", Cause: err}
		}
	}

	events := lifecycle.NewEventLog(filepath.Join(dir, lifecycle.EventLogName), runID, res.Version.ID)
	sup := lifecycle.NewSupervisor(cfg.Supervisor(dir),
		lifecycle.WithConsole(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
		lifecycle.WithSignals(signals),
		lifecycle.WithEventLog(events),
		lifecycle.WithLogger(logger.With(log.VersionKey, res.Version.ID)),
	)

	outcome, err := sup.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("server finished", "outcome", outcome.String())
	return nil
}

var errInterrupted = errors.New("interrupted")

// install runs the resolve and fetch steps, abandoning them on SIGTERM or
// SIGINT.
func install(ctx context.Context, cfg *config.Config, dir string, logger *slog.Logger) (*shared.InstallResult, error) {
	installCtx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	client, err := shared.NewHTTPClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	res, err := shared.Install(installCtx, cfg, dir, client, logger)
	if err != nil && installCtx.Err() != nil && ctx.Err() == nil {
		return nil, errInterrupted
	}
	return res, err
}
