package cmd

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/recordsync/cli"
	"github.com/grovetools/recordsync/config"
	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/internal/agentfs"
	"github.com/grovetools/recordsync/internal/daemon/engine"
	"github.com/grovetools/recordsync/internal/daemon/pidfile"
	"github.com/grovetools/recordsync/internal/daemon/server"
	"github.com/grovetools/recordsync/internal/daemon/store"
	"github.com/grovetools/recordsync/logging"
	"github.com/grovetools/recordsync/pkg/agent"
	"github.com/grovetools/recordsync/pkg/daemon"
	"github.com/grovetools/recordsync/pkg/mirror"
	"github.com/grovetools/recordsync/pkg/process"
	"github.com/grovetools/recordsync/pkg/profiling"
	"github.com/grovetools/recordsync/tui/components/table"
	"github.com/grovetools/recordsync/tui/theme"
	"github.com/grovetools/recordsync/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// NewDaemonCmd returns the daemon command with its subcommands.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run or control the recordsync daemon",
		Long:  "The daemon loads the records directory once, keeps the mirrors current and serves them over a unix socket.",
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cli.GetLogger(cmd, "recordsyncd")

			if err := pidfile.Acquire(cfg.Daemon.PidFile); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() {
				if err := pidfile.Release(cfg.Daemon.PidFile); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			d, err := newDaemon(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.WithField("pid", os.Getpid()).Info("Starting daemon")
			return d.run(ctx)
		},
	}
}

// recordsDaemon is the wiring of one daemon process: agent, directory feed, mirrors and server.
type recordsDaemon struct {
	cfg      *config.Config
	logger   *logrus.Entry
	provider *mirror.Provider
	store    *store.Store
	engine   *engine.Engine
	server   *server.Server
}

func newDaemon(cfg *config.Config, logger *logrus.Entry) (*recordsDaemon, error) {
	defer profiling.Start("daemon.wire").Stop()

	a := agent.New()
	feed, err := agentfs.New(a, agentfs.Options{
		Dir:      cfg.Records.Dir,
		Ignore:   cfg.Records.Ignore,
		Debounce: cfg.Records.Debounce,
		Logger:   logging.NewLogger("agentfs"),
	})
	if err != nil {
		return nil, err
	}

	provider := mirror.NewProvider(
		mirror.WithSavedEvents(cfg.Sync.SavedEvents()),
		mirror.WithLogger(logging.NewLogger("mirror")),
	)
	st := store.New(a, provider, logger)
	eng := engine.New(st, logger)
	eng.Register(feed)

	srv := server.New(logger)
	srv.SetEngine(eng)
	srv.SetRunningConfig(&server.RunningConfig{
		RecordsDir:         feed.Dir(),
		Debounce:           cfg.Records.Debounce,
		IncludeSavedEvents: cfg.Sync.SavedEvents(),
		Socket:             cfg.Daemon.Socket,
		PID:                os.Getpid(),
		StartedAt:          time.Now(),
		Version:            version.GetInfo().Version,
	})

	return &recordsDaemon{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		store:    st,
		engine:   eng,
		server:   srv,
	}, nil
}

// run serves until ctx is done or the engine or server fails.
func (d *recordsDaemon) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		if err := d.engine.Start(ctx); err != nil {
			errCh <- fmt.Errorf("engine error: %w", err)
		}
	}()

	// Clients must not connect before the mirrors hold a snapshot.
	var runErr error
	select {
	case <-d.engine.Ready():
		go func() {
			if err := d.server.ListenAndServe(d.cfg.Daemon.Socket); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server error: %w", err)
			}
		}()
		d.logger.WithField("socket", d.cfg.Daemon.Socket).Info("Mirrors ready, serving")

		select {
		case <-ctx.Done():
			d.logger.Info("Received stop signal")
		case runErr = <-errCh:
			d.logger.WithError(runErr).Error("Daemon stopping")
		}
	case <-ctx.Done():
		d.logger.Info("Received stop signal")
	case runErr = <-errCh:
		d.logger.WithError(runErr).Error("Daemon stopping")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Errorf("Server shutdown error: %v", err)
	}
	d.store.Close()
	d.provider.Close()
	_ = os.Remove(d.cfg.Daemon.Socket)

	return runErr
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			running, pid, err := pidfile.IsRunning(cfg.Daemon.PidFile)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}

			stopped, err := process.Terminate(pid, shutdownTimeout)
			if err != nil {
				return fmt.Errorf("failed to stop process %d: %w", pid, err)
			}
			if !stopped {
				return fmt.Errorf("daemon (PID %d) did not exit within %s", pid, shutdownTimeout)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Stopped daemon (PID %d)\n", theme.RenderStatus("success", theme.IconSuccess), pid)
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running and what it serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			running, pid, err := pidfile.IsRunning(cfg.Daemon.PidFile)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				return errors.DaemonNotRunning(cfg.Daemon.Socket)
			}

			client, err := daemon.Connect(cfg.Daemon.Socket)
			if err != nil {
				return err
			}
			defer client.Close()

			rc, err := client.RunningConfig(cmd.Context())
			if err != nil {
				return err
			}
			rc["pid"] = pid

			if cli.GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rc)
			}

			fmt.Fprintln(cmd.OutOrStdout(), theme.RenderStatus("success", "Running"))
			fmt.Fprintln(cmd.OutOrStdout(), table.StatusTable(statusRows(rc)))
			return nil
		},
	}
}

func statusRows(rc map[string]interface{}) [][]string {
	fields := []struct{ label, key string }{
		{"PID", "pid"},
		{"Version", "version"},
		{"Socket", "socket"},
		{"Records", "records_dir"},
		{"Saved events", "include_saved_events"},
		{"Subscribers", "subscribers"},
		{"Started", "started_at"},
	}
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		v, ok := rc[f.key]
		if !ok {
			continue
		}
		rows = append(rows, []string{f.label, formatStatusValue(v)})
	}
	return rows
}

func formatStatusValue(v interface{}) string {
	switch val := v.(type) {
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
