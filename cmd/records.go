package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/recordsync/cli"
	"github.com/grovetools/recordsync/logging"
	"github.com/grovetools/recordsync/pkg/daemon"
	"github.com/grovetools/recordsync/pkg/events"
	"github.com/grovetools/recordsync/pkg/mirror"
	"github.com/grovetools/recordsync/pkg/profiling"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/grovetools/recordsync/tui"
	"github.com/grovetools/recordsync/tui/components/table"
	"github.com/grovetools/recordsync/tui/keymap"
	"github.com/grovetools/recordsync/tui/recordview"
	"github.com/grovetools/recordsync/tui/theme"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// session is a client plus the mirror of one record kind reading from it.
type session struct {
	client daemon.Client
	view   mirror.View
}

func openSession(cmd *cobra.Command, kind records.Type) (*session, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	connect := profiling.Start("connect")
	client, err := daemon.New(cfg)
	connect.Stop()
	if err != nil {
		return nil, err
	}

	provider := mirror.NewProvider(
		mirror.WithSavedEvents(cfg.Sync.SavedEvents()),
		mirror.WithLogger(cli.GetLogger(cmd, "mirror")),
	)
	view, err := provider.Kind(kind)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &session{client: client, view: view}, nil
}

func (s *session) Close() {
	s.view.Close()
	s.client.Close()
}

func parseKindArg(args []string) (records.Type, error) {
	if len(args) == 0 {
		return "", nil
	}
	return records.ParseKind(args[0])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func isInteractive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewListCmd prints the mirrored records of one kind.
func NewListCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list KIND",
		Short: "List mirrored records of one kind",
		Long: `List the records of one kind (connections, credentials or proofs).

Examples:
  recordsync list connections
  recordsync list proofs --state done --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParseKind(args[0])
			if err != nil {
				return err
			}

			sess, err := openSession(cmd, kind)
			if err != nil {
				return err
			}
			defer sess.Close()

			load := profiling.Start("mirror.start")
			err = sess.view.Start(cmd.Context(), sess.client)
			load.Stop()
			if err != nil {
				return err
			}

			var items []records.Record
			if state != "" {
				items = sess.view.Filter(state)
			} else {
				items = sess.view.Snapshot().Items
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return writeJSON(out, items)
			}
			fmt.Fprint(out, renderList(kind, items, terminalWidth()))
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Only show records in this state")
	return cmd
}

func renderList(kind records.Type, items []records.Record, width int) string {
	t := theme.DefaultTheme
	if len(items) == 0 {
		return t.Muted.Render(fmt.Sprintf("No %s found.", kind.Kind())) + "\n"
	}

	rows := recordview.Rows(items)
	for _, row := range rows {
		row[1] = t.RenderState(row[1])
	}
	return table.NewBuilder().
		WithHeaders(recordview.Columns(kind)...).
		WithRows(rows...).
		WithWidth(width).
		String() + "\n"
}

// NewGetCmd prints one record.
func NewGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KIND ID",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParseKind(args[0])
			if err != nil {
				return err
			}
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := daemon.New(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			rec, err := client.GetRecord(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return writeJSON(out, rec)
			}
			details, err := recordview.Details(rec)
			if err != nil {
				return err
			}
			t := theme.DefaultTheme
			fmt.Fprintf(out, "%s %s\n", t.Bold.Render(kind.Kind()+"/"+rec.RecordID()), t.RenderState(rec.RecordState()))
			fmt.Fprint(out, details)
			return nil
		},
	}
}

// NewWatchCmd follows one kind live. On a terminal it opens the interactive view; otherwise, or
// with --json, every change is written as one JSON line.
func NewWatchCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "watch KIND",
		Short: "Follow the records of one kind as they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParseKind(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := openSession(cmd, kind)
			if err != nil {
				return err
			}
			defer sess.Close()

			updates, unwatch, err := recordview.FollowView(sess.view)
			if err != nil {
				return err
			}
			defer unwatch()

			logger := cli.GetLogger(cmd, "watch")
			go func() {
				if err := sess.view.Start(ctx, sess.client); err != nil {
					logger.WithError(err).Warn("Mirror did not start")
				}
			}()

			if cli.GetOptions(cmd).JSONOutput || !isInteractive() {
				return streamSnapshots(ctx, cmd.OutOrStdout(), updates, state)
			}
			return runWatchTUI(ctx, kind, updates, state)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Only show records in this state")
	return cmd
}

func streamSnapshots(ctx context.Context, w io.Writer, updates <-chan mirror.Snapshot, state string) error {
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			snap.Items = recordview.FilterState(snap.Items, state)
			if err := enc.Encode(snap); err != nil {
				return err
			}
		}
	}
}

func runWatchTUI(ctx context.Context, kind records.Type, updates <-chan mirror.Snapshot, state string) error {
	tui.InitializeTUI()

	// The view owns the screen; log lines would tear it.
	restore := logging.SetGlobalOutput(io.Discard)
	defer restore()

	model := recordview.New(kind, updates,
		recordview.WithStateFilter(state),
		recordview.WithKeyOverrides(keymap.LoadOverrides()),
	)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// NewEventsCmd prints the daemon's event stream.
func NewEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events [KIND]",
		Short: "Print record events from the running daemon",
		Long: `Print every record event the daemon's agent publishes, optionally for one kind.

Examples:
  recordsync events
  recordsync events credentials --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args)
			if err != nil {
				return err
			}
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := daemon.Connect(cfg.Daemon.Socket)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stream, err := client.StreamEvents(ctx, kind)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			jsonOut := cli.GetOptions(cmd).JSONOutput
			enc := json.NewEncoder(out)
			for msg := range stream {
				if jsonOut {
					if err := enc.Encode(msg); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintln(out, formatEvent(msg))
			}
			return nil
		},
	}
}

func formatEvent(msg events.Message) string {
	t := theme.DefaultTheme
	ts := t.Muted.Render(msg.Timestamp.Local().Format("15:04:05"))
	e, err := msg.Event()
	if err != nil {
		return fmt.Sprintf("%s %s %s %s", ts, msg.Type, msg.RecordType.Kind(), t.Error.Render(err.Error()))
	}
	return fmt.Sprintf("%s %-13s %-11s %s %s",
		ts, msg.Type, e.RecordType().Kind(), e.Record.RecordID(), t.RenderState(e.Record.RecordState()))
}
