// Package cmd implements the recordsync command line.
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/grovetools/recordsync/cli"
	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/pkg/profiling"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/grovetools/recordsync/tui/theme"
	"github.com/grovetools/recordsync/version"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the recordsync command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"recordsync",
		"Mirror agent connection, credential and proof records",
	)
	root.Long = `Keeps read-only mirrors of an agent's records in sync with its event stream.

Records are read from the running daemon when there is one, otherwise from the
records directory directly.

Examples:
  # start the daemon in the foreground
  recordsync daemon start
  # completed connections as a table
  recordsync list connections --state completed
  # follow proof exchanges as they change
  recordsync watch proofs
  # where the time goes
  recordsync list credentials --timing`

	cli.SetVersionTemplate(root, version.GetInfo())
	profiling.NewCobraProfiler().Attach(root)

	root.AddCommand(cli.NewVersionCommand("recordsync"))
	root.AddCommand(NewDaemonCmd())
	root.AddCommand(NewListCmd())
	root.AddCommand(NewGetCmd())
	root.AddCommand(NewWatchCmd())
	root.AddCommand(NewEventsCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewPathsCmd())

	cli.ApplyStyledHelpRecursive(root)
	cli.SetStyledHelpWithExtras(root, printKinds)
	return root
}

func printKinds(w io.Writer, t *theme.Theme) {
	kinds := make([]string, 0, len(records.Types))
	for _, rt := range records.Types {
		kinds = append(kinds, rt.Kind())
	}
	fmt.Fprintln(w, "\n "+t.Muted.Render("Record kinds: "+strings.Join(kinds, ", ")))
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}

	if errors.GetCode(err) != "" {
		verbose, _ := cmd.Flags().GetBool("verbose")
		cli.NewErrorHandler(cmd.ErrOrStderr(), verbose).Handle(err)
	} else {
		cli.PrintError(cmd, err)
	}
	return 1
}
