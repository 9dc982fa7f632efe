package cmd

import (
	"github.com/grovetools/recordsync/cli"
	"github.com/grovetools/recordsync/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput lists the locations recordsync uses.
type PathsOutput struct {
	ConfigDir  string `json:"config_dir"`
	DataDir    string `json:"data_dir"`
	StateDir   string `json:"state_dir"`
	RuntimeDir string `json:"runtime_dir"`
	RecordsDir string `json:"records_dir"`
	Socket     string `json:"socket"`
	PidFile    string `json:"pid_file"`
}

// NewPathsCmd prints the XDG-based locations, honoring recordsync.yml overrides.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the directories and files recordsync uses",
		Long: `Print the directories and files recordsync uses as JSON.

Locations follow the XDG Base Directory variables; RECORDSYNC_HOME moves all
of them under one directory. The records directory, socket and pid file
reflect recordsync.yml when one is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), PathsOutput{
				ConfigDir:  paths.ConfigDir(),
				DataDir:    paths.DataDir(),
				StateDir:   paths.StateDir(),
				RuntimeDir: paths.RuntimeDir(),
				RecordsDir: cfg.Records.Dir,
				Socket:     cfg.Daemon.Socket,
				PidFile:    cfg.Daemon.PidFile,
			})
		},
	}
}
