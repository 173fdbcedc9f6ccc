// Package cli implements the todostore command-line interface: the API
// server, storage initialization, and client commands that talk to a
// running server.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todostore/internal/client"
	"github.com/mesh-intelligence/todostore/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	server    string
	jsonMode  bool
}

// app is the state shared by one command tree.
type app struct {
	flags    rootFlags
	settings *settings
}

// NewRootCmd creates the top-level "todostore" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "todostore",
		Short: "Persistence API for a todo list",
		Long:  "Todostore serves a small HTTP API that stores todo items in postgres or sqlite,\nand ships client commands for talking to a running server.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			s, err := loadSettings(cmd, a.flags)
			if err != nil {
				return err
			}
			a.settings = s
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.todostore)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.todostore-db)")
	pf.StringVar(&a.flags.server, "server", "", "server URL for client commands (default: "+defaultServer+")")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newAddCmd(a))
	root.AddCommand(newDoneCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newPushCmd(a))
	root.AddCommand(newPullCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// systemError marks failures of the environment (filesystem, database,
// network) as opposed to bad input.
type systemError struct {
	err error
}

func (e *systemError) Error() string { return e.err.Error() }
func (e *systemError) Unwrap() error { return e.err }

func sysErr(format string, args ...any) error {
	return &systemError{err: fmt.Errorf(format, args...)}
}

// exitCode maps err to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var se *systemError
	if errors.As(err, &se) || types.IsConnError(err) {
		return exitSysError
	}
	var ae *client.APIError
	if errors.As(err, &ae) && ae.StatusCode >= 500 {
		return exitSysError
	}
	return exitUserError
}
