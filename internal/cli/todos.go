package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todostore/internal/client"
	"github.com/mesh-intelligence/todostore/internal/snapshot"
	"github.com/mesh-intelligence/todostore/pkg/types"
)

func (a *app) newClient() (*client.Client, error) {
	c, err := client.New(a.settings.Server, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid server: %w", err)
	}
	return c, nil
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the server is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			st, err := c.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("check server: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), st)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\nendpoints: %s\n", st.Message, a.settings.Server, strings.Join(st.Endpoints, ", "))
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List todos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			todos, err := c.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list todos: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), todos)
			}
			if len(todos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No todos")
				return nil
			}
			for _, t := range todos {
				printTodo(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var done bool
	cmd := &cobra.Command{
		Use:   "add <id> <text...>",
		Short: "Create a todo, or overwrite the todo with the same id",
		Long: `Add sends the todo to the server. If a todo with the same id exists its
text and completion flag are replaced.

Example:
  todostore add 1 buy milk
  todostore add 2 "file taxes" --done`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			saved, err := c.Upsert(cmd.Context(), types.Todo{
				ID:   id,
				Text: strings.Join(args[1:], " "),
				Done: done,
			})
			if err != nil {
				return fmt.Errorf("save todo: %w", err)
			}
			return a.printResult(cmd.OutOrStdout(), *saved)
		},
	}
	cmd.Flags().BoolVar(&done, "done", false, "mark the todo as completed")
	return cmd
}

func newDoneCmd(a *app) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a todo as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			saved, err := c.SetDone(cmd.Context(), id, !undo)
			if err != nil {
				return fmt.Errorf("update todo %d: %w", id, err)
			}
			return a.printResult(cmd.OutOrStdout(), *saved)
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the todo as not completed")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			if err := c.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete todo %d: %w", id, err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"deleted": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted todo %d\n", id)
			return nil
		},
	}
}

func newPushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push <file.jsonl>",
		Short: "Replace every todo on the server with a JSONL snapshot",
		Long: `Push reads one todo per line from the file and syncs the whole set to the
server. Todos on the server that are not in the file are removed. Malformed
lines are skipped with a warning.

Example:
  todostore push backup.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			todos, skipped, err := snapshot.ReadTodos(args[0])
			if err != nil {
				return err
			}
			if skipped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: skipped %d malformed line(s) in %s\n", skipped, args[0])
			}
			c, err := a.newClient()
			if err != nil {
				return err
			}
			msg, err := c.Sync(cmd.Context(), todos)
			if err != nil {
				return fmt.Errorf("sync todos: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"message": msg, "skipped": skipped})
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newPullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull <file.jsonl>",
		Short: "Write every todo on the server to a JSONL snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			todos, err := c.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list todos: %w", err)
			}
			if err := snapshot.WriteTodos(args[0], todos); err != nil {
				return sysErr("write snapshot: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"file": args[0], "count": len(todos)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d todos to %s\n", len(todos), args[0])
			return nil
		},
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid id %q: must be a non-negative integer", arg)
	}
	return id, nil
}

func (a *app) printResult(w io.Writer, t types.Todo) error {
	if a.flags.jsonMode {
		return printJSON(w, t)
	}
	printTodo(w, t)
	return nil
}

func printTodo(w io.Writer, t types.Todo) {
	mark := " "
	if t.Done {
		mark = "x"
	}
	fmt.Fprintf(w, "[%s] %d  %s\n", mark, t.ID, t.Text)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
