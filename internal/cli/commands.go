package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/querydesk/internal/remote"
	"github.com/JonMunkholm/querydesk/internal/workspace"
)

// withApp opens the workspace around fn and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(a *app) error) (err error) {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

func newTablesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the uploaded tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.ws.RefreshTables(cmd.Context()); err != nil {
					return err
				}
				return renderTables(cmd.OutOrStdout(), a.ws.Snapshot().Tables, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json, csv")
	return cmd
}

func newSchemaCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "schema <table-id>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				ctx := cmd.Context()
				// the list only supplies the display name
				_ = a.ws.RefreshTables(ctx)

				if err := a.ws.SelectTable(ctx, args[0]); err != nil {
					return err
				}
				s := a.ws.Snapshot()
				if s.Schema == nil || s.Selected == nil {
					return fmt.Errorf("schema of %q: %w", args[0], workspace.ErrUnknownTable)
				}
				return renderSchema(cmd.OutOrStdout(), s.Selected.Name, *s.Schema, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json")
	return cmd
}

func newQueryCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question in plain language",
		Example: `  querydesk query "total sales by region"
  querydesk query "top 5 customers" --format csv > top.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				ctx := cmd.Context()
				if err := a.ws.LoadHistory(ctx); err != nil {
					return err
				}
				res, err := a.ws.SubmitQuery(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return renderResult(cmd.OutOrStdout(), res, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json, csv")
	return cmd
}

func newUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a CSV or Excel file as a new table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				stop := reportProgress(cmd.ErrOrStderr(), a.ws)
				res, err := a.ws.StartUpload(cmd.Context(), remote.File{
					Name:        filepath.Base(args[0]),
					ContentType: mime.TypeByExtension(filepath.Ext(args[0])),
					Size:        info.Size(),
					Reader:      f,
				})
				stop()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%d rows)\n", res.TableName, res.RowCount)
				return nil
			})
		},
	}
}

// reportProgress prints upload percentages as they change until stop is called.
func reportProgress(w io.Writer, ws *workspace.Orchestrator) (stop func()) {
	updates := ws.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		last := -1
		for range updates {
			u := ws.Snapshot().Upload
			if u.Status != workspace.UploadInProgress || u.ProgressPercent == last {
				continue
			}
			last = u.ProgressPercent
			_, _ = fmt.Fprintf(w, "\ruploading %s: %3d%%", u.FileName, u.ProgressPercent)
		}
		if last >= 0 {
			_, _ = fmt.Fprintln(w)
		}
	}()

	return func() {
		ws.Unsubscribe(updates)
		<-done
	}
}

func newDeleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <table-id>",
		Short: "Delete a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm := workspace.Confirmer(promptConfirmer)
			if yes {
				confirm = workspace.AlwaysConfirm
			}

			return withApp(cmd, func(a *app) error {
				// nothing is fetched before the prompt; it names the table by id
				if err := a.ws.DeleteTable(cmd.Context(), args[0], confirm); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newHistoryCommand() *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				ctx := cmd.Context()
				if err := a.ws.LoadHistory(ctx); err != nil {
					return err
				}
				if clearAll {
					return a.ws.ClearHistory(ctx)
				}

				entries := a.ws.History()
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no history)")
					return nil
				}
				for i, e := range entries {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, e)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Forget all past questions")
	return cmd
}
