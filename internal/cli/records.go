package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/histories/internal/history"
	"github.com/roach88/histories/internal/server"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the ten most recent records",
		Long: `Print up to ten records, most recent created_at first.

Example:
  histories list --db ./histories.db
  histories list --format json`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withBackend(cmd.Context(), func(b history.Backend) error {
				records, err := b.ListRecent(cmd.Context())
				if err != nil {
					return wrapStoreError("failed to list records", err)
				}
				if rootOpts.Format == "json" {
					return rootOpts.formatter(cmd).Success(server.NewRecordResponses(records), "")
				}
				return writeRecordTable(cmd.OutOrStdout(), records)
			})
		},
	}
}

// writeRecordTable prints records as aligned columns.
func writeRecordTable(w io.Writer, records []history.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No records.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED_AT\tID\tHOST\tTOPIC\tMESSAGE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			history.FormatTimestamp(r.CreatedAt), r.ID, r.Host, r.Topic, r.Message)
	}
	return tw.Flush()
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Draft history.Draft

	// Now supplies created_at when --created-at is not given (for testing).
	Now func() time.Time
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts, Now: time.Now}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Insert a record",
		Long: `Insert a record and print it with its assigned id.

created_at accepts RFC 3339, "YYYY-MM-DD HH:MM:SS", "YYYY-MM-DD" or epoch
milliseconds, and defaults to the current time. An unparseable timestamp
exits with code 2 and stores nothing.

Example:
  histories add --host web-1 --topic deploy --message "v1.2.0 rolled out"
  histories add --host web-1 --topic deploy --message ok --created-at 2024-01-01T00:00:00Z`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("created-at") {
				opts.Draft.CreatedAt = history.FormatTimestamp(opts.Now())
			}
			return runAdd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Draft.Host, "host", "", "record host")
	cmd.Flags().StringVar(&opts.Draft.Topic, "topic", "", "record topic")
	cmd.Flags().StringVar(&opts.Draft.Message, "message", "", "record message")
	cmd.Flags().StringVar(&opts.Draft.CreatedAt, "created-at", "", "record timestamp (default now)")

	return cmd
}

func runAdd(opts *AddOptions, cmd *cobra.Command) error {
	return opts.withBackend(cmd.Context(), func(b history.Backend) error {
		rec, err := b.Insert(cmd.Context(), opts.Draft)
		if err != nil {
			return wrapStoreError("failed to add record", err)
		}
		opts.Logger.Debug("record added", "id", rec.ID)
		return opts.formatter(cmd).Success(server.NewRecordResponse(rec),
			fmt.Sprintf("Added %s (%s)", rec.ID, history.FormatTimestamp(rec.CreatedAt)))
	})
}

// DeleteResult is the JSON payload of the delete command.
type DeleteResult struct {
	ID      string `json:"_id"`
	Deleted int64  `json:"deleted"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record by id",
		Long: `Delete the record with the given id. Deleting an unknown id is not an
error; the command reports that nothing was removed.

Example:
  histories delete 01920c5e-7a4b-7cde-8f01-23456789abcd`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return rootOpts.withBackend(cmd.Context(), func(b history.Backend) error {
				n, err := b.Delete(cmd.Context(), id)
				if err != nil {
					return wrapStoreError("failed to delete record", err)
				}

				text := fmt.Sprintf("Deleted %s", id)
				if n == 0 {
					text = fmt.Sprintf("No record with id %s", id)
				}
				return rootOpts.formatter(cmd).Success(DeleteResult{ID: id, Deleted: n}, text)
			})
		},
	}
}
