package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/histories/internal/archive"
	"github.com/roach88/histories/internal/history"
)

// ArchiveResult is the JSON payload of the export and import commands.
type ArchiveResult struct {
	Path   string `json:"path"`
	Count  int    `json:"count"`
	Digest string `json:"digest,omitempty"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every record to a canonical JSON archive",
		Long: `Export all records, most recent first, as a canonical JSON archive with
a sha256 digest over the records. Without a file argument the archive is
written to stdout.

Example:
  histories export backup.json
  histories export > backup.json`,
		Args: maximumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return rootOpts.withBackend(cmd.Context(), func(b history.Backend) error {
					if _, err := archive.Export(cmd.Context(), b, cmd.OutOrStdout()); err != nil {
						return wrapStoreError("failed to export", err)
					}
					return nil
				})
			}
			return runExportFile(rootOpts, cmd, args[0])
		},
	}
}

func runExportFile(opts *RootOptions, cmd *cobra.Command, path string) error {
	return opts.withBackend(cmd.Context(), func(b history.Backend) error {
		f, err := os.Create(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create archive file", err)
		}

		a, err := archive.Export(cmd.Context(), b, f)
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = WrapExitError(ExitFailure, "failed to write archive file", closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
			return wrapStoreError("failed to export", err)
		}

		opts.Logger.Debug("archive written", "path", path, "digest", a.Digest)
		return opts.formatter(cmd).Success(
			ArchiveResult{Path: path, Count: a.Count, Digest: a.Digest},
			fmt.Sprintf("Exported %d records to %s (%s)", a.Count, path, a.Digest))
	})
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Insert the records of an archive",
		Long: `Validate a JSON or CUE archive and insert its records, oldest first.
Imported records receive fresh ids. A malformed archive or a digest
mismatch exits with code 2 before anything is inserted.

Example:
  histories import backup.json
  histories import --db ./restored.db backup.cue`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			a, err := archive.ReadFile(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read archive", err)
			}

			return rootOpts.withBackend(cmd.Context(), func(b history.Backend) error {
				records, err := archive.Import(cmd.Context(), b, a)
				if err != nil {
					rootOpts.Logger.Error("import stopped", "path", path, "imported", len(records), "error", err)
					return wrapStoreError(fmt.Sprintf("failed to import after %d records", len(records)), err)
				}
				return rootOpts.formatter(cmd).Success(
					ArchiveResult{Path: path, Count: len(records), Digest: a.Digest},
					fmt.Sprintf("Imported %d records from %s", len(records), path))
			})
		},
	}
}
