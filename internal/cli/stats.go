package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/histories/internal/history"
)

// StatsResult is the JSON payload of the stats command.
type StatsResult struct {
	Backend string `json:"backend"`
	Count   int64  `json:"count"`
	Newest  string `json:"newest,omitempty"`
	Oldest  string `json:"oldest,omitempty"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the store",
		Long: `Print the configured backend, the number of stored records and the
range of their created_at timestamps.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withBackend(cmd.Context(), func(b history.Backend) error {
				result, err := collectStats(cmd, b)
				if err != nil {
					return wrapStoreError("failed to read stats", err)
				}
				result.Backend = describeBackend(rootOpts.Config)

				if rootOpts.Format == "json" {
					return rootOpts.formatter(cmd).Success(result, "")
				}
				return printStats(cmd, result)
			})
		},
	}
}

func collectStats(cmd *cobra.Command, b history.Backend) (StatsResult, error) {
	span, err := b.Span(cmd.Context())
	if err != nil {
		return StatsResult{}, err
	}

	result := StatsResult{Count: span.Count}
	if span.Count > 0 {
		result.Newest = history.FormatTimestamp(span.Newest)
		result.Oldest = history.FormatTimestamp(span.Oldest)
	}
	return result, nil
}

func printStats(cmd *cobra.Command, result StatsResult) error {
	p := message.NewPrinter(language.English)
	w := cmd.OutOrStdout()

	p.Fprintf(w, "Backend: %s\n", result.Backend)
	p.Fprintf(w, "Records: %d\n", result.Count)
	if result.Count > 0 {
		p.Fprintf(w, "Newest:  %s\n", result.Newest)
		p.Fprintf(w, "Oldest:  %s\n", result.Oldest)
	}
	return nil
}
