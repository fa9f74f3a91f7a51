package cli

import (
	"github.com/SteelMorgan/logdoc/internal/domain"
	"github.com/SteelMorgan/logdoc/internal/format"
	"github.com/SteelMorgan/logdoc/internal/service"
	"github.com/spf13/cobra"
)

// RunFlags are shared by save and index
type RunFlags struct {
	MaxDocs  uint64
	Patterns []string
	Resume   bool
	Summary  bool
}

func (f *RunFlags) register(cmd *cobra.Command, summaryDefault bool) {
	cmd.Flags().Uint64Var(&f.MaxDocs, "max-docs", 0, "Stop after this many documents (0 = no limit)")
	cmd.Flags().StringArrayVar(&f.Patterns, "pattern", nil, "Timestamp format, can be repeated; replaces the built-in formats")
	cmd.Flags().BoolVar(&f.Resume, "resume", false, "Skip documents delivered by the previous run of this file")
	cmd.Flags().BoolVar(&f.Summary, "summary", summaryDefault, "Print a run summary table")
}

func (f *RunFlags) options(logFile string, gap int64) service.RunOptions {
	return service.RunOptions{
		LogFile:       logFile,
		MaxGapMinutes: gap,
		MaxDocuments:  f.MaxDocs,
		Patterns:      f.Patterns,
		Resume:        f.Resume,
	}
}

func newSaveCommand(app *App) *cobra.Command {
	flags := &RunFlags{}

	cmd := &cobra.Command{
		Use:   "save <logfile> <maxGapMinutes> <outputDir> <prefix>",
		Short: "Extract conversations from a log and save them to disk",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 4 {
				printUsage(cmd.OutOrStdout())
				return nil
			}
			gap, err := parseGap(args[1])
			if err != nil {
				return err
			}

			svc, err := newService(app)
			if err != nil {
				return err
			}
			stats, err := svc.SaveDocuments(cmd.Context(), service.SaveRequest{
				RunOptions: flags.options(args[0], gap),
				OutputDir:  args[2],
				Prefix:     args[3],
			})
			return finish(cmd, flags, stats, err)
		},
	}
	flags.register(cmd, app.SummaryDefault)

	return cmd
}

func newIndexCommand(app *App) *cobra.Command {
	flags := &RunFlags{}
	var index, backend string

	cmd := &cobra.Command{
		Use:   "index <logfile> <maxGapMinutes>",
		Short: "Extract conversations from a log and index them in a search cluster",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				printUsage(cmd.OutOrStdout())
				return nil
			}
			gap, err := parseGap(args[1])
			if err != nil {
				return err
			}

			svc, err := newService(app)
			if err != nil {
				return err
			}
			stats, err := svc.IndexDocuments(cmd.Context(), service.IndexRequest{
				RunOptions: flags.options(args[0], gap),
				Index:      index,
				Backend:    backend,
			})
			return finish(cmd, flags, stats, err)
		},
	}
	flags.register(cmd, app.SummaryDefault)
	cmd.Flags().StringVar(&index, "index", "", "Target index name (default: INDEX_NAME)")
	cmd.Flags().StringVar(&backend, "backend", "", "Index backend: elasticsearch or clickhouse (default: INDEX_BACKEND)")

	return cmd
}

// finish prints the summary of a run that got far enough to have one
func finish(cmd *cobra.Command, flags *RunFlags, stats *domain.RunStats, err error) error {
	if stats != nil && flags.Summary {
		if ferr := format.WriteSummary(cmd.OutOrStdout(), stats, "table"); ferr != nil {
			return ferr
		}
	}
	return err
}
