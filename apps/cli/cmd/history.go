package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hostline/packages/http"
	"github.com/abdul-hamid-achik/hostline/packages/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded requests from the journal",
	Long: `Show requests recorded in the SQLite journal, newest first.

The journal is enabled by setting "journal" in hostline.yaml or passing
--journal.

Examples:
  hostline history --journal sqlite://hostline.db
  hostline history --host node.example:443 -n 50
  hostline history --hosts
  hostline history --prune 168h`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

var (
	historyLimitFlag int
	historyHostFlag  string
	historyHostsFlag bool
	historyPruneFlag time.Duration
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Maximum rows to show")
	historyCmd.Flags().StringVar(&historyHostFlag, "host", "", "Only show requests to this host key (host:port)")
	historyCmd.Flags().BoolVar(&historyHostsFlag, "hosts", false, "Summarize requests per host")
	historyCmd.Flags().DurationVar(&historyPruneFlag, "prune", 0, "Delete records older than this age")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.journal == nil {
		return withExitCode(ExitConfigError, errors.New("no journal configured; set journal in hostline.yaml or pass --journal"))
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	color.NoColor = color.NoColor || noColorFlag

	if historyPruneFlag > 0 {
		removed, err := rt.journal.Prune(ctx, time.Now().Add(-historyPruneFlag))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pruned %d records\n", removed)
		return nil
	}

	if historyHostsFlag {
		summaries, err := rt.journal.CountByHost(ctx)
		if err != nil {
			return err
		}
		printHostSummaries(out, summaries)
		return nil
	}

	var records []http.Record
	if historyHostFlag != "" {
		records, err = rt.journal.RecentForHost(ctx, historyHostFlag, historyLimitFlag)
	} else {
		records, err = rt.journal.Recent(ctx, historyLimitFlag)
	}
	if err != nil {
		return err
	}
	printRecords(out, records)
	return nil
}

func printRecords(w io.Writer, records []http.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No requests recorded")
		return
	}

	red := color.New(color.FgRed)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMETHOD\tURI\tSTATUS\tDURATION\tERROR")
	for _, rec := range records {
		status := "-"
		if rec.StatusCode != 0 {
			status = fmt.Sprintf("%d", rec.StatusCode)
		}
		errText := ""
		if rec.ErrorKind != "" {
			errText = red.Sprint(rec.ErrorKind)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Time.Local().Format(time.DateTime),
			rec.Method,
			rec.URI,
			status,
			rec.Duration.Round(time.Millisecond),
			errText,
		)
	}
	_ = tw.Flush()
}

func printHostSummaries(w io.Writer, summaries []journal.HostSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No requests recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tREQUESTS\tFAILURES")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", s.Host, s.Requests, s.Failures)
	}
	_ = tw.Flush()
}
