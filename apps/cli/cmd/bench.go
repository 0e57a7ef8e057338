package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hostline/packages/bench"
	"github.com/abdul-hamid-achik/hostline/packages/http"
)

var benchCmd = &cobra.Command{
	Use:   "bench <url> [url...]",
	Short: "Send a batch of requests and report latency",
	Long: `Send a batch of requests round robin over the given URLs and report
latency percentiles, per-host counts and failures.

Requests to one host still run one at a time under the rate ceiling, so
concurrency only pays off across hosts.

Examples:
  # 200 requests to one node
  hostline bench http://localhost:18081/get_info -n 200

  # Two nodes, eight in flight
  hostline bench http://a:18081/get_info http://b:18081/get_info -n 500 -c 8

  # Follow rate changes in the config file while running
  hostline bench http://localhost:18081/get_info -n 5000 --config hostline.yaml --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: benchCommand,
}

var (
	benchRequestsFlag    int
	benchConcurrencyFlag int
	benchMethodFlag      string
	benchDataFlag        string
	benchTimeoutFlag     int
	benchInsecureFlag    bool
	benchWorkerFlag      bool
	benchFormatFlag      string
	benchWatchFlag       bool
)

func init() {
	benchCmd.Flags().IntVarP(&benchRequestsFlag, "requests", "n", bench.DefaultRequests, "Number of requests")
	benchCmd.Flags().IntVarP(&benchConcurrencyFlag, "concurrency", "c", bench.DefaultConcurrency, "Maximum requests in flight")
	benchCmd.Flags().StringVarP(&benchMethodFlag, "method", "X", "", "HTTP method (default GET)")
	benchCmd.Flags().StringVarP(&benchDataFlag, "data", "d", "", "Request body sent as text")
	benchCmd.Flags().IntVar(&benchTimeoutFlag, "timeout", -1, "Timeout in milliseconds, 0 for none (default from config)")
	benchCmd.Flags().BoolVarP(&benchInsecureFlag, "insecure", "k", false, "Skip TLS certificate verification")
	benchCmd.Flags().BoolVar(&benchWorkerFlag, "worker", false, "Run requests on the worker pool")
	benchCmd.Flags().StringVarP(&benchFormatFlag, "format", "o", "text", "Output format: text, json or prometheus")
	benchCmd.Flags().BoolVar(&benchWatchFlag, "watch", false, "Apply rate changes from --config while running")
}

func benchCommand(cmd *cobra.Command, args []string) error {
	switch benchFormatFlag {
	case "text", "json", "prometheus":
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown format %q", benchFormatFlag))
	}

	targets := make([]*http.Request, 0, len(args))
	for _, uri := range args {
		req := http.NewRequest(benchMethodFlag, uri)
		if benchDataFlag != "" {
			req.SetBody(http.Text(benchDataFlag))
		}
		if cmd.Flags().Changed("timeout") {
			req.SetTimeout(benchTimeoutFlag)
		}
		if benchInsecureFlag {
			req.SetRejectUnauthorized(false)
		}
		if benchWorkerFlag {
			req.ViaWorker()
		}
		targets = append(targets, req)
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Set up signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if benchWatchFlag {
		if err := rt.watchConfig(ctx); err != nil {
			return withExitCode(ExitUsageError, err)
		}
	}

	cfg := bench.Config{
		Requests:    benchRequestsFlag,
		Concurrency: benchConcurrencyFlag,
		Targets:     targets,
	}
	runner, err := bench.NewRunner(rt.client, cfg)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	reporter := bench.NewReporter(
		bench.WithWriter(cmd.OutOrStdout()),
		bench.WithNoColor(noColorFlag),
	)
	if benchFormatFlag == "text" {
		if err := cfg.Validate(); err != nil {
			return withExitCode(ExitUsageError, err)
		}
		reporter.Header(version, cfg)
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "\nReceived interrupt, stopped early")
	}

	switch benchFormatFlag {
	case "json":
		return reporter.JSONSummary(summary)
	case "prometheus":
		return bench.WritePrometheus(cmd.OutOrStdout(), summary)
	}
	reporter.Summary(summary)
	return nil
}
