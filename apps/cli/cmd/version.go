package cmd

import (
	"fmt"
	goruntime "runtime"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hostline/packages/hostq"
	"github.com/abdul-hamid-achik/hostline/packages/http"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information and built-in defaults",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "hostline version %s\n", version)
		fmt.Fprintf(out, "Built: %s (%s %s/%s)\n", buildTime, goruntime.Version(), goruntime.GOOS, goruntime.GOARCH)
		fmt.Fprintf(out, "Defaults: %d req/s per host, burst %d, timeout %dms\n",
			hostq.DefaultRate, hostq.DefaultBurst, http.DefaultTimeoutMs)
	},
}
