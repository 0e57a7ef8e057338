package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hostline/packages/http"
)

var requestCmd = &cobra.Command{
	Use:   "request <url>",
	Short: "Send one request",
	Long: `Send one request through the host queue and print the response.

Examples:
  # Simple GET
  hostline request http://localhost:18081/get_info

  # JSON-RPC call with digest credentials
  hostline request https://node.example/json_rpc -X POST \
    -d '{"jsonrpc":"2.0","id":"0","method":"get_info"}' \
    --user rpc --password secret --insecure

  # Raw binary body, answered as bytes
  hostline request http://localhost:18081/get_blocks.bin -X POST --data-file req.bin

  # Run on the worker pool
  hostline request http://localhost:18081/get_info --worker`,
	Args: cobra.ExactArgs(1),
	RunE: requestCommand,
}

var (
	requestMethodFlag   string
	requestDataFlag     string
	requestDataFileFlag string
	requestUserFlag     string
	requestPasswordFlag string
	requestTimeoutFlag  int
	requestInsecureFlag bool
	requestWorkerFlag   bool
	requestIncludeFlag  bool
	requestJSONFlag     bool
)

func init() {
	requestCmd.Flags().StringVarP(&requestMethodFlag, "method", "X", "", "HTTP method (default GET)")
	requestCmd.Flags().StringVarP(&requestDataFlag, "data", "d", "", "Request body sent as text")
	requestCmd.Flags().StringVar(&requestDataFileFlag, "data-file", "", "File whose raw bytes are the request body")
	requestCmd.Flags().StringVarP(&requestUserFlag, "user", "u", "", "Digest username")
	requestCmd.Flags().StringVar(&requestPasswordFlag, "password", "", "Digest password")
	requestCmd.Flags().IntVar(&requestTimeoutFlag, "timeout", -1, "Timeout in milliseconds, 0 for none (default from config)")
	requestCmd.Flags().BoolVarP(&requestInsecureFlag, "insecure", "k", false, "Skip TLS certificate verification")
	requestCmd.Flags().BoolVar(&requestWorkerFlag, "worker", false, "Run the request on the worker pool")
	requestCmd.Flags().BoolVarP(&requestIncludeFlag, "include", "i", false, "Print response headers")
	requestCmd.Flags().BoolVar(&requestJSONFlag, "json", false, "Print the response as JSON")
}

func requestCommand(cmd *cobra.Command, args []string) error {
	if requestDataFlag != "" && requestDataFileFlag != "" {
		return withExitCode(ExitUsageError, fmt.Errorf("--data and --data-file are mutually exclusive"))
	}

	req := http.NewRequest(requestMethodFlag, args[0])
	switch {
	case requestDataFileFlag != "":
		data, err := os.ReadFile(requestDataFileFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("cannot read data file: %w", err))
		}
		req.SetBody(http.Bytes(data))
	case requestDataFlag != "":
		req.SetBody(http.Text(requestDataFlag))
	}
	if requestUserFlag != "" || requestPasswordFlag != "" {
		req.SetCredentials(requestUserFlag, requestPasswordFlag)
	}
	if cmd.Flags().Changed("timeout") {
		req.SetTimeout(requestTimeoutFlag)
	}
	if requestInsecureFlag {
		req.SetRejectUnauthorized(false)
	}
	if requestWorkerFlag {
		req.ViaWorker()
	}

	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	resp, err := rt.client.Execute(cmd.Context(), req)
	if err != nil {
		return withExitCode(requestExitCode(err), err)
	}

	if requestJSONFlag {
		return printResponseJSON(cmd.OutOrStdout(), resp)
	}
	printResponse(cmd.OutOrStdout(), resp, requestIncludeFlag)
	return nil
}

func printResponse(w io.Writer, resp *http.Response, include bool) {
	color.NoColor = color.NoColor || noColorFlag

	status := color.New(color.FgGreen, color.Bold)
	switch {
	case resp.IsServerError():
		status = color.New(color.FgRed, color.Bold)
	case resp.IsClientError():
		status = color.New(color.FgYellow, color.Bold)
	}

	if include {
		status.Fprintf(w, "%d %s\n", resp.StatusCode, resp.StatusText)

		names := make([]string, 0, len(resp.Headers))
		for name := range resp.Headers {
			names = append(names, name)
		}
		sort.Strings(names)

		dim := color.New(color.Faint)
		for _, name := range names {
			dim.Fprintf(w, "%s: ", name)
			fmt.Fprintln(w, resp.Headers[name])
		}
		fmt.Fprintln(w)
	}

	_, _ = w.Write(resp.BodyBytes())
	if _, binary := resp.Body.(http.Bytes); !binary {
		fmt.Fprintln(w)
	}
}

func printResponseJSON(w io.Writer, resp *http.Response) error {
	output := map[string]interface{}{
		"statusCode": resp.StatusCode,
		"statusText": resp.StatusText,
		"headers":    resp.Headers,
	}
	switch b := resp.Body.(type) {
	case http.Bytes:
		output["body"] = []byte(b)
		output["binary"] = true
	default:
		output["body"] = resp.BodyString()
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
