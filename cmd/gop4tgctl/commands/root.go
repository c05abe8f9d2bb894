package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// serverAddr is the daemon address (host:port) for the REST connection.
	serverAddr string

	// httpClient is shared by all commands. No timeout: benchmark requests
	// block until the campaign finishes.
	httpClient = &http.Client{}
)

// errDaemon wraps an {error} body returned by the daemon.
var errDaemon = errors.New("daemon error")

// rootCmd is the top-level cobra command for gop4tgctl.
var rootCmd = &cobra.Command{
	Use:   "gop4tgctl",
	Short: "CLI client for the gop4tg daemon",
	Long:  "gop4tgctl drives the gop4tg daemon's REST API to run RFC 2544 benchmarks and manage results.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:8000",
		"gop4tg daemon address (host:port)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(rfcCmd())
	rootCmd.AddCommand(resultsCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(abortCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// -------------------------------------------------------------------------
// REST helpers
// -------------------------------------------------------------------------

// apiURL joins the daemon address with an API path.
func apiURL(path string) string {
	return "http://" + serverAddr + path
}

// doJSON performs one request and decodes the JSON response into out
// (skipped when out is nil). A non-2xx status is surfaced with the daemon's
// {error} body.
func doJSON(method, path string, body io.Reader, out any) error {
	req, err := http.NewRequest(method, apiURL(path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decErr := json.NewDecoder(resp.Body).Decode(&apiErr); decErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%w: %s", errDaemon, apiErr.Error)
		}
		return fmt.Errorf("%w: status %d", errDaemon, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiGet(path string, out any) error {
	return doJSON(http.MethodGet, path, nil, out)
}

func apiPost(path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = strings.NewReader(string(raw))
	}
	return doJSON(http.MethodPost, path, body, out)
}

func apiDelete(path string, out any) error {
	return doJSON(http.MethodDelete, path, nil, out)
}
