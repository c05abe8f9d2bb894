package commands

import (
	"github.com/spf13/cobra"

	"github.com/dantte-lp/gop4tg/internal/tgen"
)

func resultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "Fetch the current benchmark results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var result tgen.TestResult
			if err := apiGet("/api/rfc/results", &result); err != nil {
				return err
			}

			out, err := formatResults(result, outputFormat)
			if err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear stored benchmark results and collected statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := apiDelete("/api/rfc/results", nil); err != nil {
				return err
			}
			cmd.Println("Results cleared.")
			return nil
		},
	}
}

func abortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort",
		Short: "Abort the currently running benchmark",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := apiPost("/api/rfc/abort", nil, nil); err != nil {
				return err
			}
			cmd.Println("Abort signal sent.")
			return nil
		},
	}
}
