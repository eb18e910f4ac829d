package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qs3c/rfq_alchemy/internal/service"
)

var analyzeHistorical bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <rfp-id>",
	Short: "Run an RFP optimization analysis and print the result",
	Long: `Runs the four-dimension RFP analysis synchronously and prints the analysis
result as JSON. A fallback result is printed when the model is unavailable.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeHistorical, "historical", false, "include uploaded proposals as historical context")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sess, err := application.Opt.Analyze(cmd.Context(), service.AnalyzeInput{
		RFPDocumentID:         args[0],
		IncludeHistoricalData: analyzeHistorical,
		Progress: func(step string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "... %s\n", step)
		},
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	return printJSON(cmd, sess.Result)
}
