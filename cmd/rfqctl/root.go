package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/app"
)

var (
	configPath string

	// application 在第一次执行子命令前装配；测试里直接注入
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "rfqctl",
	Short: "Operate the RFQ document store and analysis pipeline",
	Long: `rfqctl ingests proposal and RFP PDFs, lists and searches the document store,
and runs RFP optimization analyses without going through the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if application != nil {
			return nil
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		a, err := app.New(context.Background(), cfg, app.Options{Reindex: cfg.Vector.Backend == "memory" || cfg.Vector.Backend == ""})
		if err != nil {
			return err
		}
		application = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
