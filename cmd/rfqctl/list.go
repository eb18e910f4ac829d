package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

var (
	listKind string
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listKind, "kind", "", "filter by kind (proposal or rfp)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output documents as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if listKind != "" && listKind != model.DocumentKindProposal && listKind != model.DocumentKindRFP {
		return fmt.Errorf("kind must be proposal or rfp, got %q", listKind)
	}
	docs, err := application.Docs.List(listKind)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	if listJSON {
		snaps := make([]model.DocumentSnapshot, len(docs))
		for i, d := range docs {
			snaps[i] = d.Snapshot()
		}
		return printJSON(cmd, snaps)
	}

	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents found.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTITLE\tBUDGET\tMONTHS\tUPLOADED")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%d\t%s\n",
			d.ID, d.Kind, d.Title, d.Budget, d.TimelineMonths, d.UploadedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
