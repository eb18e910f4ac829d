package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/service"
)

var ingestRFP bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf>...",
	Short: "Upload PDF files into the document store",
	Long: `Validates, extracts and indexes each PDF the same way the upload endpoint does.
Files already in the store are reported with their existing document id.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestRFP, "rfp", false, "ingest the files as RFP documents instead of proposals")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	kind := model.DocumentKindProposal
	if ingestRFP {
		kind = model.DocumentKindRFP
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		id, err := ingestOne(cmd, path, kind)
		var dup *service.DuplicateError
		switch {
		case errors.As(err, &dup):
			fmt.Fprintf(out, "skip   %s (already stored as %s)\n", path, dup.ExistingID)
		case err != nil:
			fmt.Fprintf(out, "error  %s: %v\n", path, err)
			failed++
		default:
			fmt.Fprintf(out, "ok     %s -> %s\n", path, id)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func ingestOne(cmd *cobra.Command, path, kind string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	res, err := application.Docs.Ingest(cmd.Context(), service.UploadInput{
		Filename: path,
		Size:     info.Size(),
		Reader:   f,
		Kind:     kind,
	})
	if err != nil {
		return "", err
	}
	return res.Document.ID, nil
}
