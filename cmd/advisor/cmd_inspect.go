package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"transcript-advisor/internal/analyses"
	"transcript-advisor/internal/extract"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show page and text statistics of a PDF transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	pages, err := extract.PageCount(data)
	if err != nil {
		return err
	}
	text, err := extract.PlainText(cmd.Context(), data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:            %s\n", args[0])
	fmt.Fprintf(out, "Pages:           %d\n", pages)
	fmt.Fprintf(out, "Text length:     %d\n", len(text))
	fmt.Fprintf(out, "Estimated pages: %d\n", analyses.EstimatePages(len(text)))
	return nil
}
