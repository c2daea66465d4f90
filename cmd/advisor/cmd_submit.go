package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"transcript-advisor/internal/extract"
	"transcript-advisor/internal/presenter"
	"transcript-advisor/internal/recommender"
	localstore "transcript-advisor/internal/shared/storage/object/local"
	"transcript-advisor/internal/uploads"
)

var submitFlags struct {
	apiURL   string
	timeout  time.Duration
	markdown bool
	verbose  bool
}

var submitCmd = &cobra.Command{
	Use:   "submit FILE...",
	Short: "Send a transcript to the recommendation service and print the results",
	Long: `Stages the given files like the upload view does. Files that are not PDFs are
silently skipped (--verbose lists them) and only the first staged PDF is sent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitFlags.apiURL, "api-url", recommender.DefaultBaseURL, "Recommendation service base URL")
	f.DurationVar(&submitFlags.timeout, "timeout", 120*time.Second, "Request timeout")
	f.BoolVar(&submitFlags.markdown, "markdown", false, "Render Markdown tables")
	f.BoolVarP(&submitFlags.verbose, "verbose", "v", false, "Report files that are not staged")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := recommender.NewHTTPClient(submitFlags.apiURL, submitFlags.timeout)
	if err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", "advisor-*")
	if err != nil {
		return fmt.Errorf("staging dir: %w", err)
	}
	defer os.RemoveAll(dir)

	session := uploads.NewOrchestrator("cli", localstore.New(dir), client)
	defer session.Close(ctx)

	candidates := make([]uploads.Candidate, 0, len(args))
	for _, path := range args {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		mediaType := mime.TypeByExtension(filepath.Ext(path))
		if submitFlags.verbose && !extract.IsPDF(mediaType) {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: not a PDF\n", path)
		}
		candidates = append(candidates, uploads.Candidate{
			Name:      filepath.Base(path),
			MediaType: mediaType,
			Content:   file,
		})
	}
	if _, err := session.Stage(ctx, candidates...); err != nil {
		return err
	}

	env, err := session.Submit(ctx)
	if err != nil {
		if errors.Is(err, uploads.ErrNothingStaged) {
			return errors.New("no PDF files to submit")
		}
		return err
	}

	view := presenter.Present(env, presenter.ModePage)
	if submitFlags.markdown {
		return presenter.RenderMarkdown(cmd.OutOrStdout(), view)
	}
	return presenter.RenderText(cmd.OutOrStdout(), view)
}
