// advisor serves the transcript upload API and runs one-off submissions.
//
// Usage:
//
//	advisor serve
//	advisor migrate [down|version]
//	advisor submit FILE... [--api-url=<url>] [--markdown]
//	advisor inspect FILE
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Course recommendations from academic transcripts",
	Long:  "advisor stages PDF transcripts, sends them to the recommendation service\nand presents the recommended courses.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
