// Package cmd implements the sitequery command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sitequery",
	Short: "Hybrid search backend for CMS content",
	Long: `sitequery indexes CMS content and answers natural-language queries by
fusing TF-IDF lexical search with dense-vector semantic search, with
optional LLM reranking and extractive answer synthesis.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
