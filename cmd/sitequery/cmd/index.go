package cmd

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	indexFull  bool
	indexTypes []string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Fetch and index content, then exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		progress, err := a.coord.Index(ctx, indexTypes, indexFull)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(progress)
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexFull, "full", false, "rebuild everything and swap atomically")
	indexCmd.Flags().StringSliceVar(&indexTypes, "types", nil, "content types to index (default: configured types)")
	rootCmd.AddCommand(indexCmd)
}
