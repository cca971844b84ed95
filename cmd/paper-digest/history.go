// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/store"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved digests, newest first",
	Long: `History lists past digest runs recorded in the output directory's
index, with the paths of their Markdown artifacts.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum runs to list")
	historyCmd.Flags().String("output-dir", "", "directory holding digest artifacts (default: output)")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	if outputDir == "" {
		outputDir = viper.GetString("store.output_dir")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := store.Open(types.StoreConfig{OutputDir: outputDir})
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.History(limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No saved digests.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-8s  %-10s  %-20s  %-6s  %s\n",
		"ID", "Date", "Created", "Papers", "Artifact")
	for _, run := range runs {
		fmt.Fprintf(os.Stdout, "%-8s  %-10s  %-20s  %-6d  %s\n",
			run.ID[:8], run.TargetDate, run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.PaperCount, run.MarkdownPath)
	}
	return nil
}
