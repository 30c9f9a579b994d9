package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sonolens/api/internal/model"
	"github.com/sonolens/api/internal/mood"
)

func newParamsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "params <analysis.json>",
		Short: "Print the search parameters for a mood analysis",
		Long: `Read a mood analysis (as returned by POST /api/analyze-image under
"mood_analysis") and print the derived search parameters as JSON.

Use "-" to read the analysis from stdin.

Examples:
  moodmap params analysis.json
  moodmap params --limit 30 - < analysis.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis, err := readAnalysis(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			params := mood.ToSearchParameters(analysis.Description(), limit)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(params)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", mood.DefaultLimit, "number of tracks to ask for")
	return cmd
}

func readAnalysis(stdin io.Reader, path string) (*model.MoodAnalysis, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var analysis model.MoodAnalysis
	if err := json.NewDecoder(r).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("invalid analysis JSON: %w", err)
	}
	if err := analysis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis: %w", err)
	}
	return &analysis, nil
}
