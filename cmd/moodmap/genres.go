package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonolens/api/internal/mood"
)

func newGenresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genres <genre>...",
		Short: "Normalize genre names against the seed whitelist",
		Long: `Print the normalized form of each genre, one per line, exactly as the
recommender would seed Spotify with them.

Examples:
  moodmap genres "Hip Hop" "R&B" "Deep House"`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, g := range mood.NormalizeGenres(args) {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
		},
	}
}

func newWhitelistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whitelist",
		Short: "Print the genre seed whitelist",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, g := range mood.GenreWhitelist() {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
		},
	}
}
