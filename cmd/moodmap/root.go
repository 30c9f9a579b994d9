package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "moodmap",
		Short: "Inspect how mood analyses map to Spotify search parameters",
		Long: `A developer CLI around the SonoLens mood mapper.

It prints the search parameters derived from a mood analysis, shows how
free-form genre names are normalized against Spotify's seed genres, and
mints HMAC tokens for calling a local API.`,
		Version:       "0.1.0",
		SilenceUsage: true,
	}

	root.AddCommand(
		newParamsCmd(),
		newGenresCmd(),
		newWhitelistCmd(),
		newTokenCmd(),
	)
	return root
}
