// Command moodmap is a developer tool for the mood mapping rules: it turns
// saved analyses into search parameters, normalizes genre names and mints
// local API tokens.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
