// Command commdetect detects communities in sensor contact graphs and
// describes them against a ground-truth grouping.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("commdetect failed")
		os.Exit(1)
	}
}
