package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/metaconcert/meco/cmd/mecod/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("mecod failed")
		os.Exit(1)
	}
}
