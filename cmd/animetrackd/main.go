// Command animetrackd runs the animetrack scheduler as a standalone daemon
// using the default configuration lookup. Use `animetrack daemon` to pass a
// config path or log level.
package main

import (
	"context"
	"log"

	"animetrack/internal/config"
	"animetrack/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("animetrackd: %v", err)
	}
}
