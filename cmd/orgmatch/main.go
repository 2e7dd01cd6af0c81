package main

import (
	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/namelens/orgmatch/internal/cmd"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.buildDate=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	if err := cmd.Execute(); err != nil {
		cmd.ExitWithCodeStderr(foundry.ExitFailure, "orgmatch failed", err)
	}
}
