package main

import (
	"github.com/withObsrvr/causer-pays-workflow/internal/cli/cmd"
)

// Set by the linker:
//
//	go build -ldflags "-X main.version=v1.2.0 -X main.gitCommit=$(git rev-parse HEAD) -X main.buildDate=$(date -u +%FT%TZ)"
var (
	version   string
	gitCommit string
	buildDate string
)

func main() {
	cmd.SetVersionInfo(version, gitCommit, buildDate)
	cmd.Execute()
}
