// cmd/skycast/main.go
package main

import (
	cmd "github.com/mvenner/skycast/internal/commands"
)

// Build-time variables, injected via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// main starts the skycast CLI application by delegating to the
// cobra root command defined in the commands package.
func main() {
	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
