// Package main provides the entry point for shotty.
//
// Shotty lists and manages the EC2 instances, volumes and snapshots that
// belong to a project, identified by the "project" tag.
//
// Usage:
//
//	shotty instances list|stop|start [--project P]
//	shotty volumes list [--project P]
//	shotty snapshots list [--project P] [--all]
//	shotty snapshots create [--project P]
//
// Credentials come from the "shotty" shared config profile unless --profile is given.
package main

import (
	"fmt"
	"os"

	"shotty/cmd"
	"shotty/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, errors.FormatErrorForUser(err))
		os.Exit(errors.GetExitCode(err))
	}
}
