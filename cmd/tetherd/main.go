// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command tetherd runs the tethering daemon and talks to a running one.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ManuGH/tetherd/internal/daemon"
	"github.com/ManuGH/tetherd/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "status":
			return runStatusCLI(args[1:], stdout, stderr)
		case "start":
			return runCommandCLI("start", args[1:], stdout, stderr)
		case "stop":
			return runCommandCLI("stop", args[1:], stdout, stderr)
		case "healthcheck":
			return runHealthcheckCLI(args[1:], stdout, stderr)
		}
	}
	return runDaemon(args, stdout, stderr)
}

func runDaemon(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tetherd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		_, _ = fmt.Fprintln(stdout, version.String())
		return 0
	}

	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	if err := daemon.Run(ctx, daemon.Options{Version: version.Version, ConfigPath: *configPath}); err != nil {
		_, _ = fmt.Fprintf(stderr, "tetherd: %v\n", err)
		return 1
	}
	return 0
}
