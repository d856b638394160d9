// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

func runHealthcheckCLI(args []string, stdout, stderr io.Writer) int {
	fs, addr, timeout := clientFlags("healthcheck", stderr)
	mode := fs.String("mode", "ready", "healthcheck mode: ready (default) or live")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := "/healthz"
	if *mode == "ready" {
		path = "/readyz"
	}

	client := http.Client{Timeout: *timeout}
	resp, err := client.Get(strings.TrimRight(*addr, "/") + path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Healthcheck failed (network): %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = fmt.Fprintf(stderr, "Healthcheck failed (status): %s\n", resp.Status)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "Healthcheck successful (%s)\n", *mode)
	return 0
}
