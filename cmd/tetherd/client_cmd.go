// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/tetherd/internal/api"
	"github.com/ManuGH/tetherd/internal/tether"
)

const defaultAddr = "http://127.0.0.1:8088"

func clientFlags(name string, stderr io.Writer) (*flag.FlagSet, *string, *time.Duration) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", defaultAddr, "daemon API base URL")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	return fs, addr, timeout
}

func runStatusCLI(args []string, stdout, stderr io.Writer) int {
	fs, addr, timeout := clientFlags("status", stderr)
	asJSON := fs.Bool("json", false, "print the raw JSON status")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	client := http.Client{Timeout: *timeout}
	resp, err := client.Get(strings.TrimRight(*addr, "/") + "/api/v1/status")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "status failed (network): %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = fmt.Fprintf(stderr, "status failed: %s\n", resp.Status)
		return 1
	}
	var st tether.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		_, _ = fmt.Fprintf(stderr, "status failed (decode): %v\n", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(st)
		return 0
	}
	printStatus(stdout, st)
	return 0
}

func printStatus(w io.Writer, st tether.Status) {
	_, _ = fmt.Fprintf(w, "state:   %s\n", st.State)
	if st.AttemptID != "" {
		_, _ = fmt.Fprintf(w, "attempt: %s\n", st.AttemptID)
	}
	if st.PID != 0 {
		_, _ = fmt.Fprintf(w, "pid:     %d\n", st.PID)
	}
	if !st.Since.IsZero() {
		_, _ = fmt.Fprintf(w, "since:   %s\n", st.Since.Format(time.RFC3339))
	}
	if f := st.LastFailure; f != nil {
		_, _ = fmt.Fprintf(w, "last failure: %s/%s at %s: %s\n", f.Kind, f.Reason, f.At.Format(time.RFC3339), f.Message)
	}
}

func runCommandCLI(name string, args []string, stdout, stderr io.Writer) int {
	fs, addr, timeout := clientFlags(name, stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	client := http.Client{Timeout: *timeout}
	resp, err := client.Post(strings.TrimRight(*addr, "/")+"/api/v1/"+name, "application/json", nil)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s failed (network): %v\n", name, err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		var e api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		_, _ = fmt.Fprintf(stderr, "%s rejected: %s %s\n", name, resp.Status, e.Error)
		return 1
	}
	var ack api.CommandResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		_, _ = fmt.Fprintf(stderr, "%s failed (decode): %v\n", name, err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "%s requested (state: %s)\n", name, ack.Status.State)
	return 0
}
