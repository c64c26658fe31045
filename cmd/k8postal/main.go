// Package main is the entry point for the k8postal CLI.
//
// k8postal declares the Kubernetes objects for the Postal mail server and
// its MariaDB database, applies them to a cluster and sets up the DNS and
// reverse DNS records a mail server needs.
//
// Commands: init, render, apply, destroy, outputs, dns, doctor, keygen.
//
// For detailed usage information, run:
//
//	k8postal --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/k8postal/cmd/k8postal/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
