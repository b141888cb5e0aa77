// Package main starts the table real-time service and handles
// termination.
//
// The process is a transport adapter around room lifecycle and dice
// resolution; all shared state lives in memory for the life of the
// process.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	tablecmd "github.com/louisbranch/rolltable.space/internal/cmd/table"
	"github.com/louisbranch/rolltable.space/internal/platform/config"
)

func main() {
	cfg, err := tablecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[TABLE] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tablecmd.Run(ctx, cfg); err != nil {
		config.Exitf("failed to serve: %v", err)
	}
}
