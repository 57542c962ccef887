// Package main starts the ledger gateway.
//
// This process owns the REST boundary in front of the permissioned ledger
// network: session minting, peer fan-out and the correlated search.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	gatewaycmd "github.com/chainbridge/ledgergate/internal/cmd/gateway"
)

func main() {
	cfg, err := gatewaycmd.ParseConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[GATEWAY] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gatewaycmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
