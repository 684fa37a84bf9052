// Command peer runs one overlay participant.
//
//	peer --host 127.0.0.1 --port 7000 --config config.txt
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gossipnet/internal/peer"
	"gossipnet/pkg/netconf"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Bind host")
	port := flag.Int("port", 0, "Bind port (required)")
	config := flag.String("config", "config.txt", "Config file (seed list)")
	flag.Parse()

	if *port == 0 {
		fmt.Fprintln(os.Stderr, "peer: --port is required")
		flag.Usage()
		os.Exit(2)
	}

	seeds, err := netconf.Load(*config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "peer: %v\n", err)
		os.Exit(1)
	}

	node, err := peer.New(&peer.Config{Host: *host, Port: *port, Seeds: seeds})
	if err != nil {
		fmt.Fprintf(os.Stderr, "peer: %v\n", err)
		os.Exit(1)
	}
	if err := node.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "peer: %v\n", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	node.Stop()
}
