// Command msgp-server runs the msgp group-messaging server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/groupwire/msgp/pkg/server"
)

func main() {
	configPath := flag.String("config", "~/.msgp/server.toml", "Path to config file")
	port := flag.Int("port", 0, "TCP port (overrides config)")
	httpPort := flag.Int("http-port", -1, "HTTP port for /metrics, /health, /ws (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	tomlConfig, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	config := tomlConfig.ServerConfig()
	if *port > 0 {
		config.TCPPort = *port
	}
	if *httpPort >= 0 {
		config.HTTPPort = *httpPort
	}
	if *debug {
		config.Debug = true
	}

	srv := server.NewServer(config)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}

	// Block until interrupted, then stop gracefully
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received %v", sig)

	srv.Stop()
}
