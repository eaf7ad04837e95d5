// Command aulasync keeps the offline state of an Aula Virtual client on a
// shared store and drains its pending changes whenever the API is reachable.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file, yaml, toml or json (optional)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading AULASYNC_* variables (optional)")
	flag.Parse()

	cfg, err := loadConfig(*envFile, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aulasync: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := serve(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "aulasync: %v\n", err)
		return 1
	}
	return 0
}
