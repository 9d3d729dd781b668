package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/internal/simulator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	port := flag.Int("port", 9100, "trainer stub port")
	apiURL := flag.String("api", "", "monitoring API base URL; empty disables the traffic generator")
	username := flag.String("username", "ops", "API username")
	password := flag.String("password", "", "API password")
	interval := flag.Duration("interval", 2*time.Second, "delay between prediction batches")
	batch := flag.Int("batch", 5, "predictions per batch")
	trainDelay := flag.Duration("train-delay", 3*time.Second, "simulated training duration")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Info("Starting churn simulator")

	profile := simulator.NewProfile(simulator.ProfileConfig{})

	sim := simulator.New(simulator.Config{
		Port:       *port,
		TrainDelay: *trainDelay,
	}, profile)

	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start trainer stub: %w", err)
	}

	var gen *simulator.Generator
	if *apiURL != "" {
		gen = simulator.NewGenerator(simulator.GeneratorConfig{
			APIURL:    *apiURL,
			Username:  *username,
			Password:  *password,
			Interval:  *interval,
			BatchSize: *batch,
		}, profile)
		if err := gen.Start(); err != nil {
			return fmt.Errorf("failed to start traffic generator: %w", err)
		}
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down simulator")
	if gen != nil {
		gen.Stop()
	}
	return sim.Stop()
}
