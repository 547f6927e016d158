// cmd/magscan/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/tamzrod/magscan/internal/config"
	"github.com/tamzrod/magscan/internal/scanner"
)

type Options struct {
	Config string `short:"c" long:"config" description:"YAML config file overlaid on the built-in defaults"`
	Sim    bool   `long:"sim" description:"Use the simulated sensor and actuator"`

	Args struct {
		Host         string `positional-arg-name:"ip" description:"Workstation address receiving the data"`
		DataPort     int    `positional-arg-name:"data-port" description:"TCP port for stamped records"`
		ControlPort  int    `positional-arg-name:"control-port" description:"Local TCP port for commands"`
		DatagramPort int    `positional-arg-name:"datagram-port" description:"UDP port for raw batches"`
	} `positional-args:"yes" required:"yes"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "magscan - magnetic field scanner acquisition"

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	cfg.ApplyDestination(opts.Args.Host, opts.Args.DataPort, opts.Args.ControlPort, opts.Args.DatagramPort)
	if opts.Sim {
		cfg.Scanner.Sensor.Kind = config.SensorSim
		cfg.Scanner.Actuator.Kind = config.ActuatorSim
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	// --------------------
	// Build + run
	// --------------------

	rt, err := scanner.New(cfg)
	if err != nil {
		log.Fatalf("scanner start failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Printf("shutdown: %v", err)
		os.Exit(1)
	}
}
