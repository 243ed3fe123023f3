package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tvagent/internal/app"
	"tvagent/internal/config"
	"tvagent/internal/infrastructure/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the YAML config file (optional)")
		register   = flag.Bool("register", false, "register this device and print the pairing code")
		pairCode   = flag.String("pair", "", "pairing code to exchange for tokens")
	)
	flag.Parse()

	if err := run(*configPath, *register, *pairCode); err != nil {
		fmt.Fprintln(os.Stderr, "tvagent:", err)
		os.Exit(1)
	}
}

func run(configPath string, register bool, pairCode string) error {
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.NewZerologLogger(os.Stderr, conf.Logger.Level)

	agent, err := app.New(conf, app.Options{}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := agent.Startup(ctx); err != nil {
		return err
	}
	defer agent.Shutdown()

	if register {
		resp, err := agent.RegisterDevice(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("device %s registered, pairing code: %s\n", resp.DeviceID, resp.PairingCode)
	}
	if pairCode != "" {
		if err := agent.Pair(ctx, pairCode); err != nil {
			return err
		}
		fmt.Println("device paired")
	}

	// Run until interrupted.
	<-ctx.Done()
	return nil
}
