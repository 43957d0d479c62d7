package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pc28/cmd"
	"pc28/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "migrate":
			err = handleMigrationCommand()
		case "settle":
			err = handleSettleCommand()
		case "sync":
			err = cmd.SyncOnce(signalContext())
		case "run":
			err = cmd.Run(signalContext())
		default:
			err = fmt.Errorf("unknown command: %s (expected run, migrate, settle or sync)", os.Args[1])
		}
		if err != nil {
			log.Fatalf("%s error: %v", os.Args[1], err)
		}
		return
	}

	if err := cmd.Run(signalContext()); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	return ctx
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: pc28 migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

func handleSettleCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: pc28 settle <issue>")
	}
	return cmd.SettleIssue(signalContext(), os.Args[2])
}
