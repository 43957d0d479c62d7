package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"pc28/config"

	log "github.com/sirupsen/logrus"
)

// SettleIssue settles one issue and prints the summary
func SettleIssue(ctx context.Context, issue string) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.settlement.SettleIssue(ctx, issue)
	if summary != nil {
		printJSON(summary)
	}
	if err != nil {
		return fmt.Errorf("failed to settle issue %s: %w", issue, err)
	}
	return nil
}

// SyncOnce runs a single acquisition and prints the report
func SyncOnce(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.syncWorker.SyncOnce(ctx)
	if err != nil {
		return fmt.Errorf("draw sync failed: %w", err)
	}
	printJSON(report)
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Warn("Failed to print result")
	}
}
