package cmd

import (
	"context"
	"fmt"

	"inventory-sync/core/reconcile"
	"inventory-sync/core/storage"
	syncfeature "inventory-sync/feature/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncSource string
	syncDryRun bool
	syncReport bool
)

// syncCmd runs the configured sources once.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile sources into the inventory",
	Long: `Runs every enabled source in configured order, or only the one named by
--source. A failing source is logged and the next one runs.

Examples:
  # Sync all sources
  inventory-sync sync

  # Preview the changes of one source
  inventory-sync sync --source os-prod --dry-run

  # Sync and upload the run reports to object storage
  inventory-sync sync --report`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&syncSource, "source", "s", "", "Only run the named source")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Reconcile without writing the inventory")
	syncCmd.Flags().BoolVar(&syncReport, "report", false, "Upload run reports to object storage")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, l, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer l.Sync()

	if len(cfg.EnabledSources()) == 0 {
		return fmt.Errorf("no enabled source configured")
	}

	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	if syncReport {
		if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			return err
		}
	}

	svc := syncfeature.NewService(db, client, cfg.Storage, cfg.Sources, l)
	opts := syncfeature.Options{DryRun: syncDryRun, Upload: syncReport}

	if syncSource != "" {
		report, _, err := svc.Run(ctx, syncSource, opts)
		printRunReport(l, report)
		return err
	}

	reports, err := svc.RunAll(ctx, opts)
	for _, report := range reports {
		printRunReport(l, report)
	}
	return err
}

// printRunReport logs the summary of a run and a sample of skipped entities.
func printRunReport(l *zap.Logger, report *reconcile.RunReport) {
	if report == nil {
		return
	}
	s := report.Summary
	l.Info("Run report",
		zap.String("source", report.Source),
		zap.String("run_id", report.ID),
		zap.Bool("dry_run", report.DryRun),
		zap.Int("clusters", s.Clusters),
		zap.Int("created", s.Created),
		zap.Int("updated", s.Updated),
		zap.Int("skipped", s.Skipped),
		zap.Int("errors", s.Errors),
		zap.Int("volumes", s.Volumes),
		zap.Int("devices", s.Devices),
		zap.Int("virtual_machines", s.VirtualMachines),
	)

	const maxShow = 5
	shown := 0
	for _, res := range report.Results {
		if res.Action != reconcile.ActionSkipped && len(res.Warnings) == 0 {
			continue
		}
		if shown == maxShow {
			l.Info("Additional entities not shown, see the full report")
			break
		}
		l.Info("Entity",
			zap.String("object_type", res.ObjectType),
			zap.String("name", res.Name),
			zap.String("action", string(res.Action)),
			zap.String("reason", res.Reason),
			zap.Strings("warnings", res.Warnings),
		)
		shown++
	}
}
