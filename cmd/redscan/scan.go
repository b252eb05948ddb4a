package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/probelab/redscan/internal/credit"
	"github.com/probelab/redscan/internal/database"
	"github.com/probelab/redscan/internal/dataset"
	"github.com/probelab/redscan/internal/generation"
	"github.com/probelab/redscan/internal/llm/providers"
	"github.com/probelab/redscan/internal/progress"
	"github.com/probelab/redscan/internal/queue"
	"github.com/probelab/redscan/internal/scan"
)

var (
	scanTier     string
	scanPlugins  []string
	scanNumTests int
	scanPurpose  string
	scanUser     string
	scanCredits  int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a scan job through the queue",
	Long: `Scan admits a job into the scheduler (debiting one scan credit),
waits for it to drain, and prints the job record. This is the full
admission-to-completion path in a single process.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanTier, "tier", "quick", "scan tier template (quick, business)")
	scanCmd.Flags().StringSliceVar(&scanPlugins, "plugins", nil, "plugin ids to generate for")
	scanCmd.Flags().IntVarP(&scanNumTests, "num-tests", "n", 0, "test cases per plugin")
	scanCmd.Flags().StringVar(&scanPurpose, "purpose", "", "purpose of the target system")
	scanCmd.Flags().StringVar(&scanUser, "user", "local", "user running the scan")
	scanCmd.Flags().IntVar(&scanCredits, "credits", 1, "scan credits to grant the user")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	provider, err := providers.NewProvider(cfg.Provider)
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.InitSchema(); err != nil {
		return err
	}

	reporter := progress.New(logger)
	defer reporter.Close()

	ledger := credit.NewMemoryLedger()
	ledger.Grant(scanUser, scanCredits)

	svc := scan.NewService(provider, dataset.NewSQLiteStore(db), scan.NewMemoryIndex(),
		ledger, nil, reporter, cfg.Generation, logger)

	scheduler := queue.NewScheduler(cfg.Queue, svc.Runner(), ledger, logger)
	scheduler.StartSweeper(ctx)
	svc.SetScheduler(scheduler)

	result, err := svc.StartScan(ctx, scan.ScanRequest{
		UserID:   scanUser,
		Tier:     scanTier,
		Plugins:  scanPlugins,
		NumTests: scanNumTests,
		Purpose:  scanPurpose,
		Config:   generation.PluginConfig{},
	})
	if err != nil {
		return err
	}

	logger.Info("scan admitted", "job_id", result.JobID, "position", result.Position)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			scheduler.Cancel(scanUser, result.JobID)
			return ctx.Err()
		case <-ticker.C:
		}

		job, ok := scheduler.UserJob(scanUser, result.JobID)
		if !ok {
			return fmt.Errorf("job %s disappeared", result.JobID)
		}
		if job.Status.Terminal() {
			return printJSON(job)
		}
	}
}
