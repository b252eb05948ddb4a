package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/probelab/redscan/internal/credit"
	"github.com/probelab/redscan/internal/database"
	"github.com/probelab/redscan/internal/dataset"
	"github.com/probelab/redscan/internal/generation"
	"github.com/probelab/redscan/internal/llm/providers"
	"github.com/probelab/redscan/internal/progress"
	"github.com/probelab/redscan/internal/scan"
)

var (
	genTier      string
	genPlugins   []string
	genNumTests  int
	genPurpose   string
	genInjectVar string
	genUser      string
	genLanguage  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an adversarial test dataset",
	Long: `Generate builds a test dataset by prompting the configured provider
for adversarial inputs, deduplicating them, and storing the result
content-addressed in the local database.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genTier, "tier", "", "scan tier template (quick, business)")
	generateCmd.Flags().StringSliceVar(&genPlugins, "plugins", nil, "plugin ids to generate for")
	generateCmd.Flags().IntVarP(&genNumTests, "num-tests", "n", 0, "test cases per plugin")
	generateCmd.Flags().StringVar(&genPurpose, "purpose", "", "purpose of the target system")
	generateCmd.Flags().StringVar(&genInjectVar, "inject-var", "query", "variable the prompt is injected into")
	generateCmd.Flags().StringVar(&genUser, "user", "local", "user to associate the dataset with")
	generateCmd.Flags().StringVar(&genLanguage, "language", "", "generation language modifier")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := buildService()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := svc.GenerateDataset(cmd.Context(), scan.ScanRequest{
		UserID:    genUser,
		Tier:      genTier,
		Plugins:   genPlugins,
		NumTests:  genNumTests,
		Purpose:   genPurpose,
		InjectVar: genInjectVar,
		Config:    generation.PluginConfig{Language: genLanguage},
	})
	if err != nil {
		return err
	}

	return printJSON(result)
}

// buildService assembles a Service over the configured provider and
// the local sqlite database. The returned cleanup closes both the
// database and the progress reporter.
func buildService() (*scan.Service, func(), error) {
	provider, err := providers.NewProvider(cfg.Provider)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, nil, err
	}

	reporter := progress.New(logger)
	svc := scan.NewService(provider, dataset.NewSQLiteStore(db), scan.NewMemoryIndex(),
		credit.NewMemoryLedger(), nil, reporter, cfg.Generation, logger)

	cleanup := func() {
		reporter.Close()
		db.Close()
	}
	return svc, cleanup, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
