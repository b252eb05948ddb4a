// Package scan glues the pipeline together: resolving scan requests
// against tier templates, generating datasets, indexing them per user,
// and admitting paid scan jobs into the queue.
package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/probelab/redscan/internal/config"
	"github.com/probelab/redscan/internal/credit"
	"github.com/probelab/redscan/internal/dataset"
	"github.com/probelab/redscan/internal/generation"
	"github.com/probelab/redscan/internal/llm"
	"github.com/probelab/redscan/internal/progress"
	"github.com/probelab/redscan/internal/queue"
	"github.com/probelab/redscan/internal/types"
)

// ScanRequest describes one generation or scan job. Either Tier or an
// explicit plugin list must be set; tier values fill in anything left
// blank.
type ScanRequest struct {
	UserID    string                  `json:"userId" yaml:"user_id"`
	Tier      string                  `json:"tier,omitempty" yaml:"tier,omitempty"`
	Plugins   []string                `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	NumTests  int                     `json:"numTests,omitempty" yaml:"num_tests,omitempty"`
	Purpose   string                  `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	InjectVar string                  `json:"injectVar,omitempty" yaml:"inject_var,omitempty"`
	Config    generation.PluginConfig `json:"config,omitempty" yaml:"config,omitempty"`

	strategies []string
}

// GenerationResult reports the outcome of a dataset generation.
type GenerationResult struct {
	JobID     types.ID `json:"jobId"`
	DatasetID string   `json:"datasetId"`
	TestCount int      `json:"testCount"`
	Status    string   `json:"status"`
}

// StartResult reports an admitted scan job.
type StartResult struct {
	JobID    types.ID `json:"jobId"`
	Position int      `json:"queuePosition"`
}

// Service coordinates generation, storage, indexing, and admission.
type Service struct {
	provider  llm.Provider
	store     dataset.Store
	index     DatasetIndex
	ledger    credit.Ledger
	scheduler *queue.Scheduler
	reporter  *progress.Reporter
	genCfg    config.GenerationConfig
	logger    *slog.Logger
}

// NewService wires a Service. The scheduler and reporter are optional:
// without a scheduler StartScan fails, and without a reporter progress
// is not forwarded.
func NewService(
	provider llm.Provider,
	store dataset.Store,
	index DatasetIndex,
	ledger credit.Ledger,
	scheduler *queue.Scheduler,
	reporter *progress.Reporter,
	genCfg config.GenerationConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		provider:  provider,
		store:     store,
		index:     index,
		ledger:    ledger,
		scheduler: scheduler,
		reporter:  reporter,
		genCfg:    genCfg,
		logger:    logger.With("component", "scan"),
	}
}

// SetScheduler attaches the scheduler after construction. The service
// and the scheduler reference each other (the scheduler runs the
// service's Runner), so one side has to be wired late.
func (s *Service) SetScheduler(scheduler *queue.Scheduler) {
	s.scheduler = scheduler
}

// resolve fills a request from its tier template and applies defaults.
func (s *Service) resolve(req ScanRequest) (ScanRequest, error) {
	if req.Tier != "" {
		tier, err := LoadTier(req.Tier)
		if err != nil {
			return ScanRequest{}, err
		}
		if len(req.Plugins) == 0 {
			req.Plugins = tier.Plugins
		}
		if req.NumTests == 0 {
			req.NumTests = tier.NumTests
		}
		if req.Purpose == "" {
			req.Purpose = tier.Purpose
		}
		req.strategies = tier.Strategies
	}

	if len(req.Plugins) == 0 {
		return ScanRequest{}, types.NewError(types.PLUGIN_INVALID_CONFIG, "scan request names no plugins")
	}
	if req.NumTests <= 0 {
		return ScanRequest{}, types.NewError(types.PLUGIN_INVALID_CONFIG, "scan request has no test count")
	}
	if req.InjectVar == "" {
		req.InjectVar = "query"
	}
	return req, nil
}

// GenerateDataset generates test cases for every plugin in the request,
// stores them content-addressed, and associates the dataset with the
// user. Generation shortfalls are not errors; only storage and
// configuration failures are.
func (s *Service) GenerateDataset(ctx context.Context, req ScanRequest) (*GenerationResult, error) {
	jobID := types.NewID()

	resolved, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("starting dataset generation",
		"job_id", jobID, "user_id", resolved.UserID,
		"plugins", len(resolved.Plugins), "num_tests", resolved.NumTests)

	var tests []dataset.TestCase
	for _, pluginID := range resolved.Plugins {
		plugin, err := generation.BuiltinPlugin(pluginID)
		if err != nil {
			return nil, err
		}

		gen := generation.NewGenerator(plugin, s.provider, resolved.Purpose,
			resolved.InjectVar, resolved.Config, s.logger, s.reporter)
		if s.genCfg.MaxConsecutiveRetries > 0 {
			gen.SetMaxConsecutiveRetries(s.genCfg.MaxConsecutiveRetries)
		}

		cases, err := gen.GenerateTests(ctx, resolved.NumTests, s.genCfg.Delay, nil)
		if err != nil {
			return nil, err
		}
		tests = append(tests, cases...)
	}

	ds, created, err := s.store.GetOrCreate(ctx, tests)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("created dataset", "dataset_id", ds.ID, "tests", ds.TestCount)
	} else {
		s.logger.Info("dataset already exists, reusing", "dataset_id", ds.ID)
	}

	err = s.index.Associate(ctx, resolved.UserID, ds.ID, IndexMetadata{
		TestCount:   ds.TestCount,
		Plugins:     resolved.Plugins,
		Strategies:  resolved.strategies,
		Purpose:     resolved.Purpose,
		InjectVar:   resolved.InjectVar,
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return &GenerationResult{
		JobID:     jobID,
		DatasetID: ds.ID,
		TestCount: ds.TestCount,
		Status:    "completed",
	}, nil
}

// StartScan debits one scan credit and enqueues the request. The debit
// happens at admission so a user cannot stack jobs beyond their quota;
// the queue refunds it for early non-cancelled failures.
func (s *Service) StartScan(ctx context.Context, req ScanRequest) (*StartResult, error) {
	resolved, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.Balance(ctx, resolved.UserID)
	if err != nil {
		return nil, err
	}
	if balance < 1 {
		return nil, credit.ErrInsufficientCredits
	}
	if err := s.ledger.Debit(ctx, resolved.UserID, 1); err != nil {
		return nil, err
	}

	jobID := s.scheduler.Enqueue(resolved.UserID, resolved)
	position, _ := s.scheduler.Position(resolved.UserID, jobID)

	s.logger.Info("scan admitted", "job_id", jobID, "user_id", resolved.UserID, "position", position)
	return &StartResult{JobID: jobID, Position: position}, nil
}

// Runner adapts the service into the queue's execution collaborator: a
// dequeued ScanRequest has its dataset generated, with progress and
// logs forwarded onto the job record.
func (s *Service) Runner() queue.Runner {
	return queue.RunnerFunc(func(ctx context.Context, cfg any, logFn func(string), progressFn func(int, int)) (any, error) {
		req, ok := cfg.(ScanRequest)
		if !ok {
			return nil, types.NewError(types.JOB_EXECUTION_FAILED, "job config is not a scan request")
		}

		if s.reporter != nil {
			s.reporter.SetCallback(func(e progress.Event) {
				progressFn(e.Completed, e.Total)
				logFn(e.Message)
			})
			defer s.reporter.SetCallback(nil)
		}

		result, err := s.GenerateDataset(ctx, req)
		if err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return result, nil
	})
}
