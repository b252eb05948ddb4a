package generation

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"text/template"
	"time"

	"golang.org/x/time/rate"

	"github.com/probelab/redscan/internal/dataset"
	"github.com/probelab/redscan/internal/llm"
	"github.com/probelab/redscan/internal/progress"
	"github.com/probelab/redscan/internal/types"
)

// varietyInstructions is rotated by attempt number so retries do not
// reuse the exact same framing.
var varietyInstructions = []string{
	"Generate diverse and creative test prompts",
	"Create unique and varied prompts",
	"Develop distinct and innovative test cases",
	"Produce original and different prompts",
	"Generate creative and unique test scenarios",
}

// generatorMaxConsecutiveRetries is the no-progress budget the
// generator hands the retry driver. Higher than the driver default
// because providers frequently repeat themselves across rounds.
const generatorMaxConsecutiveRetries = 5

// TemplateGetter supplies the generation template source. Overriding
// it lets a caller swap templates without defining a new plugin.
type TemplateGetter func() (string, error)

// templateData is the rendering context for a generation template.
type templateData struct {
	Purpose            string
	N                  int
	Examples           []string
	Attempt            int
	VarietyInstruction string
	ExistingCount      int
}

// Generator produces test cases for one plugin by repeatedly prompting
// the provider and deduplicating the results.
type Generator struct {
	plugin     Plugin
	provider   llm.Provider
	purpose    string
	injectVar  string
	config     PluginConfig
	logger     *slog.Logger
	reporter   *progress.Reporter
	maxRetries int
}

// NewGenerator creates a Generator. The reporter is optional. The
// generated prompt is injected into each test case under injectVar.
func NewGenerator(plugin Plugin, provider llm.Provider, purpose, injectVar string, cfg PluginConfig, logger *slog.Logger, reporter *progress.Reporter) *Generator {
	return &Generator{
		plugin:     plugin,
		provider:   provider,
		purpose:    purpose,
		injectVar:  injectVar,
		config:     cfg,
		logger:     logger.With("component", "generator", "plugin", ShortPluginID(plugin.ID())),
		reporter:   reporter,
		maxRetries: generatorMaxConsecutiveRetries,
	}
}

// SetMaxConsecutiveRetries overrides the no-progress budget handed to
// the retry driver. Values below zero are ignored.
func (g *Generator) SetMaxConsecutiveRetries(n int) {
	if n >= 0 {
		g.maxRetries = n
	}
}

// batchSizeFor computes the adaptive batch size for a target count.
func batchSizeFor(n int) int {
	size := n / 8
	if size < 5 {
		size = 5
	}
	if size > 20 {
		size = 20
	}
	return size
}

// GenerateTests produces up to n test cases. Ordinary provider
// failures never surface as an error; they only shrink the result, and
// the achieved success rate is logged. delay is an inter-batch pause
// honored after every provider call. A nil templateGetter uses the
// plugin's own template.
func (g *Generator) GenerateTests(ctx context.Context, n int, delay time.Duration, templateGetter TemplateGetter) ([]dataset.TestCase, error) {
	if n <= 0 {
		return nil, types.NewError(types.PLUGIN_INVALID_CONFIG, "test count must be positive")
	}
	if templateGetter == nil {
		templateGetter = g.plugin.Template
	}

	source, err := templateGetter()
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(ShortPluginID(g.plugin.ID())).Parse(source)
	if err != nil {
		return nil, types.WrapError(types.PLUGIN_INVALID_CONFIG, "parse generation template", err)
	}

	g.logger.Info("starting test generation", "target", n)
	g.report("Initializing test generation", 0, n)

	batchSize := batchSizeFor(n)
	batches := (n + batchSize - 1) / batchSize

	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
		limiter.Allow()
	}

	op := func(ctx context.Context, current []string) ([]string, error) {
		remaining := n - len(current)
		currentBatchSize := remaining
		if currentBatchSize > batchSize {
			currentBatchSize = batchSize
		}
		attempt := len(current)/batchSize + 1

		g.report(fmt.Sprintf("Processing batch %d/%d", attempt, batches), len(current), n)

		rendered, err := g.renderTemplate(tmpl, currentBatchSize, attempt, len(current))
		if err != nil {
			g.logger.Error("template rendering failed", "error", err)
			return nil, err
		}

		resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{{Role: llm.RoleUser, Content: rendered}},
		})

		if limiter != nil {
			if werr := limiter.Wait(ctx); werr != nil {
				return nil, werr
			}
		}

		if err != nil {
			g.logger.Error("provider call failed, skipping round", "error", err)
			return nil, err
		}
		if resp.Content == "" {
			g.logger.Error("empty response from provider, skipping round")
			return nil, nil
		}

		parsed := ParseGeneratedPrompts(resp.Content)
		g.logger.Debug("batch parsed", "batch", attempt, "prompts", len(parsed))
		return parsed, nil
	}

	all := RetryWithDeduplication(ctx, op, n, g.maxRetries,
		NormalizePrompt, g.reporter, g.plugin.ID())
	prompts := SampleArray(all, n)

	g.logger.Info("generation finished", "generated", len(prompts), "target", n)
	g.report("Converting to test cases", len(prompts), n)

	if len(prompts) != n {
		successRate := len(prompts) * 100 / n
		if len(prompts)*2 < n {
			g.logger.Warn("low generation success rate",
				"rate_pct", successRate, "generated", len(prompts), "target", n,
				"hint", "review the plugin template or provider settings")
		} else {
			g.logger.Warn("generated fewer prompts than requested",
				"rate_pct", successRate, "generated", len(prompts), "target", n)
		}
	}

	testCases := g.promptsToTestCases(prompts)
	g.report("Test generation completed", n, n)
	return testCases, nil
}

func (g *Generator) renderTemplate(tmpl *template.Template, batchSize, attempt, existing int) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, templateData{
		Purpose:            g.purpose,
		N:                  batchSize,
		Examples:           g.config.Examples,
		Attempt:            attempt,
		VarietyInstruction: varietyInstructions[attempt%len(varietyInstructions)],
		ExistingCount:      existing,
	})
	if err != nil {
		return "", err
	}

	final := AppendModifiers(buf.String(), g.config)

	if attempt > 1 {
		final += fmt.Sprintf("\n\nIMPORTANT: This is attempt %d. Generate prompts that are completely different from previous attempts. Avoid repetition and ensure maximum variety and creativity.", attempt)
	}
	return final, nil
}

// promptsToTestCases sorts the prompts lexicographically and maps each
// one to a test case. The sort makes dataset content independent of
// arrival order.
func (g *Generator) promptsToTestCases(prompts []string) []dataset.TestCase {
	sorted := make([]string, len(prompts))
	copy(sorted, prompts)
	sort.Strings(sorted)

	metadata := dataset.Metadata{
		PluginID:  ShortPluginID(g.plugin.ID()),
		Modifiers: g.config.Modifiers,
	}
	if graded, ok := g.plugin.(interface{ Severity() string }); ok {
		metadata.Severity = graded.Severity()
	}

	testCases := make([]dataset.TestCase, 0, len(sorted))
	for _, prompt := range sorted {
		testCases = append(testCases, dataset.TestCase{
			Vars:     map[string]string{g.injectVar: prompt},
			Assert:   g.plugin.Assertions(prompt),
			Metadata: metadata,
		})
	}
	return testCases
}

func (g *Generator) report(message string, completed, total int) {
	if g.reporter == nil {
		return
	}
	g.reporter.Report(progress.PhasePluginGeneration, message, completed, total,
		progress.Opts{Plugin: ShortPluginID(g.plugin.ID())})
}
