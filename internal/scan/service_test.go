package scan

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/redscan/internal/config"
	"github.com/probelab/redscan/internal/credit"
	"github.com/probelab/redscan/internal/dataset"
	"github.com/probelab/redscan/internal/llm/providers"
	"github.com/probelab/redscan/internal/queue"
	"github.com/probelab/redscan/internal/types"
)

const fiveProposals = "Prompt: echo\nPrompt: delta\nPrompt: charlie\nPrompt: bravo\nPrompt: alpha"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type serviceFixture struct {
	service   *Service
	store     *dataset.MemoryStore
	index     *MemoryIndex
	ledger    *credit.MemoryLedger
	scheduler *queue.Scheduler
}

func newFixture(t *testing.T, responses []string) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		store:  dataset.NewMemoryStore(),
		index:  NewMemoryIndex(),
		ledger: credit.NewMemoryLedger(),
	}

	provider := providers.NewMockProvider(responses)
	f.service = NewService(provider, f.store, f.index, f.ledger, nil, nil,
		config.GenerationConfig{}, discardLogger())

	f.scheduler = queue.NewScheduler(config.QueueConfig{}, f.service.Runner(),
		f.ledger, discardLogger())
	f.service.SetScheduler(f.scheduler)
	return f
}

func TestLoadTier(t *testing.T) {
	quick, err := LoadTier("quick")
	require.NoError(t, err)
	assert.Equal(t, "quick", quick.Name)
	assert.Contains(t, quick.Plugins, "prompt-extraction")
	assert.Contains(t, quick.Strategies, "jailbreak")
	assert.Positive(t, quick.NumTests)

	business, err := LoadTier("business")
	require.NoError(t, err)
	assert.Greater(t, len(business.Plugins), len(quick.Plugins))

	_, err = LoadTier("platinum")
	assert.Error(t, err)

	assert.Equal(t, []string{"business", "quick"}, TierNames())
}

func TestResolveTierDefaults(t *testing.T) {
	f := newFixture(t, nil)

	resolved, err := f.service.resolve(ScanRequest{UserID: "alice", Tier: "quick"})
	require.NoError(t, err)

	tier, _ := LoadTier("quick")
	assert.Equal(t, tier.Plugins, resolved.Plugins)
	assert.Equal(t, tier.NumTests, resolved.NumTests)
	assert.Equal(t, tier.Purpose, resolved.Purpose)
	assert.Equal(t, "query", resolved.InjectVar)

	// Explicit values win over tier values.
	resolved, err = f.service.resolve(ScanRequest{
		UserID: "alice", Tier: "quick", Plugins: []string{"hijacking"}, NumTests: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hijacking"}, resolved.Plugins)
	assert.Equal(t, 3, resolved.NumTests)
}

func TestResolveRejectsEmptyRequest(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.resolve(ScanRequest{UserID: "alice"})
	assert.Error(t, err)

	_, err = f.service.resolve(ScanRequest{UserID: "alice", Plugins: []string{"hijacking"}})
	assert.Error(t, err, "missing test count")

	_, err = f.service.resolve(ScanRequest{UserID: "alice", Tier: "platinum"})
	assert.Error(t, err)
}

func TestGenerateDataset(t *testing.T) {
	f := newFixture(t, []string{fiveProposals})

	result, err := f.service.GenerateDataset(context.Background(), ScanRequest{
		UserID:   "alice",
		Plugins:  []string{"hijacking"},
		NumTests: 5,
		Purpose:  "support bot",
	})
	require.NoError(t, err)

	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, 5, result.TestCount)
	require.NotEmpty(t, result.DatasetID)

	ds, err := f.store.Get(context.Background(), result.DatasetID)
	require.NoError(t, err)
	assert.Len(t, ds.Tests, 5)
	assert.Equal(t, "hijacking", ds.Tests[0].Metadata.PluginID)

	entry, err := f.index.Get(context.Background(), "alice", result.DatasetID)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Metadata.TestCount)
	assert.Equal(t, []string{"hijacking"}, entry.Metadata.Plugins)
}

func TestGenerateDatasetDeduplicatesAcrossUsers(t *testing.T) {
	f := newFixture(t, []string{fiveProposals})

	req := ScanRequest{Plugins: []string{"hijacking"}, NumTests: 5, Purpose: "support bot"}

	req.UserID = "alice"
	first, err := f.service.GenerateDataset(context.Background(), req)
	require.NoError(t, err)

	req.UserID = "bob"
	second, err := f.service.GenerateDataset(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.DatasetID, second.DatasetID)

	count, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count, "identical content collapses to one dataset")

	// Both users see it in their own index.
	_, err = f.index.Get(context.Background(), "alice", first.DatasetID)
	assert.NoError(t, err)
	_, err = f.index.Get(context.Background(), "bob", second.DatasetID)
	assert.NoError(t, err)
}

func TestGenerateDatasetUnknownPlugin(t *testing.T) {
	f := newFixture(t, nil)

	result, err := f.service.GenerateDataset(context.Background(), ScanRequest{
		UserID: "alice", Plugins: []string{"no-such-plugin"}, NumTests: 5,
	})
	require.Error(t, err)
	assert.Nil(t, result)

	var coded *types.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, types.PLUGIN_UNKNOWN, coded.Code)
}

func TestStartScanAdmission(t *testing.T) {
	f := newFixture(t, []string{fiveProposals})
	f.ledger.Grant("alice", 2)

	result, err := f.service.StartScan(context.Background(), ScanRequest{
		UserID: "alice", Plugins: []string{"hijacking"}, NumTests: 5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.JobID)

	// The credit is debited at admission.
	balance, _ := f.ledger.Balance(context.Background(), "alice")
	assert.Equal(t, 1, balance)

	require.Eventually(t, func() bool {
		job, ok := f.scheduler.UserJob("alice", result.JobID)
		return ok && job.Status == queue.StatusComplete
	}, 2*time.Second, 5*time.Millisecond)

	job, _ := f.scheduler.UserJob("alice", result.JobID)
	generated, ok := job.Result.(*GenerationResult)
	require.True(t, ok)
	assert.Equal(t, 5, generated.TestCount)

	// The generated dataset is indexed for the user.
	entries, err := f.index.ListForUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestStartScanInsufficientCredits(t *testing.T) {
	f := newFixture(t, []string{fiveProposals})

	_, err := f.service.StartScan(context.Background(), ScanRequest{
		UserID: "alice", Plugins: []string{"hijacking"}, NumTests: 5,
	})
	assert.ErrorIs(t, err, credit.ErrInsufficientCredits)

	status := f.scheduler.Status()
	assert.Equal(t, 0, status.TotalJobs, "nothing is enqueued without credit")
}

func TestMemoryIndex(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Associate(ctx, "alice", "ds1", IndexMetadata{TestCount: 3}))
	require.NoError(t, idx.Associate(ctx, "alice", "ds1", IndexMetadata{TestCount: 99}))

	entry, err := idx.Get(ctx, "alice", "ds1")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Metadata.TestCount, "re-association is a no-op")

	_, err = idx.Get(ctx, "bob", "ds1")
	assert.ErrorIs(t, err, ErrNotIndexed)

	entries, err := idx.ListForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = idx.ListForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
