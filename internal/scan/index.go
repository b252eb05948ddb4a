package scan

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/probelab/redscan/internal/types"
)

// IndexMetadata describes a generated dataset from the owner's point of
// view. The dataset rows themselves stay content-addressed and shared.
type IndexMetadata struct {
	TestCount   int       `json:"testCount"`
	Plugins     []string  `json:"plugins"`
	Strategies  []string  `json:"strategies"`
	Purpose     string    `json:"purpose,omitempty"`
	InjectVar   string    `json:"injectVar,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// IndexEntry is one user-to-dataset association.
type IndexEntry struct {
	UserID    string        `json:"userId"`
	DatasetID string        `json:"datasetId"`
	Metadata  IndexMetadata `json:"metadata"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ErrNotIndexed is returned when a user has no association with a
// dataset.
var ErrNotIndexed = types.NewError(types.DATASET_NOT_FOUND, "dataset not associated with user")

// DatasetIndex maps users to the datasets generated for them. Dataset
// content lives in dataset.Store; the index only carries ownership and
// metadata.
type DatasetIndex interface {
	// Associate records that the dataset belongs to the user. Repeating
	// an existing association is a no-op.
	Associate(ctx context.Context, userID, datasetID string, meta IndexMetadata) error

	// ListForUser returns the user's associations, newest first.
	ListForUser(ctx context.Context, userID string) ([]IndexEntry, error)

	// Get returns the user's association with a dataset, or
	// ErrNotIndexed.
	Get(ctx context.Context, userID, datasetID string) (*IndexEntry, error)
}

// MemoryIndex is an in-process DatasetIndex.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]map[string]*IndexEntry
	now     func() time.Time
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		entries: make(map[string]map[string]*IndexEntry),
		now:     time.Now,
	}
}

func (m *MemoryIndex) Associate(ctx context.Context, userID, datasetID string, meta IndexMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDataset, ok := m.entries[userID]
	if !ok {
		byDataset = make(map[string]*IndexEntry)
		m.entries[userID] = byDataset
	}
	if _, exists := byDataset[datasetID]; exists {
		return nil
	}

	byDataset[datasetID] = &IndexEntry{
		UserID:    userID,
		DatasetID: datasetID,
		Metadata:  meta,
		CreatedAt: m.now(),
	}
	return nil
}

func (m *MemoryIndex) ListForUser(ctx context.Context, userID string) ([]IndexEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]IndexEntry, 0, len(m.entries[userID]))
	for _, entry := range m.entries[userID] {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryIndex) Get(ctx context.Context, userID, datasetID string) (*IndexEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[userID][datasetID]
	if !ok {
		return nil, ErrNotIndexed
	}
	out := *entry
	return &out, nil
}
