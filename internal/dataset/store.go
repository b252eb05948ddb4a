package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/probelab/redscan/internal/database"
	"github.com/probelab/redscan/internal/types"
)

// ErrDatasetNotFound is returned by Get for an unknown dataset id.
var ErrDatasetNotFound = types.NewError(types.DATASET_NOT_FOUND, "dataset not found")

// Store persists datasets keyed by content hash. The store is
// append-only; datasets are never updated or deleted.
type Store interface {
	// GetOrCreate stores the test cases under their content hash unless a
	// dataset with the same hash already exists. The bool reports whether
	// a new row was created.
	GetOrCreate(ctx context.Context, tests []TestCase) (*Dataset, bool, error)

	// Get returns the dataset with the given id, or ErrDatasetNotFound.
	Get(ctx context.Context, id string) (*Dataset, error)

	// Count returns the number of stored datasets.
	Count(ctx context.Context) (int, error)
}

// SQLiteStore implements Store on the shared sqlite database.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a Store backed by db. The datasets schema must
// already be migrated.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, tests []TestCase) (*Dataset, bool, error) {
	id, err := ComputeID(tests)
	if err != nil {
		return nil, false, types.WrapError(types.DATASET_INSERT_FAILED, "compute dataset id", err)
	}

	encoded, err := json.Marshal(tests)
	if err != nil {
		return nil, false, types.WrapError(types.DATASET_INSERT_FAILED, "encode test cases", err)
	}

	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, tests, test_count, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, string(encoded), len(tests), now)
	if err != nil {
		return nil, false, types.WrapError(types.DATASET_INSERT_FAILED, "insert dataset", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, false, types.WrapError(types.DATASET_INSERT_FAILED, "insert dataset", err)
	}

	ds, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return ds, rows > 0, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Dataset, error) {
	var (
		encoded   string
		testCount int
		createdAt time.Time
	)

	row := s.db.QueryRowContext(ctx,
		`SELECT tests, test_count, created_at FROM datasets WHERE id = ?`, id)
	if err := row.Scan(&encoded, &testCount, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDatasetNotFound
		}
		return nil, types.WrapError(types.DB_QUERY_FAILED, "load dataset", err)
	}

	var tests []TestCase
	if err := json.Unmarshal([]byte(encoded), &tests); err != nil {
		return nil, types.WrapError(types.DATASET_DECODE_FAILED, "decode dataset "+id, err)
	}

	return &Dataset{
		ID:        id,
		Tests:     tests,
		TestCount: testCount,
		CreatedAt: createdAt,
	}, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`)
	if err := row.Scan(&n); err != nil {
		return 0, types.WrapError(types.DB_QUERY_FAILED, "count datasets", err)
	}
	return n, nil
}
