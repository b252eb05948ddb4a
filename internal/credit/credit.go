// Package credit tracks per-user scan credits. Admission control debits
// a credit before a job is queued; failed jobs may be refunded.
package credit

import (
	"context"
	"fmt"
	"sync"

	"github.com/probelab/redscan/internal/types"
)

// ErrInsufficientCredits is returned by Debit when the balance cannot
// cover the requested amount.
var ErrInsufficientCredits = types.NewError(types.CREDIT_INSUFFICIENT, "insufficient credits")

// Ledger is the quota accounting contract.
type Ledger interface {
	// Balance returns the user's current credit balance.
	Balance(ctx context.Context, userID string) (int, error)

	// Debit removes n credits, failing with ErrInsufficientCredits when
	// the balance is too low. The check and the debit are atomic.
	Debit(ctx context.Context, userID string, n int) error

	// Credit adds n credits back to the user's balance.
	Credit(ctx context.Context, userID string, n int) error
}

// MemoryLedger is an in-process Ledger. Balances start at zero; seed
// them with Credit or Grant.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]int)}
}

// Grant sets the user's balance outright.
func (l *MemoryLedger) Grant(userID string, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = n
}

func (l *MemoryLedger) Balance(ctx context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *MemoryLedger) Debit(ctx context.Context, userID string, n int) error {
	if n < 0 {
		return types.NewError(types.CREDIT_DEBIT_FAILED, fmt.Sprintf("invalid debit amount: %d", n))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[userID] < n {
		return ErrInsufficientCredits
	}
	l.balances[userID] -= n
	return nil
}

func (l *MemoryLedger) Credit(ctx context.Context, userID string, n int) error {
	if n < 0 {
		return types.NewError(types.CREDIT_REFUND_FAILED, fmt.Sprintf("invalid credit amount: %d", n))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[userID] += n
	return nil
}
