// Package generation implements adversarial prompt generation: the
// retrying deduplication driver, response parsing, plugin definitions,
// and the generator that turns provider completions into test cases.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/probelab/redscan/internal/progress"
)

// Operation produces a round of candidate items given everything
// accumulated so far. Returning an error marks the round failed; the
// driver keeps going instead of propagating it.
type Operation[T any] func(ctx context.Context, current []T) ([]T, error)

// KeyFunc derives the deduplication key for an item.
type KeyFunc[T any] func(T) string

// JSONKey is the default deduplication key: the JSON serialization of
// the item.
func JSONKey[T any](item T) string {
	encoded, err := json.Marshal(item)
	if err != nil {
		return fmt.Sprintf("%v", item)
	}
	return string(encoded)
}

// RetryWithDeduplication repeatedly invokes op, appending only items
// whose key has not been seen, until targetCount items are accumulated
// or maxConsecutiveRetries+1 consecutive rounds add nothing new. A
// round that returns an error counts as a no-progress round. The
// accumulated slice is returned even when short of target; falling
// short is the caller's problem to grade, not an error.
//
// Pass a negative maxConsecutiveRetries to use the default of 2, and a
// nil keyFn to use JSONKey. The reporter and pluginID are optional.
func RetryWithDeduplication[T any](
	ctx context.Context,
	op Operation[T],
	targetCount int,
	maxConsecutiveRetries int,
	keyFn KeyFunc[T],
	reporter *progress.Reporter,
	pluginID string,
) []T {
	if maxConsecutiveRetries < 0 {
		maxConsecutiveRetries = 2
	}
	if keyFn == nil {
		keyFn = JSONKey[T]
	}

	maxAttempts := maxConsecutiveRetries + 1
	all := make([]T, 0, targetCount)
	seen := make(map[string]struct{}, targetCount)
	consecutiveRetries := 0
	attempt := 0

	for len(all) < targetCount && consecutiveRetries <= maxConsecutiveRetries {
		if ctx.Err() != nil {
			break
		}
		attempt++

		if reporter != nil {
			reporter.Report(progress.PhasePluginGeneration,
				fmt.Sprintf("Attempt %d: collected %d/%d items", attempt, len(all), targetCount),
				len(all), targetCount,
				progress.Opts{Plugin: pluginID})
		}

		newItems, err := op(ctx, all)
		if err != nil {
			consecutiveRetries++
			continue
		}

		added := 0
		for _, item := range newItems {
			key := keyFn(item)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, item)
			added++
		}

		if reporter != nil {
			reporter.Report(progress.PhasePluginGeneration,
				fmt.Sprintf("Attempt %d/%d: %d new, %d unique", attempt, maxAttempts, len(newItems), added),
				len(all), targetCount,
				progress.Opts{Plugin: pluginID})
		}

		if added == 0 {
			consecutiveRetries++
		} else {
			consecutiveRetries = 0
		}
	}

	return all
}

// SampleArray returns n items sampled uniformly without replacement.
// When n is at least len(items) a copy of the whole slice is returned.
func SampleArray[T any](items []T, n int) []T {
	if n >= len(items) {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}

	out := make([]T, len(items))
	copy(out, items)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out[:n]
}
