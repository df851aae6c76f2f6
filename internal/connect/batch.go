package connect

import (
	"context"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/apierror"
	"github.com/rs/zerolog"
)

// BatchResult aggregates the outcome of a chunked bulk operation.
// RemainingQuota is a provider pass-through (the bulk-lead endpoint reports
// plan quota); -1 means the provider did not report it, and in particular a
// batch that was filtered down to nothing and never issued a request returns
// -1 while a batch that ran and uploaded zero items reports the real quota.
type BatchResult struct {
	Succeeded      int `json:"succeeded"`
	Duplicated     int `json:"duplicated"`
	Invalid        int `json:"invalid"`
	Errored        int `json:"errored"`
	TotalProcessed int `json:"totalProcessed"`
	RemainingQuota int `json:"remainingQuota"`
}

// EmptyBatchResult returns the zero-valued aggregate used when no request was
// issued.
func EmptyBatchResult() BatchResult {
	return BatchResult{RemainingQuota: -1}
}

// Merge folds a chunk result into the running aggregate.
func (r *BatchResult) Merge(chunk BatchResult) {
	r.Succeeded += chunk.Succeeded
	r.Duplicated += chunk.Duplicated
	r.Invalid += chunk.Invalid
	r.Errored += chunk.Errored
	r.TotalProcessed += chunk.TotalProcessed
	if chunk.RemainingQuota >= 0 {
		r.RemainingQuota = chunk.RemainingQuota
	}
}

// SendFunc submits one chunk to the provider and reports its counters.
type SendFunc[T any] func(ctx context.Context, chunk []T) (BatchResult, error)

// BatchOptions carries the provider-declared batching limits.
//
// Keep is the minimal identity check: items failing it are dropped before
// chunking and never counted or sent. IsFatal partitions chunk errors; a
// non-fatal error marks the chunk's items as errored and the batch continues.
// A nil IsFatal treats every error as fatal.
type BatchOptions[T any] struct {
	ChunkSize int
	Delay     time.Duration
	Keep      func(T) bool
	IsFatal   func(error) bool
}

// sleep is swapped out by tests; the default honours context cancellation.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunBatches filters items, partitions them into ordered chunks of at most
// ChunkSize, and sends them sequentially with Delay between chunk
// completions. Chunks are never issued in parallel: the sequencing is the
// rate-limiting mechanism.
//
// On a fatal chunk error the aggregate accumulated so far is attached to the
// returned ServiceError (details: partialResults, processedBeforeFailure,
// batchesCompleted, totalItems, totalBatches) and also returned directly.
func RunBatches[T any](ctx context.Context, provider string, items []T, opts BatchOptions[T], send SendFunc[T]) (BatchResult, error) {
	kept := items
	if opts.Keep != nil {
		kept = make([]T, 0, len(items))
		for _, item := range items {
			if opts.Keep(item) {
				kept = append(kept, item)
			}
		}
	}

	if len(kept) == 0 {
		return EmptyBatchResult(), nil
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1
	}

	chunks := make([][]T, 0, (len(kept)+chunkSize-1)/chunkSize)
	for start := 0; start < len(kept); start += chunkSize {
		end := min(start+chunkSize, len(kept))
		chunks = append(chunks, kept[start:end])
	}

	logger := zerolog.Ctx(ctx)
	agg := EmptyBatchResult()

	for i, chunk := range chunks {
		result, err := send(ctx, chunk)
		if err != nil {
			if opts.IsFatal != nil && !opts.IsFatal(err) {
				// provider-declared non-fatal: the chunk's items are counted
				// as errored and the batch continues
				logger.Warn().
					Str("provider", provider).
					Int("chunk", i+1).
					Int("chunkItems", len(chunk)).
					Err(err).
					Msg("non-fatal chunk error, continuing batch")

				agg.Errored += len(chunk)
				agg.TotalProcessed += len(chunk)
			} else {
				return agg, fatalBatchError(provider, err, agg, i, len(chunks), len(kept))
			}
		} else {
			agg.Merge(result)
		}

		if i < len(chunks)-1 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				return agg, fatalBatchError(provider, err, agg, i+1, len(chunks), len(kept))
			}
		}
	}

	return agg, nil
}

func fatalBatchError(provider string, err error, agg BatchResult, completed, total, totalItems int) *apierror.ServiceError {
	return apierror.Classify(provider, err).
		WithDetail("partialResults", agg).
		WithDetail("processedBeforeFailure", agg.TotalProcessed).
		WithDetail("batchesCompleted", completed).
		WithDetail("totalBatches", total).
		WithDetail("totalItems", totalItems)
}
