package mirror

import (
	"cmp"
	"context"
	"errors"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/chainfund/internal/model"
)

// ProgressFunc is called while loans load.
// current is the number of loans read so far, total is the loan count.
type ProgressFunc func(current, total int)

type loanResult struct {
	loan model.LoanSnapshot
	err  error
}

// Loans reads every loan on the ledger with a bounded worker pool.
// Rows may complete in any order; the result is sorted by loan id.
// Any failed row fails the whole read.
func (m *Mirror) Loans(ctx context.Context, progressFn ProgressFunc) ([]model.LoanSnapshot, error) {
	count, err := m.LoanCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	total := int(count)

	numWorkers := m.workers
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > total {
		numWorkers = total
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan int64, numWorkers)
	results := make([]loanResult, total)
	var wg sync.WaitGroup
	var processed atomic.Int64

	go func() {
		defer close(work)
		for i := range count {
			work <- i
		}
	}()

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for id := range work {
				if ctx.Err() != nil {
					results[id].err = ctx.Err()
					continue
				}
				l, err := m.loan(ctx, id)
				results[id] = loanResult{loan: l, err: err}
				if err != nil {
					cancel()
				}
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), total)
				}
			}
		}()
	}

	wg.Wait()

	// Report the root cause rather than the cancellations it triggered.
	var firstErr error
	for _, r := range results {
		if r.err == nil {
			continue
		}
		if firstErr == nil || errors.Is(firstErr, context.Canceled) {
			firstErr = r.err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	loans := make([]model.LoanSnapshot, 0, total)
	for _, r := range results {
		loans = append(loans, r.loan)
	}
	slices.SortStableFunc(loans, func(a, b model.LoanSnapshot) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return loans, nil
}
