package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/statement-ledger/internal/common"
	"github.com/Veraticus/statement-ledger/internal/model"
)

// ProgressFunc is called after each period finishes.
type ProgressFunc func(period model.Period, done, total int)

// PeriodResult pairs a period's result with its error.
type PeriodResult struct {
	Result *Result
	Err    error
	Period model.Period
}

// RunPeriods derives several statements concurrently. Every run gets its own
// sequencer; results come back in input order regardless of finish order.
// workers <= 0 runs one goroutine per statement.
func (e *Engine) RunPeriods(ctx context.Context, stmts []*model.Statement, workers int, progress ProgressFunc) ([]PeriodResult, error) {
	if len(stmts) == 0 {
		return nil, nil
	}
	if workers <= 0 || workers > len(stmts) {
		workers = len(stmts)
	}

	work := make(chan int, len(stmts))
	for i := range stmts {
		work <- i
	}
	close(work)

	results := make([]PeriodResult, len(stmts))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(workerID int) {
			defer wg.Done()
			for i := range work {
				stmt := stmts[i]
				if stmt == nil {
					results[i] = PeriodResult{Err: fmt.Errorf("statement %d: %w", i, common.ErrNoStatement)}
					continue
				}
				slog.Debug("worker deriving period", "worker_id", workerID, "period", stmt.Period.String())
				res, err := e.Run(ctx, stmt)
				results[i] = PeriodResult{Period: stmt.Period, Result: res, Err: err}

				mu.Lock()
				done++
				if progress != nil {
					progress(stmt.Period, done, len(stmts))
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Period, r.Err))
		}
	}
	return results, errors.Join(errs...)
}
