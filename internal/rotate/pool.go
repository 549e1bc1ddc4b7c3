package rotate

import (
	"context"
	"sync"

	"github.com/sbj-ee/FileManager/internal/scan"
)

// RunParallel processes candidates with a fixed worker pool. Parallel
// rotation is safe: candidates are distinct paths, each worker owns the full
// compress-verify-delete sequence for its file, and stats are folded into
// per-worker partials merged at the end. Cancellation stops feeding new
// candidates; in-flight files finish.
func (r *Rotator) RunParallel(ctx context.Context, result scan.Result, workers int) RunStats {
	if workers <= 1 || len(result.Candidates) <= 1 {
		return r.Run(ctx, result)
	}

	r.logger.Info("Starting rotation",
		"total_candidates", len(result.Candidates),
		"dry_run", r.dryRun,
		"workers", workers,
	)

	var stats RunStats
	for _, errMsg := range result.Errors {
		stats.Failed++
		r.metrics.FilesFailedTotal().Inc()
		r.logStructured("ERROR", errMsg, 0, 0, "enumeration error")
	}

	jobs := make(chan scan.Candidate)
	partials := make(chan RunStats, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var part RunStats
			for cand := range jobs {
				outcome := r.Process(cand)
				part.Scanned++
				part.Apply(outcome)
			}
			partials <- part
		}()
	}

feed:
	for _, cand := range result.Candidates {
		select {
		case <-ctx.Done():
			r.logger.Info("Rotation cancelled, draining in-flight work")
			break feed
		case jobs <- cand:
		}
	}
	close(jobs)
	wg.Wait()
	close(partials)

	for part := range partials {
		stats.Merge(part)
	}

	r.logger.Info("Rotation complete",
		"scanned", stats.Scanned,
		"compressed", stats.Compressed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"bytes_saved", stats.BytesSaved,
	)

	return stats
}
