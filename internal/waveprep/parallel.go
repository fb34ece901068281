package waveprep

import (
	"context"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// parallelThreshold is the wave count at which loading fans out.
// Two files are not worth the goroutine bookkeeping.
const parallelThreshold = 3

// PrepareAll prepares every wave and returns them in the order of specs.
// With three or more waves the files load concurrently, bounded by
// maxParallel (0 means one worker per CPU). The load is all-or-nothing:
// the first failure cancels the remaining loads and is returned.
func (p *Preparer) PrepareAll(ctx context.Context, specs []Spec, maxParallel int) ([]*PreparedWave, error) {
	if len(specs) < parallelThreshold {
		waves := make([]*PreparedWave, 0, len(specs))
		for _, spec := range specs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			pw, err := p.Prepare(spec)
			if err != nil {
				return nil, err
			}
			waves = append(waves, pw)
		}
		return waves, nil
	}

	if maxParallel <= 0 {
		maxParallel = runtime.NumCPU()
	}
	log.Debug().
		Int("waves", len(specs)).
		Int("max_parallel", maxParallel).
		Msg("loading waves concurrently")

	sem := semaphore.NewWeighted(int64(maxParallel))
	waves := make([]*PreparedWave, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			pw, err := p.Prepare(spec)
			if err != nil {
				return err
			}
			waves[i] = pw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return waves, nil
}
