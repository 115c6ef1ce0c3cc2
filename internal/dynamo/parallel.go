package dynamo

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Ensemble runs independent scenes concurrently. Every run gets its own
// Simulator from the factory so metrics never share state, and each run is
// still stepped sequentially.
type Ensemble struct {
	factory func() *Simulator
	workers int
}

func NewEnsemble(factory func() *Simulator, workers int) *Ensemble {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{factory: factory, workers: workers}
}

// Run simulates every scene with cfg. Scenes are mutated in place. The first
// failing run cancels the others and its error is returned.
func (e *Ensemble) Run(ctx context.Context, scenes []*Scene, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(scenes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, scene := range scenes {
		i, scene := i, scene
		g.Go(func() error {
			res, err := e.factory().Run(ctx, scene, cfg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
