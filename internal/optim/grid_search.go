package optim

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/crowdsim/internal/config"
	"github.com/san-kum/crowdsim/internal/experiment"
)

// GridSearch evaluates a scenario on the Cartesian product of parameter
// values and ranks the points by one metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	maximize   bool
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: runtime.GOMAXPROCS(0)}
}

// Maximize ranks higher metric values first. The default is lowest first.
func (g *GridSearch) Maximize() *GridSearch {
	g.maximize = true
	return g
}

func (g *GridSearch) WithWorkers(n int) *GridSearch {
	if n > 0 {
		g.workers = n
	}
	return g
}

// Trial is one evaluated grid point. Err is set when the point could not be
// built or simulated.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Search runs every grid point as a copy of base and returns the trials
// sorted best first, failed trials last. It fails only if the metric is
// unknown, the context is canceled or no point succeeds.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) ([]Trial, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	if !hasMetric(metricName) {
		return nil, fmt.Errorf("unknown metric: %s", metricName)
	}

	var points []map[string]float64
	g.enumerate(0, make(map[string]float64), &points)

	trials := make([]Trial, len(points))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, p := range points {
		i, p := i, p
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			trials[i] = evaluate(ctx, base, p, metricName)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(trials, func(i, j int) bool {
		a, b := trials[i], trials[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if g.maximize {
			return a.Value > b.Value
		}
		return a.Value < b.Value
	})
	if len(trials) == 0 || trials[0].Err != nil {
		return trials, fmt.Errorf("no grid point succeeded")
	}
	return trials, nil
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.enumerate(depth+1, newParams, out)
	}
}

func evaluate(ctx context.Context, base *config.Config, params map[string]float64, metricName string) Trial {
	trial := Trial{Params: params}
	cfg := base.Clone()
	for name, v := range params {
		if err := cfg.SetParam(name, v); err != nil {
			trial.Err = err
			return trial
		}
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(); err != nil {
		trial.Err = err
		return trial
	}
	result, err := exp.Run(ctx)
	if err != nil {
		trial.Err = err
		return trial
	}
	trial.Value = result.Metrics[metricName]
	return trial
}

func hasMetric(name string) bool {
	for _, m := range experiment.NewRegistry().ListMetrics() {
		if m == name {
			return true
		}
	}
	return false
}

// ParseAxis reads a grid axis written as "name=v1,v2,..." or as
// "name=lo:hi:n" for n evenly spaced values from lo to hi inclusive.
func ParseAxis(s string) (string, []float64, error) {
	name, values, ok := strings.Cut(s, "=")
	if !ok || name == "" || values == "" {
		return "", nil, fmt.Errorf("axis %q: want name=values", s)
	}

	if parts := strings.Split(values, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return "", nil, fmt.Errorf("axis %q: want lo:hi:n", s)
		}
		if n == 1 {
			return name, []float64{lo}, nil
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		return name, vals, nil
	}

	var vals []float64
	for _, p := range strings.Split(values, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return "", nil, fmt.Errorf("axis %q: %w", s, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}
