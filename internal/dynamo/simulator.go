package dynamo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Simulator struct {
	field     ForceField
	stepper   Stepper
	metrics   []Metric
	observers []Observer
	log       *zap.Logger
}

func New(field ForceField, stepper Stepper) *Simulator {
	return &Simulator{
		field:     field,
		stepper:   stepper,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       zap.NewNop(),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	s.log = l
}

// Run advances scene in place for cfg.Duration seconds. Metrics observe the
// initial state and every post-step state; observers are notified before
// each step. On failure the partial result recorded so far is returned
// together with the error.
func (s *Simulator) Run(ctx context.Context, scene *Scene, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := scene.Validate(); err != nil {
		return nil, err
	}

	every := cfg.RecordEvery
	if every < 1 {
		every = 1
	}
	steps := cfg.Steps()
	result := &Result{
		Frames:  make([]Frame, 0, steps/every+2),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	log := s.log.With(zap.Int("agents", len(scene.Agents)), zap.Int("walls", len(scene.Walls)))
	log.Debug("simulation started", zap.Float64("dt", cfg.Dt), zap.Int("steps", steps))
	start := time.Now()

	t := 0.0
	result.Frames = append(result.Frames, scene.Snapshot(t))
	s.observe(scene, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(result)
			return result, fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
		default:
		}

		for _, obs := range s.observers {
			obs.OnStep(scene.Agents, t)
		}

		if err := s.stepper.Step(s.field, scene.Agents, scene.Walls, cfg.Dt); err != nil {
			s.finish(result)
			return result, &SimulationError{Step: i, Time: t, Wrapped: err}
		}

		t = float64(i+1) * cfg.Dt
		result.StepsTaken++
		result.SimTime = t

		if cfg.ValidateState && !scene.IsValid() {
			log.Warn("state diverged", zap.Int("step", i), zap.Float64("t", t))
			s.finish(result)
			return result, &SimulationError{Step: i, Time: t, Wrapped: ErrInvalidState}
		}

		s.observe(scene, t)

		arrived := cfg.StopOnArrival && scene.AllArrived(cfg.ArrivalRadius)
		if (i+1)%every == 0 || i == steps-1 || arrived {
			result.Frames = append(result.Frames, scene.Snapshot(t))
		}
		if arrived {
			result.Arrived = true
			break
		}
	}

	s.finish(result)
	log.Debug("simulation finished",
		zap.Int("steps", result.StepsTaken),
		zap.Bool("arrived", result.Arrived),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (s *Simulator) observe(scene *Scene, t float64) {
	for _, m := range s.metrics {
		m.Observe(scene.Agents, t)
	}
}

func (s *Simulator) finish(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
