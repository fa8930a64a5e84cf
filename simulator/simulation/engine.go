package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solar-system/simulator/model"
)

// Publisher receives every snapshot produced by a step.
type Publisher interface {
	Publish(ctx context.Context, snap model.Snapshot) error
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithTimeStep sets the delta applied by Step. Defaults to 1.
func WithTimeStep(dt float64) Option {
	return func(e *Engine) { e.timeStep = dt }
}

// Engine owns a SolarSystem and serializes every access to it.
type Engine struct {
	mu       sync.Mutex
	system   *SolarSystem
	tick     uint64
	elapsed  float64
	timeStep float64

	publisher Publisher
	logger    *zap.Logger
}

func NewEngine(system *SolarSystem, opts ...Option) *Engine {
	if system == nil {
		system = New()
	}
	e := &Engine{system: system, timeStep: 1, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) TimeStep() float64 {
	return e.timeStep
}

// Step advances the system by the configured time step.
func (e *Engine) Step(ctx context.Context) model.Snapshot {
	return e.StepBy(ctx, e.timeStep)
}

// StepBy advances the system by dt and publishes the result. A failed
// publish is logged; the step itself stands.
func (e *Engine) StepBy(ctx context.Context, dt float64) model.Snapshot {
	e.mu.Lock()
	e.system.Update(dt)
	e.tick++
	e.elapsed += dt
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, snap); err != nil {
			e.logger.Warn("Failed to publish step", zap.Uint64("tick", snap.Tick), zap.Error(err))
		}
	}
	return snap
}

func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) AddPlanet(p model.Planet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.system.AddPlanet(p)
	e.logger.Info("Planet added", zap.String("name", p.Name), zap.Int("planets", e.system.Len()))
}

func (e *Engine) Planets() []model.Planet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.system.Planets()
}

// Run steps the system every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("step interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Simulation loop started", zap.Duration("interval", interval), zap.Float64("time_step", e.timeStep))
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Simulation loop stopped", zap.Uint64("tick", e.Snapshot().Tick))
			return ctx.Err()
		case <-ticker.C:
			e.Step(ctx)
		}
	}
}

func (e *Engine) snapshotLocked() model.Snapshot {
	planets := e.system.planets
	bodies := make([]model.BodyPosition, len(planets))
	for i, p := range planets {
		bodies[i] = model.BodyPosition{Name: p.Name, Vec3: p.Position()}
	}
	return model.Snapshot{Tick: e.tick, Elapsed: e.elapsed, Bodies: bodies}
}
