// Package config loads the YAML configuration shared by the simulator,
// database and controlcenter services.
//
// A missing file is not an error: Load returns DefaultConfig. Values left
// empty in the file are filled with the same defaults.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"solar-system/simulator/model"
	"solar-system/simulator/simulation"
)

var (
	ErrInvalidPlanet = errors.New("invalid planet")
	ErrInvalidConfig = errors.New("invalid config")
)

type Config struct {
	Redis         RedisConfig         `yaml:"redis"`
	Consul        ConsulConfig        `yaml:"consul"`
	Simulator     SimulatorConfig     `yaml:"simulator"`
	Database      DatabaseConfig      `yaml:"database"`
	ControlCenter ControlCenterConfig `yaml:"controlcenter"`
	Log           LogConfig           `yaml:"log"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type ConsulConfig struct {
	Addr string `yaml:"addr"`
}

type SimulatorConfig struct {
	Port         int           `yaml:"port"`
	StepInterval time.Duration `yaml:"step_interval"`
	// TimeStep is the simulated time, in days, each step advances.
	TimeStep float64        `yaml:"time_step"`
	Planets  []PlanetConfig `yaml:"planets"`
}

type DatabaseConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

type ControlCenterConfig struct {
	Port     int           `yaml:"port"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// PlanetConfig describes one body. A body with PeriodDays set orbits the
// origin; otherwise it moves linearly from Position along Velocity.
type PlanetConfig struct {
	Name           string      `yaml:"name" json:"name"`
	Radius         float64     `yaml:"radius" json:"radius"`
	OrbitRadius    float64     `yaml:"orbit_radius" json:"orbit_radius"`
	PeriodDays     float64     `yaml:"period_days" json:"period_days"`
	PhaseDeg       float64     `yaml:"phase_deg" json:"phase_deg"`
	InclinationDeg float64     `yaml:"inclination_deg" json:"inclination_deg"`
	Position       *model.Vec3 `yaml:"position" json:"position,omitempty"`
	Velocity       *model.Vec3 `yaml:"velocity" json:"velocity,omitempty"`
}

func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path. An empty path or a missing file yields DefaultConfig.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Consul.Addr == "" {
		c.Consul.Addr = "localhost:8500"
	}
	if c.Simulator.Port == 0 {
		c.Simulator.Port = 8081
	}
	if c.Simulator.StepInterval == 0 {
		c.Simulator.StepInterval = 50 * time.Millisecond
	}
	if c.Simulator.TimeStep == 0 {
		c.Simulator.TimeStep = 1
	}
	if c.Database.Port == 0 {
		c.Database.Port = 8084
	}
	if c.Database.Path == "" {
		c.Database.Path = "./database/snapshots.db"
	}
	if c.ControlCenter.Port == 0 {
		c.ControlCenter.Port = 8080
	}
	if c.ControlCenter.CacheTTL == 0 {
		c.ControlCenter.CacheTTL = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Simulator.StepInterval <= 0 {
		return fmt.Errorf("%w: simulator.step_interval must be positive, got %s", ErrInvalidConfig, c.Simulator.StepInterval)
	}
	if math.IsNaN(c.Simulator.TimeStep) || math.IsInf(c.Simulator.TimeStep, 0) {
		return fmt.Errorf("%w: simulator.time_step must be finite", ErrInvalidConfig)
	}
	if c.ControlCenter.CacheTTL < 0 {
		return fmt.Errorf("%w: controlcenter.cache_ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}

// BuildSystem returns the configured system, or the default eight planets
// when no planets are configured.
func (c *Config) BuildSystem() (*simulation.SolarSystem, error) {
	if len(c.Simulator.Planets) == 0 {
		return simulation.DefaultSolarSystem(), nil
	}
	s := simulation.New()
	for i, pc := range c.Simulator.Planets {
		p, err := pc.Planet()
		if err != nil {
			return nil, fmt.Errorf("planet %d: %w", i, err)
		}
		s.AddPlanet(p)
	}
	return s, nil
}

// Planet converts the description into a model.Planet.
func (pc PlanetConfig) Planet() (model.Planet, error) {
	if pc.Name == "" {
		return model.Planet{}, fmt.Errorf("%w: name is required", ErrInvalidPlanet)
	}
	if !pc.finite() {
		return model.Planet{}, fmt.Errorf("%w: %s: values must be finite", ErrInvalidPlanet, pc.Name)
	}

	if pc.Position == nil {
		if pc.PeriodDays <= 0 {
			return model.Planet{}, fmt.Errorf("%w: %s: period_days must be positive", ErrInvalidPlanet, pc.Name)
		}
		if pc.OrbitRadius <= 0 {
			return model.Planet{}, fmt.Errorf("%w: %s: orbit_radius must be positive", ErrInvalidPlanet, pc.Name)
		}
		orbit := model.OrbitFromPeriod(pc.OrbitRadius, pc.PeriodDays, radians(pc.InclinationDeg))
		return model.NewOrbitingPlanet(pc.Name, pc.Radius, orbit, radians(pc.PhaseDeg)), nil
	}

	p := model.NewPlanet(pc.Name, *pc.Position, model.Stationary{})
	if pc.Velocity != nil {
		p.Motion = model.Linear{}
		p.State.Velocity = *pc.Velocity
	}
	p.Radius = pc.Radius
	return p, nil
}

func (pc PlanetConfig) finite() bool {
	values := []float64{pc.Radius, pc.OrbitRadius, pc.PeriodDays, pc.PhaseDeg, pc.InclinationDeg}
	for _, v := range []*model.Vec3{pc.Position, pc.Velocity} {
		if v != nil {
			values = append(values, v.X, v.Y, v.Z)
		}
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
