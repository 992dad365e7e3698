// Package config loads the simulation and per-colony configuration.
// Values come from the embedded defaults, an optional YAML file, and
// environment variable overrides, in that order.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DateLayout is the layout used for dates in config files and records.
const DateLayout = "2006-01-02"

// Aggregation modes for the population statistics.
const (
	AggregationPairwise = "pairwise"
	AggregationMean     = "mean"
)

// Config is the complete configuration for one simulation run.
type Config struct {
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	API        APIConfig        `json:"api" yaml:"api"`
	Worlds     []WorldConfig    `json:"worlds" yaml:"worlds"`
}

// SimulationConfig controls the step loop and the shared random source.
type SimulationConfig struct {
	Seed         int64         `json:"seed" yaml:"seed"`
	StepsPerDay  int           `json:"steps_per_day" yaml:"steps_per_day"`
	StepInterval time.Duration `json:"step_interval" yaml:"step_interval"`
	StartingDate string        `json:"starting_date" yaml:"starting_date"`

	// Aggregation selects how population averages are folded:
	// "pairwise" (running (avg+v)/2) or "mean" (arithmetic mean).
	Aggregation string `json:"aggregation" yaml:"aggregation"`
}

// StartDate parses StartingDate.
func (s SimulationConfig) StartDate() (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s.StartingDate, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("starting_date %q: %w", s.StartingDate, err)
	}
	return d, nil
}

// LoggingConfig sets the slog level: "debug", "info", "warn" or "error".
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// StorageConfig selects the statistics database.
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "sqlite" or "pgx"
	DSN    string `json:"dsn" yaml:"dsn"`
}

// APIConfig configures the read-only HTTP API.
type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// WorldConfig describes one colony.
type WorldConfig struct {
	Name       string           `json:"name" yaml:"name"`
	Size       float64          `json:"size" yaml:"size"` // land capacity
	Government string           `json:"government" yaml:"government"`
	Population PopulationConfig `json:"population" yaml:"population"`
	Food       FoodConfig       `json:"food" yaml:"food"`
}

// PopulationConfig parameterizes the starting population and the age thresholds.
type PopulationConfig struct {
	PopulationSize  int       `json:"population_size" yaml:"population_size"`
	PopulationDist  SkewDist  `json:"population_dist" yaml:"population_dist"`
	HeightDist      TraitDist `json:"height_dist" yaml:"height_dist"`
	WeightDist      TraitDist `json:"weight_dist" yaml:"weight_dist"`
	NewbornHeight   float64   `json:"newborn_height" yaml:"newborn_height"`
	NewbornWeight   float64   `json:"newborn_weight" yaml:"newborn_weight"`
	AgeOfAdult      int       `json:"age_of_adult" yaml:"age_of_adult"`
	AgeOfRetirement int       `json:"age_of_retirement" yaml:"age_of_retirement"`
}

// SkewDist holds skew-normal parameters for the starting ages.
type SkewDist struct {
	Location float64 `json:"location" yaml:"location"`
	Scale    float64 `json:"scale" yaml:"scale"`
	Shape    float64 `json:"shape" yaml:"shape"`
}

// TraitDist is a normal distribution for a genetic target.
// A zero StdDev gives every citizen the average.
type TraitDist struct {
	Average float64 `json:"average" yaml:"average"`
	StdDev  float64 `json:"std_dev" yaml:"std_dev"`
}

// FoodConfig covers farms, the harvest cycle and cooking.
type FoodConfig struct {
	CookingMultiplier float64    `json:"cooking_multiplier" yaml:"cooking_multiplier"`
	HarvestCycleDays  int        `json:"harvest_cycle_days" yaml:"harvest_cycle_days"` // 0 = never reset
	GrainFarms        FarmConfig `json:"grain_farms" yaml:"grain_farms"`
	LivestockFarms    FarmConfig `json:"livestock_farms" yaml:"livestock_farms"`
}

// FarmConfig describes every farm of one kind in a colony.
type FarmConfig struct {
	Count         int     `json:"count" yaml:"count"`
	Size          float64 `json:"size" yaml:"size"`                     // hectares
	Workers       int     `json:"workers" yaml:"workers"`               // staffing quota
	DailyRate     float64 `json:"daily_rate" yaml:"daily_rate"`         // harvested per worker per day
	CapacityRatio float64 `json:"capacity_ratio" yaml:"capacity_ratio"` // cap = size * ratio
	Yield         float64 `json:"yield" yaml:"yield"`                   // resource units per harvested unit
}

// Capacity returns the harvest cap for a farm of this kind.
func (f FarmConfig) Capacity() float64 {
	return f.Size * f.CapacityRatio
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults are malformed: %v", err))
	}
	return cfg
}

// defaultWorld is the template every configured world is completed from.
func defaultWorld() WorldConfig {
	return Default().Worlds[0]
}

// Load returns the defaults layered with path (if non-empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and completes every world.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Worlds = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(cfg.Worlds) == 0 {
		cfg.Worlds = Default().Worlds
	}
	base := defaultWorld()
	for i := range cfg.Worlds {
		cfg.Worlds[i].fillFrom(base)
	}
	return cfg, nil
}

// fillFrom copies every zero-valued field from d. Fields where zero is a
// meaningful value (std devs, shape, harvest cycle) are left alone.
func (w *WorldConfig) fillFrom(d WorldConfig) {
	if w.Size == 0 {
		w.Size = d.Size
	}
	if w.Government == "" {
		w.Government = d.Government
	}

	p, dp := &w.Population, d.Population
	if p.PopulationSize == 0 {
		p.PopulationSize = dp.PopulationSize
	}
	if p.PopulationDist == (SkewDist{}) {
		p.PopulationDist = dp.PopulationDist
	}
	if p.HeightDist.Average == 0 {
		p.HeightDist = dp.HeightDist
	}
	if p.WeightDist.Average == 0 {
		p.WeightDist = dp.WeightDist
	}
	if p.NewbornHeight == 0 {
		p.NewbornHeight = dp.NewbornHeight
	}
	if p.NewbornWeight == 0 {
		p.NewbornWeight = dp.NewbornWeight
	}
	if p.AgeOfAdult == 0 {
		p.AgeOfAdult = dp.AgeOfAdult
	}
	if p.AgeOfRetirement == 0 {
		p.AgeOfRetirement = dp.AgeOfRetirement
	}

	f, df := &w.Food, d.Food
	if f.CookingMultiplier == 0 {
		f.CookingMultiplier = df.CookingMultiplier
	}
	if f.GrainFarms == (FarmConfig{}) {
		f.GrainFarms = df.GrainFarms
	}
	if f.LivestockFarms == (FarmConfig{}) {
		f.LivestockFarms = df.LivestockFarms
	}
}

// Validate checks every setup invariant the simulation relies on.
func (c *Config) Validate() error {
	if c.Simulation.StepsPerDay < 1 {
		return fmt.Errorf("%w: steps_per_day must be at least 1, got %d", ErrInvalid, c.Simulation.StepsPerDay)
	}
	if c.Simulation.StepInterval < 0 {
		return fmt.Errorf("%w: step_interval must be non-negative, got %v", ErrInvalid, c.Simulation.StepInterval)
	}
	if _, err := c.Simulation.StartDate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Simulation.Aggregation {
	case AggregationPairwise, AggregationMean:
	default:
		return fmt.Errorf("%w: aggregation must be %q or %q, got %q",
			ErrInvalid, AggregationPairwise, AggregationMean, c.Simulation.Aggregation)
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("%w: invalid log level %q (valid: debug, info, warn, error)", ErrInvalid, c.Logging.Level)
	}

	switch c.Storage.Driver {
	case "", "sqlite", "pgx":
	default:
		return fmt.Errorf("%w: storage driver must be sqlite or pgx, got %q", ErrInvalid, c.Storage.Driver)
	}

	if len(c.Worlds) == 0 {
		return fmt.Errorf("%w: at least one world is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Worlds))
	for _, w := range c.Worlds {
		if w.Name == "" {
			return fmt.Errorf("%w: world name is required", ErrInvalid)
		}
		if seen[w.Name] {
			return fmt.Errorf("%w: duplicate world name %q", ErrInvalid, w.Name)
		}
		seen[w.Name] = true
		if err := w.Validate(); err != nil {
			return fmt.Errorf("world %q: %w", w.Name, err)
		}
	}
	return nil
}

// Validate checks one colony's parameters.
func (w WorldConfig) Validate() error {
	p := w.Population
	if w.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %v", ErrInvalid, w.Size)
	}
	if p.PopulationSize < 0 {
		return fmt.Errorf("%w: population_size must be non-negative, got %d", ErrInvalid, p.PopulationSize)
	}
	if p.PopulationDist.Scale <= 0 {
		return fmt.Errorf("%w: population_dist.scale must be positive, got %v", ErrInvalid, p.PopulationDist.Scale)
	}
	if p.HeightDist.StdDev < 0 || p.WeightDist.StdDev < 0 {
		return fmt.Errorf("%w: std_dev must be non-negative", ErrInvalid)
	}
	if p.NewbornHeight <= 0 || p.NewbornHeight >= p.HeightDist.Average {
		return fmt.Errorf("%w: newborn_height must be in (0, height_dist.average), got %v", ErrInvalid, p.NewbornHeight)
	}
	if p.NewbornWeight <= 0 || p.NewbornWeight >= p.WeightDist.Average {
		return fmt.Errorf("%w: newborn_weight must be in (0, weight_dist.average), got %v", ErrInvalid, p.NewbornWeight)
	}
	if p.AgeOfAdult <= 0 || p.AgeOfRetirement <= p.AgeOfAdult {
		return fmt.Errorf("%w: need 0 < age_of_adult < age_of_retirement, got %d and %d",
			ErrInvalid, p.AgeOfAdult, p.AgeOfRetirement)
	}

	f := w.Food
	if f.CookingMultiplier <= 0 {
		return fmt.Errorf("%w: cooking_multiplier must be positive, got %v", ErrInvalid, f.CookingMultiplier)
	}
	if f.HarvestCycleDays < 0 {
		return fmt.Errorf("%w: harvest_cycle_days must be non-negative, got %d", ErrInvalid, f.HarvestCycleDays)
	}
	if err := f.GrainFarms.validate("grain_farms"); err != nil {
		return err
	}
	if err := f.LivestockFarms.validate("livestock_farms"); err != nil {
		return err
	}
	return nil
}

func (f FarmConfig) validate(name string) error {
	if f.Count < 0 {
		return fmt.Errorf("%w: %s.count must be non-negative, got %d", ErrInvalid, name, f.Count)
	}
	if f.Count == 0 {
		return nil
	}
	if f.Size <= 0 || f.Workers <= 0 || f.DailyRate <= 0 || f.CapacityRatio <= 0 || f.Yield <= 0 {
		return fmt.Errorf("%w: %s needs positive size, workers, daily_rate, capacity_ratio and yield", ErrInvalid, name)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COLONYSIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Seed = n
		}
	}
	if v := os.Getenv("COLONYSIM_DB_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("COLONYSIM_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("COLONYSIM_API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("COLONYSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
