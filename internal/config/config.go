// Package config holds the static experiment configuration: defaults, an
// optional YAML overlay, environment overrides and validation.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"cgpforage/internal/cgp"
	"cgpforage/internal/evo"
	"cgpforage/internal/novelty"
	"cgpforage/internal/scape"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables consulted by Load and ApplyEnv.
const (
	EnvSeed           = "FORAGER_SEED"
	EnvWorkers        = "FORAGER_WORKERS"
	EnvMaxGenerations = "FORAGER_MAX_GENERATIONS"
)

type GenomeConfig struct {
	Nodes      int     `yaml:"nodes"`
	Inputs     int     `yaml:"inputs"`
	Outputs    int     `yaml:"outputs"`
	LevelsBack int     `yaml:"levels_back"`
	WeightMin  float64 `yaml:"weight_min"`
	WeightMax  float64 `yaml:"weight_max"`
}

type EvolutionConfig struct {
	MutationRate      float64 `yaml:"mutation_rate"`
	StagnationRate    float64 `yaml:"stagnation_rate"`
	Parents           int     `yaml:"parents"`
	Offspring         int     `yaml:"offspring"`
	Population        int     `yaml:"population"`
	NoveltyQualifiers int     `yaml:"novelty_qualifiers"`
	FitnessQualifiers int     `yaml:"fitness_qualifiers"`
	FoodThreshold     int     `yaml:"food_threshold"`
	MaxGenerations    int     `yaml:"max_generations"`
	Selection         string  `yaml:"selection"`
}

type SimulationConfig struct {
	Duration       float64 `yaml:"duration"`
	DT             float64 `yaml:"dt"`
	FieldOfView    float64 `yaml:"field_of_view"`
	SensorAngle    float64 `yaml:"sensor_angle"`
	StartX         float64 `yaml:"start_x"`
	StartY         float64 `yaml:"start_y"`
	Food           int     `yaml:"food"`
	Spread         float64 `yaml:"spread"`
	TrainingSeed   int64   `yaml:"training_seed"`
	EvaluationSeed int64   `yaml:"evaluation_seed"`
}

type Config struct {
	Seed       int64            `yaml:"seed"`
	Workers    int              `yaml:"workers"`
	Genome     GenomeConfig     `yaml:"genome"`
	Evolution  EvolutionConfig  `yaml:"evolution"`
	Novelty    novelty.Config   `yaml:"novelty"`
	Simulation SimulationConfig `yaml:"simulation"`
	ReportPath string           `yaml:"report_path"`
}

func Default() Config {
	return Config{
		Seed:    1,
		Workers: 4,
		Genome: GenomeConfig{
			Nodes:      100,
			Inputs:     3,
			Outputs:    2,
			LevelsBack: 100,
			WeightMin:  -1,
			WeightMax:  1,
		},
		Evolution: EvolutionConfig{
			MutationRate:      0.05,
			StagnationRate:    0.5,
			Parents:           7,
			Offspring:         20,
			Population:        20,
			NoveltyQualifiers: 10,
			FitnessQualifiers: 10,
			FoodThreshold:     10,
			Selection:         "elite",
		},
		Novelty: novelty.DefaultConfig(),
		Simulation: SimulationConfig{
			Duration:       100,
			DT:             0.1,
			FieldOfView:    0.8 * math.Pi,
			SensorAngle:    math.Pi / 3,
			StartX:         -12,
			Food:           25,
			Spread:         10,
			TrainingSeed:   3820,
			EvaluationSeed: 2020,
		},
		ReportPath: "olympics_report.txt",
	}
}

// Load overlays the YAML file at path on the defaults, applies environment
// overrides and validates. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse overlays a YAML document on the defaults without consulting the
// environment or validating.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvSeed, v, err)
		}
		c.Seed = seed
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvWorkers, v, err)
		}
		c.Workers = n
	}
	if v := os.Getenv(EnvMaxGenerations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvMaxGenerations, v, err)
		}
		c.Evolution.MaxGenerations = n
	}
	return nil
}

func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
	if c.Workers <= 0 {
		return invalid("workers must be > 0")
	}
	if err := c.GenomeParams().Validate(); err != nil {
		return invalid("genome: %v", err)
	}
	if c.Genome.Inputs > cgp.MaxInputs {
		return invalid("genome inputs %d exceed the %d wired sensors", c.Genome.Inputs, cgp.MaxInputs)
	}
	e := c.Evolution
	if e.MutationRate < 0 || e.MutationRate > 1 {
		return invalid("mutation rate must be in [0, 1]")
	}
	if e.StagnationRate < 0 || e.StagnationRate > 1 {
		return invalid("stagnation rate must be in [0, 1]")
	}
	if e.Parents <= 0 || e.Offspring <= 0 || e.Population <= 0 {
		return invalid("parents, offspring and population must be > 0")
	}
	if e.NoveltyQualifiers < 0 || e.FitnessQualifiers < 0 {
		return invalid("qualifier targets must be >= 0")
	}
	if e.FoodThreshold <= 0 {
		return invalid("food threshold must be > 0")
	}
	if e.MaxGenerations < 0 {
		return invalid("max generations must be >= 0")
	}
	if _, err := evo.SelectorByName(e.Selection); err != nil {
		return invalid("%v", err)
	}
	if _, err := novelty.NewArchive(c.Novelty); err != nil {
		return invalid("novelty: %v", err)
	}
	s := c.Simulation
	if s.Duration <= 0 || s.DT <= 0 || s.DT > s.Duration {
		return invalid("simulation needs duration > 0 and dt in (0, duration]")
	}
	if s.FieldOfView <= 0 {
		return invalid("field of view must be > 0")
	}
	if s.Food < 0 || s.Spread < 0 {
		return invalid("food count and spread must be >= 0")
	}
	return nil
}

func (c Config) GenomeParams() cgp.Params {
	return cgp.Params{
		Functions:  cgp.DefaultFunctions,
		Nodes:      c.Genome.Nodes,
		Inputs:     c.Genome.Inputs,
		Outputs:    c.Genome.Outputs,
		LevelsBack: c.Genome.LevelsBack,
		WeightMin:  c.Genome.WeightMin,
		WeightMax:  c.Genome.WeightMax,
	}
}

// TrainingScenario is the course populations are evolved on.
func (c Config) TrainingScenario() scape.Scenario {
	return c.scenario("training", c.Simulation.TrainingSeed)
}

// EvaluationScenario is the training course laid out with the evaluation seed.
func (c Config) EvaluationScenario() scape.Scenario {
	return c.scenario("evaluation", c.Simulation.EvaluationSeed)
}

func (c Config) scenario(name string, seed int64) scape.Scenario {
	s := c.Simulation
	return scape.Scenario{
		Name:        name,
		Layout:      scape.Layout{Pattern: scape.PatternRandom, Food: s.Food, Spread: s.Spread},
		StartX:      s.StartX,
		StartY:      s.StartY,
		SensorAngle: s.SensorAngle,
		FieldOfView: s.FieldOfView,
		Duration:    s.Duration,
		DT:          s.DT,
		Seed:        seed,
	}
}

// YAML renders the configuration as a loadable document.
func (c Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}
