// Package config loads service configuration from a YAML file overlaid with
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/aspire-acoustics/pkg/acoustics"
	"github.com/dd0wney/aspire-acoustics/pkg/logging"
	"github.com/dd0wney/aspire-acoustics/pkg/room"
	"github.com/dd0wney/aspire-acoustics/pkg/scene"
	"github.com/dd0wney/aspire-acoustics/pkg/simulation"
	"github.com/dd0wney/aspire-acoustics/pkg/validation"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type EngineConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SimulationConfig struct {
	DefaultType     string  `yaml:"default_type"`
	Temperature     float64 `yaml:"temperature"`
	Humidity        float64 `yaml:"humidity"`
	SourcePowerDB   float64 `yaml:"source_power_db"`
	Bands           []int   `yaml:"bands"`
	PlacementRadius float64 `yaml:"placement_radius"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url"`
	MaxConns    int32  `yaml:"max_conns"`
	RunHistory  int    `yaml:"run_history"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig        `yaml:"server"`
	Engine     EngineConfig        `yaml:"engine"`
	Simulation SimulationConfig    `yaml:"simulation"`
	Store      StoreConfig         `yaml:"store"`
	Archive    scene.ArchiveConfig `yaml:"archive"`
	Log        LogConfig           `yaml:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8080, ShutdownTimeout: 30 * time.Second},
		Engine: EngineConfig{URL: simulation.DefaultEngineURL, Timeout: simulation.DefaultTimeout},
		Simulation: SimulationConfig{
			DefaultType:     string(simulation.DefaultType),
			Temperature:     simulation.DefaultTemperature,
			Humidity:        simulation.DefaultHumidity,
			SourcePowerDB:   simulation.DefaultSourcePowerDB,
			Bands:           acoustics.StandardFrequencies(),
			PlacementRadius: room.DefaultPlacementRadius,
		},
		Store: StoreConfig{
			Driver:     StoreMemory,
			DataDir:    "./data/aspire",
			MaxConns:   10,
			RunHistory: scene.DefaultRunLimit,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (when non-empty) over the defaults, applies the process
// environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := cfg.decode(b); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode overlays YAML onto c. Unknown keys are rejected.
func (c *Config) decode(b []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays the ASPIRE_* variables and LOG_LEVEL.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("ASPIRE_ENGINE_URL", &c.Engine.URL)
	str("ASPIRE_DATABASE_URL", &c.Store.DatabaseURL)
	str("ASPIRE_STORE", &c.Store.Driver)
	str("ASPIRE_DATA_DIR", &c.Store.DataDir)
	str("ASPIRE_ARCHIVE_BUCKET", &c.Archive.Bucket)
	str("ASPIRE_ARCHIVE_PREFIX", &c.Archive.Prefix)
	str("ASPIRE_ARCHIVE_REGION", &c.Archive.Region)
	str("ASPIRE_ARCHIVE_ENDPOINT", &c.Archive.Endpoint)
	str("ASPIRE_SIMULATION_TYPE", &c.Simulation.DefaultType)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("ASPIRE_PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ASPIRE_PORT: %w", err))
		} else {
			c.Server.Port = p
		}
	}
	if v, ok := lookup("ASPIRE_ENGINE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ASPIRE_ENGINE_TIMEOUT: %w", err))
		} else {
			c.Engine.Timeout = d
		}
	}
	if v, ok := lookup("ASPIRE_BANDS"); ok && v != "" {
		bands, err := parseBands(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ASPIRE_BANDS: %w", err))
		} else {
			c.Simulation.Bands = bands
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func parseBands(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		hz, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, hz)
	}
	return out, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	v := validation.NewCollector("config").
		RangeInt("server.port", c.Server.Port, 1, 65535).
		PositiveDuration("server.shutdown_timeout", c.Server.ShutdownTimeout).
		Required("engine.url", c.Engine.URL).
		PositiveDuration("engine.timeout", c.Engine.Timeout).
		Custom("simulation.default_type", func() error {
			_, err := simulation.ParseType(c.Simulation.DefaultType)
			return err
		}).
		NotEmpty("simulation.bands", len(c.Simulation.Bands)).
		RangeFloat("simulation.humidity", c.Simulation.Humidity, 0, 100).
		PositiveFloat("simulation.placement_radius", c.Simulation.PlacementRadius).
		OneOf("store.driver", c.Store.Driver, []string{StoreMemory, StorePostgres}).
		When(c.Store.Driver == StorePostgres, func(v *validation.Collector) {
			v.Required("store.database_url", c.Store.DatabaseURL)
		}).
		Positive("store.run_history", c.Store.RunHistory).
		OneOf("log.level", strings.ToLower(c.Log.Level), []string{"debug", "info", "warn", "warning", "error"})
	for _, hz := range c.Simulation.Bands {
		v.Check(acoustics.IsStandardFrequency(hz), fmt.Sprintf("config.simulation.bands: %d Hz is not a standard octave band", hz))
	}
	return v.Err()
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }

// LogLevel is the parsed log level.
func (c Config) LogLevel() logging.Level { return logging.ParseLevel(c.Log.Level) }

// Transformer builds the engine request transformer from the simulation settings.
func (c Config) Transformer() *simulation.Transformer {
	return &simulation.Transformer{
		Temperature:   c.Simulation.Temperature,
		Humidity:      c.Simulation.Humidity,
		SourcePowerDB: c.Simulation.SourcePowerDB,
	}
}

// Placement is the speaker seeding circle.
func (c Config) Placement() room.CirclePlacement {
	p := room.DefaultPlacement()
	p.Radius = c.Simulation.PlacementRadius
	return p
}

// SimulationType is the parsed default simulation type.
func (c Config) SimulationType() simulation.Type {
	t, err := simulation.ParseType(c.Simulation.DefaultType)
	if err != nil {
		return simulation.DefaultType
	}
	return t
}
