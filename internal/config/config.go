package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath overrides the config file path.
const EnvPath = "REGIOND_CONFIG"

// DefaultPath is used when EnvPath is not set.
const DefaultPath = "config/regiond.yaml"

// Server holds all configuration for the region tracking daemon.
type Server struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Main loop
	TickInterval time.Duration `yaml:"tick_interval"`
	Workers      int           `yaml:"workers"`

	Tracker Tracker `yaml:"tracker"`

	// Region definitions file; empty disables loading.
	DefinitionsPath string `yaml:"definitions_path"`

	Simulation Simulation     `yaml:"simulation"`
	Journal    Journal        `yaml:"journal"`
	Database   DatabaseConfig `yaml:"database"`
}

// Tracker configures the region manager.
type Tracker struct {
	CellSize       int32  `yaml:"cell_size"`
	SampleInterval int    `yaml:"sample_interval"`  // ticks
	ResolveDelay   int    `yaml:"resolve_delay"`    // ticks
	MaxRegionCells int    `yaml:"max_region_cells"` // cells one region may overlap
	Ordering       string `yaml:"ordering"`         // priority, volume
}

// Simulation configures the bot players.
type Simulation struct {
	Bots         int      `yaml:"bots"`
	Worlds       []string `yaml:"worlds"`
	Area         float64  `yaml:"area"`
	Height       float64  `yaml:"height"`
	Step         float64  `yaml:"step"`
	Seed         uint64   `yaml:"seed"`
	TeleportRate int      `yaml:"teleport_rate"` // 1/N per tick
	DeathRate    int      `yaml:"death_rate"`    // 1/N per tick
	QuitRate     int      `yaml:"quit_rate"`     // 1/N per tick
	RespawnTicks int      `yaml:"respawn_ticks"`
	RejoinTicks  int      `yaml:"rejoin_ticks"`
}

// Journal configures persistence of transitions to PostgreSQL.
type Journal struct {
	Enabled       bool          `yaml:"enabled"`
	BufferSize    int           `yaml:"buffer_size"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		LogLevel:        "info",
		TickInterval:    50 * time.Millisecond,
		Workers:         2,
		DefinitionsPath: "config/regions.yaml",
		Tracker: Tracker{
			CellSize:       16,
			SampleInterval: 3,
			ResolveDelay:   1,
			MaxRegionCells: 256 * 256,
			Ordering:       "priority",
		},
		Simulation: Simulation{
			Bots:         50,
			Worlds:       []string{"overworld"},
			Area:         256,
			Height:       128,
			Step:         1.5,
			Seed:         1,
			TeleportRate: 400,
			DeathRate:    2000,
			QuitRate:     3000,
			RespawnTicks: 100,
			RejoinTicks:  200,
		},
		Journal: Journal{
			Enabled:       false,
			BufferSize:    4096,
			BatchSize:     256,
			FlushInterval: time.Second,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "regionwatch",
			Password: "regionwatch",
			DBName:   "regionwatch",
			SSLMode:  "disable",
			MaxConns: 4,
		},
	}
}

// Path returns the config path from EnvPath or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// LoadServer loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values the daemon cannot start with.
func (s Server) Validate() error {
	var errs []error

	if s.TickInterval <= 0 {
		errs = append(errs, errors.New("tick_interval must be positive"))
	}
	if s.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if s.Tracker.CellSize <= 0 {
		errs = append(errs, errors.New("tracker.cell_size must be positive"))
	}
	if s.Tracker.SampleInterval <= 0 {
		errs = append(errs, errors.New("tracker.sample_interval must be positive"))
	}
	if s.Tracker.ResolveDelay <= 0 {
		errs = append(errs, errors.New("tracker.resolve_delay must be positive"))
	}
	if s.Tracker.MaxRegionCells <= 0 {
		errs = append(errs, errors.New("tracker.max_region_cells must be positive"))
	}
	switch s.Tracker.Ordering {
	case "", "priority", "volume":
	default:
		errs = append(errs, fmt.Errorf("tracker.ordering %q is not one of priority, volume", s.Tracker.Ordering))
	}
	if s.Simulation.Bots < 0 {
		errs = append(errs, errors.New("simulation.bots must not be negative"))
	}
	if s.Simulation.Bots > 0 && len(s.Simulation.Worlds) == 0 {
		errs = append(errs, errors.New("simulation.worlds must not be empty"))
	}
	if s.Journal.Enabled {
		if s.Journal.BufferSize <= 0 || s.Journal.BatchSize <= 0 {
			errs = append(errs, errors.New("journal.buffer_size and journal.batch_size must be positive"))
		}
		if s.Journal.FlushInterval <= 0 {
			errs = append(errs, errors.New("journal.flush_interval must be positive"))
		}
	}

	return errors.Join(errs...)
}
