package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Sim      SimConfig      `toml:"sim"`
	Data     DataConfig     `toml:"data"`
	Database DatabaseConfig `toml:"database"`
	Save     SaveConfig     `toml:"save"`
	Observer ObserverConfig `toml:"observer"`
	Logging  LoggingConfig  `toml:"logging"`
}

type SimConfig struct {
	TickRate      time.Duration `toml:"tick_rate"`
	StepsPerTileX int           `toml:"steps_per_tile_x"`
	StepsPerTileY int           `toml:"steps_per_tile_y"`
	TileSize      float64       `toml:"tile_size"`      // world units per cell, for rendering and gravity
	Gravity       float64       `toml:"gravity"`        // world units/s², negative pulls down
	MaxFallSpeed  float64       `toml:"max_fall_speed"` // world units/s, 0 = uncapped
	SaveInterval  int           `toml:"save_interval"`  // ticks, 0 = only on shutdown
	Seed          int64         `toml:"seed"`
	Lives         int           `toml:"lives"`
	StartLevel    int           `toml:"start_level"` // 0 = first level in the list
	MaxInputs     int           `toml:"max_inputs_per_tick"`
}

type DataConfig struct {
	Species    string `toml:"species"`
	FSM        string `toml:"fsm"`
	Effects    string `toml:"effects"`
	Levels     string `toml:"levels"`
	TilesDir   string `toml:"tiles_dir"`
	ScriptsDir string `toml:"scripts_dir"` // empty disables Lua
	HotReload  bool   `toml:"hot_reload"`
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables Postgres saves
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	SaveSlot        string        `toml:"save_slot"`
}

type SaveConfig struct {
	Dir string `toml:"dir"` // used when no database is configured
}

type ObserverConfig struct {
	BindAddress  string        `toml:"bind_address"` // empty disables the websocket feed
	OutQueueSize int           `toml:"out_queue_size"`
	InQueueSize  int           `toml:"in_queue_size"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// MicroStep is the vertical micro-step size in world units.
func (c SimConfig) MicroStep() float64 {
	if c.StepsPerTileY <= 0 {
		return c.TileSize
	}
	return c.TileSize / float64(c.StepsPerTileY)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Sim.TickRate <= 0 {
		return fmt.Errorf("sim.tick_rate must be positive")
	}
	if c.Sim.StepsPerTileX <= 0 || c.Sim.StepsPerTileY <= 0 {
		return fmt.Errorf("sim.steps_per_tile_x and steps_per_tile_y must be positive")
	}
	if c.Sim.TileSize <= 0 {
		return fmt.Errorf("sim.tile_size must be positive")
	}
	if c.Sim.Gravity > 0 {
		return fmt.Errorf("sim.gravity must be zero or negative")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Sim: SimConfig{
			TickRate:      time.Second / 60,
			StepsPerTileX: 8,
			StepsPerTileY: 8,
			TileSize:      16,
			Gravity:       -600,
			MaxFallSpeed:  300,
			SaveInterval:  600,
			Seed:          1,
			Lives:         3,
			MaxInputs:     8,
		},
		Data: DataConfig{
			Species:    "data/yaml/species.yaml",
			FSM:        "data/yaml/fsm.yaml",
			Effects:    "data/yaml/effects.yaml",
			Levels:     "data/yaml/levels.yaml",
			TilesDir:   "data/levels",
			ScriptsDir: "scripts",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			SaveSlot:        "default",
		},
		Save: SaveConfig{
			Dir: "saves",
		},
		Observer: ObserverConfig{
			OutQueueSize: 64,
			InQueueSize:  64,
			WriteTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
