package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "wavesd"

type Config struct {
	LibrarySources []string `koanf:"library_sources"` // seeded into the directories table on first start
	DataDir        string   `koanf:"data_dir"`        // database, covers and logs; defaults to XDG data home

	Server   ServerConfig   `koanf:"server"`
	Audio    AudioConfig    `koanf:"audio"`
	Playback PlaybackConfig `koanf:"playback"`
	Scan     ScanConfig     `koanf:"scan"`
	Log      LogConfig      `koanf:"log"`
	Update   UpdateConfig   `koanf:"update"`

	// MPRIS exposes the session to desktop media keys (Linux only).
	MPRIS *bool `koanf:"mpris"`
}

// ServerConfig holds the RPC listener settings.
type ServerConfig struct {
	Listen  string `koanf:"listen"`  // e.g. "127.0.0.1:7878"
	Workers int    `koanf:"workers"` // concurrent command handlers (default: 8)
}

// AudioConfig holds output device settings.
type AudioConfig struct {
	SampleRate int `koanf:"sample_rate"` // output sample rate (default: 44100)
	BufferMs   int `koanf:"buffer_ms"`   // speaker buffer length (default: 100)
}

// PlaybackConfig holds transport policy settings.
type PlaybackConfig struct {
	PreviousThreshold float64 `koanf:"previous_threshold"` // seconds before "previous" restarts the track (default: 3)
}

// ScanConfig holds library scanner settings.
type ScanConfig struct {
	Workers int  `koanf:"workers"` // parallel tag readers (default: 8)
	Watch   bool `koanf:"watch"`   // rescan when library directories change
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level"` // zerolog level (default: "info")
	File  string `koanf:"file"`  // defaults to <data_dir>/wavesd.log
}

// UpdateConfig holds the release feed used by check_for_new_version.
type UpdateConfig struct {
	URL string `koanf:"url"`
}

// Load reads the default config files (later files win).
func Load() (*Config, error) {
	return LoadFiles(getConfigPaths()...)
}

// LoadFiles reads the given TOML files, skipping those that do not exist.
func LoadFiles(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	for i, src := range cfg.LibrarySources {
		cfg.LibrarySources[i] = expandPath(src)
	}
	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.Log.File = expandPath(cfg.Log.File)

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. $XDG_CONFIG_HOME/wavesd/config.toml
	paths = append(paths, filepath.Join(xdg.ConfigHome, appName, "config.toml"))

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// DataPath returns the data directory, defaulting to $XDG_DATA_HOME/wavesd.
func (c *Config) DataPath() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return filepath.Join(xdg.DataHome, appName)
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataPath(), appName+".db")
}

// CoversPath returns the directory holding extracted and resized cover art.
func (c *Config) CoversPath() string {
	return filepath.Join(c.DataPath(), "covers")
}

// LogPath returns the log file location.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataPath(), appName+".log")
}

// ListenAddr returns the RPC listen address.
func (c *Config) ListenAddr() string {
	if c.Server.Listen == "" {
		return "127.0.0.1:7878"
	}
	return c.Server.Listen
}

// ServerWorkers returns the number of concurrent command handlers.
func (c *Config) ServerWorkers() int {
	if c.Server.Workers <= 0 {
		return 8
	}
	return c.Server.Workers
}

// GetAudioConfig returns the audio configuration with defaults applied.
func (c *Config) GetAudioConfig() AudioConfig {
	cfg := c.Audio
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.BufferMs <= 0 || cfg.BufferMs > 1000 {
		cfg.BufferMs = 100
	}
	return cfg
}

// PreviousThreshold returns the restart-vs-go-back threshold in seconds.
func (c *Config) PreviousThreshold() float64 {
	if c.Playback.PreviousThreshold <= 0 {
		return 3
	}
	return c.Playback.PreviousThreshold
}

// ScanWorkers returns the number of parallel tag readers.
func (c *Config) ScanWorkers() int {
	if c.Scan.Workers <= 0 {
		return 8
	}
	return c.Scan.Workers
}

// MPRISEnabled reports whether the MPRIS adapter should start (default: true).
func (c *Config) MPRISEnabled() bool {
	return c.MPRIS == nil || *c.MPRIS
}
