// Package config loads the hello server configuration from a YAML file.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/mongodb/grip/level"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ygrebnov/threadpool"
)

// FileConfig is the on-disk layout.
type FileConfig struct {
	Server ServerConfig `yaml:"server"`
	Pool   PoolConfig   `yaml:"pool"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the listener and request handling.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// MaxConnections stops the server after that many accepted connections. 0 means unlimited.
	MaxConnections int    `yaml:"max_connections"`
	SleepDelay     string `yaml:"sleep_delay"`
	ReadTimeout    string `yaml:"read_timeout"`
}

// PoolConfig configures the worker pool serving connections.
type PoolConfig struct {
	Name        string `yaml:"name"`
	Workers     int    `yaml:"workers"`
	PanicPolicy string `yaml:"panic_policy"`
}

// LogConfig configures the grip sender.
type LogConfig struct {
	Name  string `yaml:"name"`
	Level string `yaml:"level"`
}

// Settings is the validated, typed form of FileConfig.
type Settings struct {
	Addr           string
	MaxConnections int
	SleepDelay     time.Duration
	ReadTimeout    time.Duration

	PoolName    string
	Workers     int
	PanicPolicy threadpool.PanicPolicy

	LogName  string
	LogLevel level.Priority
}

// Default returns the settings used when no file is given.
func Default() Settings {
	return Settings{
		Addr:        "127.0.0.1:7878",
		SleepDelay:  5 * time.Second,
		ReadTimeout: 10 * time.Second,
		PoolName:    "hello",
		Workers:     4,
		PanicPolicy: threadpool.PanicRecover,
		LogName:     "hello",
		LogLevel:    level.Info,
	}
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes YAML. Unknown keys are rejected; empty input yields an empty FileConfig.
func Parse(data []byte) (*FileConfig, error) {
	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}
	return &fc, nil
}

// Validate checks values that are wrong regardless of defaults.
func (f *FileConfig) Validate() error {
	switch {
	case f.Server.MaxConnections < 0:
		return errors.New("server.max_connections must be non-negative")
	case f.Pool.Workers < 0:
		return errors.New("pool.workers must be non-negative")
	}
	return nil
}

// Settings overlays the file values on Default and converts them.
func (f *FileConfig) Settings() (Settings, error) {
	if err := f.Validate(); err != nil {
		return Settings{}, err
	}

	s := Default()

	if f.Server.Addr != "" {
		s.Addr = f.Server.Addr
	}
	if f.Server.MaxConnections > 0 {
		s.MaxConnections = f.Server.MaxConnections
	}
	if f.Server.SleepDelay != "" {
		d, err := parseDuration(f.Server.SleepDelay)
		if err != nil {
			return s, errors.Wrap(err, "invalid server.sleep_delay")
		}
		s.SleepDelay = d
	}
	if f.Server.ReadTimeout != "" {
		d, err := parseDuration(f.Server.ReadTimeout)
		if err != nil {
			return s, errors.Wrap(err, "invalid server.read_timeout")
		}
		s.ReadTimeout = d
	}

	if f.Pool.Name != "" {
		s.PoolName = f.Pool.Name
	}
	if f.Pool.Workers > 0 {
		s.Workers = f.Pool.Workers
	}
	if f.Pool.PanicPolicy != "" {
		p, err := threadpool.ParsePanicPolicy(f.Pool.PanicPolicy)
		if err != nil {
			return s, errors.Wrap(err, "invalid pool.panic_policy")
		}
		s.PanicPolicy = p
	}

	if f.Log.Name != "" {
		s.LogName = f.Log.Name
	}
	if f.Log.Level != "" {
		l, err := ParseLevel(f.Log.Level)
		if err != nil {
			return s, err
		}
		s.LogLevel = l
	}

	return s, nil
}

// ParseLevel converts a grip level name ("debug", "info", ...).
func ParseLevel(name string) (level.Priority, error) {
	l := level.FromString(name)
	if !l.IsValid() {
		return level.Invalid, errors.Errorf("unknown log level %q", name)
	}
	return l, nil
}

func parseDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.Errorf("negative duration %s", v)
	}
	return d, nil
}
