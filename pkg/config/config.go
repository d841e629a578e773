package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/taskmesh/taskmesh/pkg/allocator"
	"github.com/taskmesh/taskmesh/pkg/log"
	"github.com/taskmesh/taskmesh/pkg/types"
)

// Policy names one of the allocator implementations a cluster can start
// with.
type Policy string

const (
	PolicyEvenLoad      Policy = "even"
	PolicyResourceAware Policy = "resources"
)

// BootstrapWorker describes a worker the demo process registers with the
// scheduler at startup, before any real worker would have joined.
type BootstrapWorker struct {
	Resources map[types.Token]int64 `yaml:"resources"`
	QueueSize uint32                `yaml:"queue_size"`
}

// Config is the startup configuration for cmd/dispatchd.
type Config struct {
	Policy           Policy            `yaml:"policy"`
	DefaultQueueSize uint32            `yaml:"default_queue_size"`
	BootstrapWorkers []BootstrapWorker `yaml:"bootstrap_workers"`
	Log              LogConfig         `yaml:"log"`
	TaskExecSeconds  float64           `yaml:"task_exec_seconds"`
}

// LogConfig configures pkg/log's global logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads and validates a YAML configuration file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyEvenLoad
	}
	if c.DefaultQueueSize == 0 {
		c.DefaultQueueSize = 4
	}
	if c.TaskExecSeconds == 0 {
		c.TaskExecSeconds = 0.05
	}
	if c.Log.Level == "" {
		c.Log.Level = string(log.InfoLevel)
	}
}

func (c *Config) validate() error {
	switch c.Policy {
	case PolicyEvenLoad, PolicyResourceAware:
	default:
		return fmt.Errorf("config: unknown policy %q", c.Policy)
	}
	return nil
}

// NewPolicy constructs the allocator.Policy this configuration names.
func (c *Config) NewPolicy(logger zerolog.Logger) allocator.Policy {
	switch c.Policy {
	case PolicyResourceAware:
		return allocator.NewResourceAwarePolicy(logger)
	default:
		return allocator.NewEvenLoadPolicy(logger)
	}
}
