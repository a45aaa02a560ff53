// The *process* bootstrap configuration: the instance name, logger config,
// and default worker-pool sizing a host program loads once, before ever
// calling Container.Init. This is deliberately separate from the
// per-component JSON the container and bus consume; it is loaded from YAML,
// with a fixed top-level section ("runtime_config") and the rest of the
// document left for the embedding program's own sections.

package iotrt_internal

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	RUNTIME_CONFIG_SECTION_NAME = "runtime_config"

	RUNTIME_CONFIG_INSTANCE_DEFAULT          = "iot-runtime"
	RUNTIME_CONFIG_SHUTDOWN_MAX_WAIT_DEFAULT = 5 * time.Second
	RUNTIME_CONFIG_DEFAULT_THREADS_DEFAULT   = 0 // 0 -> GetAvailableCPUCount()
)

// RuntimeConfig is the fixed top-level section of the process's own bootstrap
// file. Everything a container needs to instantiate components (the
// per-component JSON) stays out of this struct entirely.
type RuntimeConfig struct {
	// Instance name, used only for logging/labeling by an embedding program;
	// this runtime itself has no notion of "instance".
	Instance string `yaml:"instance"`

	// How long Shutdown should wait for components to stop before giving up. A
	// negative value means wait indefinitely, 0 means don't wait at all.
	ShutdownMaxWait time.Duration `yaml:"shutdown_max_wait"`

	LoggerConfig *LoggerConfig `yaml:"log_config"`

	// Default worker count, for the embedding program's own use; 0 stands for
	// GetAvailableCPUCount(). Nothing in this package reads it: a Bus without
	// an explicit Threads value uses 2 workers and a "sched" component uses
	// GetAvailableCPUCount().
	DefaultThreads int `yaml:"default_threads"`

	// Directory FileLoader should use as the per-component config root, if the
	// embedding program wants the default file-based loader configured
	// automatically.
	ConfigDir string `yaml:"config_dir"`
}

func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		Instance:        RUNTIME_CONFIG_INSTANCE_DEFAULT,
		ShutdownMaxWait: RUNTIME_CONFIG_SHUTDOWN_MAX_WAIT_DEFAULT,
		LoggerConfig:    DefaultLoggerConfig(),
		DefaultThreads:  RUNTIME_CONFIG_DEFAULT_THREADS_DEFAULT,
	}
}

// LoadRuntimeConfig loads the process bootstrap file (or buf, for testing)
// as YAML. Only the fixed "runtime_config" top-level section is recognized;
// any other top-level keys are the embedding program's own business and are
// ignored here.
func LoadRuntimeConfig(cfgFile string, buf []byte) (*RuntimeConfig, error) {
	if buf == nil {
		f, err := os.Open(cfgFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		buf, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
		}
	}

	docNode := yaml.Node{}
	if err := yaml.Unmarshal(buf, &docNode); err != nil {
		return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
	}

	cfg := DefaultRuntimeConfig()
	if docNode.Kind == yaml.DocumentNode && len(docNode.Content) > 0 {
		rootNode := docNode.Content[0]
		if rootNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("file: %q: invalid YAML root node %q", cfgFile, rootNode.Tag)
		}
		for i := 0; i+1 < len(rootNode.Content); i += 2 {
			keyNode, valNode := rootNode.Content[i], rootNode.Content[i+1]
			if keyNode.Kind == yaml.ScalarNode && keyNode.Value == RUNTIME_CONFIG_SECTION_NAME {
				if err := valNode.Decode(cfg); err != nil {
					return nil, fmt.Errorf("file: %q: %v", cfgFile, err)
				}
			}
		}
	}

	return cfg, nil
}
