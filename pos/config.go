package pos

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ArtifactConfig points at the trained classifier artifacts.
type ArtifactConfig struct {
	FeatureList string `yaml:"featureList" json:"featureList"`
	Model       string `yaml:"model" json:"model"`
}

// RemoteConfig configures the remote prediction service. An empty URL
// disables the remote source.
type RemoteConfig struct {
	URL       string `yaml:"url,omitempty" json:"url,omitempty"`
	TimeoutMs int    `yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty"`
}

// Timeout returns the remote request timeout.
func (rc RemoteConfig) Timeout() time.Duration {
	if rc.TimeoutMs <= 0 {
		return DefaultRemoteTimeout
	}
	return time.Duration(rc.TimeoutMs) * time.Millisecond
}

// ScanIntervalConfig configures the adaptive acquisition cadence. Zero
// values fall back to the defaults.
type ScanIntervalConfig struct {
	InitialDelayMs int `yaml:"initialDelayMs,omitempty" json:"initialDelayMs,omitempty"`
	FastIntervalMs int `yaml:"fastIntervalMs,omitempty" json:"fastIntervalMs,omitempty"`
	SlowIntervalMs int `yaml:"slowIntervalMs,omitempty" json:"slowIntervalMs,omitempty"`
	ThrottleLimit  int `yaml:"throttleLimit,omitempty" json:"throttleLimit,omitempty"`
}

// Timing converts the config into scan source timing, filling defaults.
func (sc ScanIntervalConfig) Timing() ScanTiming {
	t := DefaultScanTiming()
	if sc.InitialDelayMs > 0 {
		t.InitialDelay = time.Duration(sc.InitialDelayMs) * time.Millisecond
	}
	if sc.FastIntervalMs > 0 {
		t.FastInterval = time.Duration(sc.FastIntervalMs) * time.Millisecond
	}
	if sc.SlowIntervalMs > 0 {
		t.SlowInterval = time.Duration(sc.SlowIntervalMs) * time.Millisecond
	}
	if sc.ThrottleLimit > 0 {
		t.ThrottleLimit = sc.ThrottleLimit
	}
	return t
}

// MQTTConfig holds MQTT connection settings. An empty broker disables
// publishing.
type MQTTConfig struct {
	Broker        string `yaml:"broker,omitempty" json:"broker,omitempty"`
	ClientID      string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	PublishPrefix string `yaml:"publishPrefix,omitempty" json:"publishPrefix,omitempty"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config is the full service configuration file. The label override table
// lives here as data — it is the single authoritative copy.
type Config struct {
	HTTPPort     int                `yaml:"httpPort,omitempty" json:"httpPort,omitempty"`
	PreferRemote bool               `yaml:"preferRemote,omitempty" json:"preferRemote,omitempty"`
	DebounceMs   int                `yaml:"debounceMs,omitempty" json:"debounceMs,omitempty"`
	GraphDir     string             `yaml:"graphDir" json:"graphDir"`
	HistoryPath  string             `yaml:"historyPath,omitempty" json:"historyPath,omitempty"`
	HistoryLimit int                `yaml:"historyLimit,omitempty" json:"historyLimit,omitempty"`
	Artifacts    ArtifactConfig     `yaml:"artifacts" json:"artifacts"`
	Remote       RemoteConfig       `yaml:"remote,omitempty" json:"remote,omitempty"`
	Scan         ScanIntervalConfig `yaml:"scan,omitempty" json:"scan,omitempty"`
	MQTT         MQTTConfig         `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
	Overrides    map[string]string  `yaml:"labelOverrides,omitempty" json:"labelOverrides,omitempty"`
}

// DebounceWindow returns the configured label quiescence window.
func (c *Config) DebounceWindow() time.Duration {
	if c.DebounceMs <= 0 {
		return DefaultDebounceWindow
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// LoadConfig loads and validates the service configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if config.Artifacts.FeatureList == "" {
		return nil, fmt.Errorf("artifacts.featureList is required")
	}
	if config.Artifacts.Model == "" {
		return nil, fmt.Errorf("artifacts.model is required")
	}
	if config.GraphDir == "" {
		return nil, fmt.Errorf("graphDir is required")
	}
	if config.HTTPPort == 0 {
		config.HTTPPort = 8080
	}
	if config.HistoryLimit == 0 {
		config.HistoryLimit = 500
	}

	return &config, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
