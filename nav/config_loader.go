package nav

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MQTTConfig holds broker settings for status publishing. An empty broker
// disables MQTT entirely.
type MQTTConfig struct {
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"client_id"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	PublishPrefix string `yaml:"publish_prefix"`
}

// Config is the unified application configuration.
type Config struct {
	// DatasetDir holds the waypoint reference images (and, for offline
	// runs, the replayed frames).
	DatasetDir string `yaml:"dataset_dir"`

	// RouteFile is the waypoints JSON path. Defaults to
	// <dataset_dir>/waypoints.json.
	RouteFile string `yaml:"route_file"`

	// Mode selects raw_gray or edge preprocessing.
	Mode string `yaml:"mode"`

	// TickIntervalMS is the inter-tick delay in milliseconds.
	TickIntervalMS int `yaml:"tick_interval_ms"`

	// ScaleWidth downscales captured frames wider than this; 0 disables.
	ScaleWidth int `yaml:"scale_width"`

	// EdgeLow/EdgeHigh are the edge-mode hysteresis thresholds.
	EdgeLow  float64 `yaml:"edge_low"`
	EdgeHigh float64 `yaml:"edge_high"`

	// MaxFeatures caps extraction; 0 picks the per-mode default.
	MaxFeatures int `yaml:"max_features"`

	// FastThreshold is the corner detector margin; 0 picks the default.
	FastThreshold int `yaml:"fast_threshold"`

	// MaxMatchDistance is the optional hard Hamming ceiling; 0 disables.
	MaxMatchDistance int `yaml:"max_match_distance"`

	// RawNormalizer/EdgeNormalizer are the similarity divisors.
	RawNormalizer  float64 `yaml:"raw_normalizer"`
	EdgeNormalizer float64 `yaml:"edge_normalizer"`

	Machine  MachineConfig  `yaml:"machine"`
	Steering ActuatorConfig `yaml:"steering"`

	// ActuatorAddr is the UDP address of the input bridge; empty disables
	// command output (dry run).
	ActuatorAddr string `yaml:"actuator_addr"`

	// HTTPPort serves the status API when > 0.
	HTTPPort int `yaml:"http_port"`

	MQTT MQTTConfig `yaml:"mqtt"`
}

// DefaultConfig returns a runnable configuration for raw grayscale mode.
func DefaultConfig() *Config {
	return &Config{
		Mode:           "raw_gray",
		TickIntervalMS: 100,
		EdgeLow:        20,
		EdgeHigh:       60,
		RawNormalizer:  100,
		EdgeNormalizer: 80,
		Machine:        DefaultMachineConfig(),
		Steering:       DefaultActuatorConfig(),
	}
}

// LoadConfig loads the unified configuration from a YAML file and applies
// environment overrides for MQTT credentials.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides lets deployment environments inject broker credentials
// without writing them to the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_CLIENT_ID"); v != "" {
		c.MQTT.ClientID = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	if v := os.Getenv("MQTT_PUBLISH_PREFIX"); v != "" {
		c.MQTT.PublishPrefix = v
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if _, err := ParsePreprocessMode(c.Mode); err != nil {
		return err
	}
	if c.TickIntervalMS < 0 {
		return fmt.Errorf("tick_interval_ms must be >= 0")
	}
	if c.EdgeHigh != 0 && c.EdgeLow != 0 && c.EdgeHigh <= c.EdgeLow {
		return fmt.Errorf("edge_high (%.0f) must exceed edge_low (%.0f)", c.EdgeHigh, c.EdgeLow)
	}
	if c.Machine.CalibrationThreshold < 0 || c.Machine.CalibrationThreshold > 1 {
		return fmt.Errorf("machine.calibration_threshold must be in [0, 1]")
	}
	if c.Machine.LowConfidenceFloor < 0 || c.Machine.LowConfidenceFloor > 1 {
		return fmt.Errorf("machine.low_confidence_floor must be in [0, 1]")
	}
	return nil
}

// SaveConfig writes the configuration back to a YAML file.
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

// RunnerConfig expands the flat file configuration into the pipeline tuning
// consumed by the runner.
func (c *Config) RunnerConfig() RunnerConfig {
	mode, _ := ParsePreprocessMode(c.Mode)
	cfg := DefaultRunnerConfig(mode)

	if c.TickIntervalMS > 0 {
		cfg.TickInterval = time.Duration(c.TickIntervalMS) * time.Millisecond
	}
	cfg.Preprocess.ScaleWidth = c.ScaleWidth
	if c.EdgeLow > 0 {
		cfg.Preprocess.EdgeLow = c.EdgeLow
	}
	if c.EdgeHigh > 0 {
		cfg.Preprocess.EdgeHigh = c.EdgeHigh
	}
	if c.MaxFeatures > 0 {
		cfg.Extractor.MaxFeatures = c.MaxFeatures
	}
	if c.FastThreshold > 0 {
		cfg.Extractor.Threshold = c.FastThreshold
	}
	if c.MaxMatchDistance > 0 {
		cfg.Matcher.MaxDistance = c.MaxMatchDistance
	}
	if c.RawNormalizer > 0 {
		cfg.Estimator.RawNormalizer = c.RawNormalizer
	}
	if c.EdgeNormalizer > 0 {
		cfg.Estimator.EdgeNormalizer = c.EdgeNormalizer
	}
	if c.Machine.CalibrationThreshold > 0 {
		cfg.Machine = c.Machine
		defaults := DefaultMachineConfig()
		if cfg.Machine.JumpSettle <= 0 {
			cfg.Machine.JumpSettle = defaults.JumpSettle
		}
		if cfg.Machine.InteractSettle <= 0 {
			cfg.Machine.InteractSettle = defaults.InteractSettle
		}
		if cfg.Machine.FlySettle <= 0 {
			cfg.Machine.FlySettle = defaults.FlySettle
		}
		if cfg.Machine.MaxCalibrationAttempts <= 0 {
			cfg.Machine.MaxCalibrationAttempts = defaults.MaxCalibrationAttempts
		}
		if cfg.Machine.BlindThreshold <= 0 {
			cfg.Machine.BlindThreshold = defaults.BlindThreshold
		}
		if cfg.Machine.SearchRotation == 0 {
			cfg.Machine.SearchRotation = defaults.SearchRotation
		}
		if cfg.Machine.AlignTolerance <= 0 {
			cfg.Machine.AlignTolerance = defaults.AlignTolerance
		}
	}
	if c.Steering.SteerGain > 0 {
		cfg.Steering = c.Steering
	}
	return cfg
}

// EffectiveRouteFile resolves the route path, defaulting into the dataset
// directory.
func (c *Config) EffectiveRouteFile() string {
	if c.RouteFile != "" {
		return c.RouteFile
	}
	return c.DatasetDir + "/waypoints.json"
}
