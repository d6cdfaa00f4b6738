package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"scflow/internal/sctime"
)

type Config struct {
	Scflow    ServiceConfig              `yaml:"scflow"`
	DataRoot  string                     `yaml:"data_root"`
	UTCOffset float64                    `yaml:"utc_offset_hours"`
	Sleep     Duration                   `yaml:"sleep_interval"`
	Session   SessionConfig              `yaml:"session"`
	Bars      BarsConfig                 `yaml:"bars"`
	Contracts map[string]*ContractConfig `yaml:"contracts"`
	Storage   StorageConfig              `yaml:"storage"`
	Logging   LoggingConfig              `yaml:"logging"`
}

type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SessionConfig bounds the trading session as local times of day. Empty
// start and end mean the whole day.
type SessionConfig struct {
	Start                string `yaml:"start"`
	End                  string `yaml:"end"`
	NewBarAtSessionStart bool   `yaml:"new_bar_at_session_start"`
}

type BarsConfig struct {
	TimeFrames       []Duration `yaml:"time_frames"`
	TradeCounts      []int      `yaml:"trade_counts"`
	VolumeThresholds []int64    `yaml:"volume_thresholds"`
}

// ContractConfig holds per-contract ETL switches and durable checkpoints.
// Checkpoints are updated in memory after each committed batch and written
// back with Save.
type ContractConfig struct {
	Tas             bool            `yaml:"tas"`
	Depth           bool            `yaml:"depth"`
	PriceAdjustment float64         `yaml:"price_adjustment"`
	CheckpointTick  int64           `yaml:"checkpoint_tick"`
	CheckpointDepth DepthCheckpoint `yaml:"checkpoint_depth"`
}

// DepthCheckpoint marks progress through a contract's per-day depth files:
// the date of the last file touched and the number of records consumed from
// it.
type DepthCheckpoint struct {
	Date   string `yaml:"date"`
	Record int64  `yaml:"record"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled           bool   `yaml:"enabled"`
	Bucket            string `yaml:"bucket"`
	Region            string `yaml:"region"`
	Endpoint          string `yaml:"endpoint"`
	PathStyle         bool   `yaml:"path_style"`
	AccessKeyID       string `yaml:"access_key_id"`
	SecretAccessKey   string `yaml:"secret_access_key"`
	RequestsPerSecond int    `yaml:"requests_per_second"`
	BurstSize         int    `yaml:"burst_size"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	MaxAge    int    `yaml:"max_age"`
	Namespace string `yaml:"namespace"`
}

// Duration wraps time.Duration so yaml values can be written as "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Save writes the configuration, including any checkpoints advanced since
// Load, back to the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SessionBounds returns the configured session window as microseconds since
// local midnight, inclusive on both ends. An unset window spans the whole
// day.
func (c *Config) SessionBounds() (start, end int64, err error) {
	if c.Session.Start == "" && c.Session.End == "" {
		return 0, sctime.DayMicros - 1, nil
	}
	start, err = sctime.ParseTimeOfDay(c.Session.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err = sctime.ParseTimeOfDay(c.Session.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Scflow.Name == "" {
		return fmt.Errorf("scflow.name is required")
	}

	if cfg.DataRoot == "" {
		return fmt.Errorf("data_root is required")
	}

	if cfg.Sleep <= 0 {
		return fmt.Errorf("sleep_interval must be greater than 0")
	}

	if len(cfg.Contracts) == 0 {
		return fmt.Errorf("at least one contract must be configured")
	}

	for id, contract := range cfg.Contracts {
		if contract.PriceAdjustment == 0 {
			return fmt.Errorf("contracts.%s.price_adjustment must be non-zero", id)
		}
		if contract.CheckpointTick < 0 {
			return fmt.Errorf("contracts.%s.checkpoint_tick must not be negative", id)
		}
		if contract.CheckpointDepth.Record < 0 {
			return fmt.Errorf("contracts.%s.checkpoint_depth.record must not be negative", id)
		}
		if d := contract.CheckpointDepth.Date; d != "" {
			if _, err := time.Parse("20060102", d); err != nil {
				return fmt.Errorf("contracts.%s.checkpoint_depth.date %q is not YYYYMMDD", id, d)
			}
		}
	}

	if (cfg.Session.Start == "") != (cfg.Session.End == "") {
		return fmt.Errorf("session.start and session.end must be set together")
	}
	if _, _, err := cfg.SessionBounds(); err != nil {
		return err
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
	}

	return nil
}
