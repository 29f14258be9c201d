// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/bytescope/internal/core"
)

// GlobalConfig represents the top-level global static configuration.
// Maps to the `bytescope:` root key in YAML.
type GlobalConfig struct {
	Source  SourceConfig  `mapstructure:"source"`
	Framing FramingConfig `mapstructure:"framing"`
	Control ControlConfig `mapstructure:"control"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
	Sink    SinkConfig    `mapstructure:"sink"`
	Rules   string        `mapstructure:"rules"` // optional rule file applied at startup
}

// ─── Source ───

// SourceConfig selects where raw bytes come from.
type SourceConfig struct {
	Type             string        `mapstructure:"type"` // tcp | pcap
	Address          string        `mapstructure:"address"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	Reconnect        bool          `mapstructure:"reconnect"`
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff"`
	ReadBuffer       int           `mapstructure:"read_buffer"`
	SendQueue        int           `mapstructure:"send_queue"`
	Pcap             PcapConfig    `mapstructure:"pcap"`
}

// PcapConfig configures capture file replay.
type PcapConfig struct {
	File string `mapstructure:"file"`
	Port int    `mapstructure:"port"` // 0 = no port filter
	Loop bool   `mapstructure:"loop"`
}

// ─── Framing ───

// FramingConfig holds the initial delimiters and history bounds.
type FramingConfig struct {
	Start          string `mapstructure:"start"`
	End            string `mapstructure:"end"`
	MaxMessages    int    `mapstructure:"max_messages"`
	MaxBufferBytes int    `mapstructure:"max_buffer_bytes"` // 0 = unbounded
	QueueSize      int    `mapstructure:"queue_size"`
}

// ─── Control Plane ───

// ControlConfig contains local control plane settings.
type ControlConfig struct {
	Socket  string `mapstructure:"socket"`
	PIDFile string `mapstructure:"pid_file"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Sinks ───

// SinkConfig lists report sinks.
type SinkConfig struct {
	Log   LogSinkConfig   `mapstructure:"log"`
	Kafka KafkaSinkConfig `mapstructure:"kafka"`
}

// LogSinkConfig toggles per-message log records.
type LogSinkConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// KafkaSinkConfig configures the Kafka report sink.
type KafkaSinkConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	Compression  string        `mapstructure:"compression"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `bytescope: ...`.
type configRoot struct {
	Bytescope GlobalConfig `mapstructure:"bytescope"`
}

// Load loads configuration from file. An empty path yields the defaults plus
// environment overrides. Env vars map through the key replacer, e.g. key
// "bytescope.framing.start" → env "BYTESCOPE_FRAMING_START".
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Bytescope

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use "bytescope." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("bytescope.source.type", "tcp")
	v.SetDefault("bytescope.source.address", "127.0.0.1:9000")
	v.SetDefault("bytescope.source.dial_timeout", "5s")
	v.SetDefault("bytescope.source.reconnect", true)
	v.SetDefault("bytescope.source.reconnect_backoff", "2s")
	v.SetDefault("bytescope.source.read_buffer", 4096)
	v.SetDefault("bytescope.source.send_queue", 1024)
	v.SetDefault("bytescope.source.pcap.file", "")
	v.SetDefault("bytescope.source.pcap.port", 0)
	v.SetDefault("bytescope.source.pcap.loop", false)

	// Framing defaults
	v.SetDefault("bytescope.framing.start", "AA 55")
	v.SetDefault("bytescope.framing.end", "0D 0A")
	v.SetDefault("bytescope.framing.max_messages", 200)
	v.SetDefault("bytescope.framing.max_buffer_bytes", 1048576)
	v.SetDefault("bytescope.framing.queue_size", 1024)

	// Control defaults
	v.SetDefault("bytescope.control.socket", "/tmp/bytescope.sock")
	v.SetDefault("bytescope.control.pid_file", "/tmp/bytescope.pid")

	// Metrics defaults
	v.SetDefault("bytescope.metrics.enabled", true)
	v.SetDefault("bytescope.metrics.listen", ":9092")
	v.SetDefault("bytescope.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("bytescope.log.level", "info")
	v.SetDefault("bytescope.log.format", "text")
	v.SetDefault("bytescope.log.outputs.file.enabled", false)
	v.SetDefault("bytescope.log.outputs.file.path", "/tmp/bytescope/bytescope.log")
	v.SetDefault("bytescope.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("bytescope.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("bytescope.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("bytescope.log.outputs.file.rotation.compress", true)

	// Sink defaults
	v.SetDefault("bytescope.sink.log.enabled", true)
	v.SetDefault("bytescope.sink.kafka.enabled", false)
	v.SetDefault("bytescope.sink.kafka.brokers", []string{})
	v.SetDefault("bytescope.sink.kafka.topic", "")
	v.SetDefault("bytescope.sink.kafka.batch_timeout", "100ms")
	v.SetDefault("bytescope.sink.kafka.compression", "snappy")

	v.SetDefault("bytescope.rules", "")
}

// ValidateAndApplyDefaults validates configuration and normalises values.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "warning" {
		cfg.Log.Level = "warn"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format: %s (must be json/text)", core.ErrConfigInvalid, cfg.Log.Format)
	}

	// ── Framing validation ──
	if _, err := core.DecodeHex(cfg.Framing.Start); err != nil {
		return fmt.Errorf("%w: framing.start: %v", core.ErrConfigInvalid, err)
	}
	if _, err := core.DecodeHex(cfg.Framing.End); err != nil {
		return fmt.Errorf("%w: framing.end: %v", core.ErrConfigInvalid, err)
	}
	if cfg.Framing.MaxMessages <= 0 {
		return fmt.Errorf("%w: framing.max_messages must be positive", core.ErrConfigInvalid)
	}
	if cfg.Framing.MaxBufferBytes < 0 {
		return fmt.Errorf("%w: framing.max_buffer_bytes must not be negative", core.ErrConfigInvalid)
	}

	// ── Source validation ──
	cfg.Source.Type = strings.ToLower(cfg.Source.Type)
	switch cfg.Source.Type {
	case "tcp":
		if cfg.Source.Address == "" {
			return fmt.Errorf("%w: source.address is required for tcp source", core.ErrConfigInvalid)
		}
	case "pcap":
		if cfg.Source.Pcap.File == "" {
			return fmt.Errorf("%w: source.pcap.file is required for pcap source", core.ErrConfigInvalid)
		}
		if cfg.Source.Pcap.Port < 0 || cfg.Source.Pcap.Port > 65535 {
			return fmt.Errorf("%w: source.pcap.port out of range: %d", core.ErrConfigInvalid, cfg.Source.Pcap.Port)
		}
	default:
		return fmt.Errorf("%w: unsupported source.type: %s (must be tcp/pcap)", core.ErrConfigInvalid, cfg.Source.Type)
	}

	// ── Sink validation ──
	if cfg.Sink.Kafka.Enabled {
		if len(cfg.Sink.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: sink.kafka.brokers is required when sink.kafka.enabled=true", core.ErrConfigInvalid)
		}
		if cfg.Sink.Kafka.Topic == "" {
			return fmt.Errorf("%w: sink.kafka.topic is required when sink.kafka.enabled=true", core.ErrConfigInvalid)
		}
	}

	return nil
}
