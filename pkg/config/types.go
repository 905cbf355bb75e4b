package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent strata configuration stored as config.toml
// in the .strata/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Remote      RemoteConfig      `toml:"remote"`
	Sync        SyncConfig        `toml:"sync"`
	Compression CompressionConfig `toml:"compression"`
	Events      EventsConfig      `toml:"events"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
}

// StorageConfig holds the cache and local durable tier settings.
type StorageConfig struct {
	// SQLitePath is the local durable store. Empty means strata.sqlite in the
	// resolved .strata/ directory.
	SQLitePath      string   `toml:"sqlite_path,omitempty"`
	CacheTTL        Duration `toml:"cache_ttl"`
	CacheMaxEntries uint     `toml:"cache_max_entries"`
	SweepInterval   Duration `toml:"sweep_interval"`
}

// RemoteConfig holds the remote tier settings. An empty DSN runs local-only.
type RemoteConfig struct {
	DSN           string   `toml:"dsn,omitempty"`
	Timeout       Duration `toml:"timeout"`
	ReconnectInterval Duration `toml:"reconnect_interval"`
}

// SyncConfig holds sync queue settings.
type SyncConfig struct {
	// Queue is "sqlite" (durable, shares the local store) or "memory".
	Queue       string   `toml:"queue"`
	MaxAttempts uint     `toml:"max_attempts"`
	Backoff     Duration `toml:"backoff"`
}

// CompressionConfig holds compression engine settings.
type CompressionConfig struct {
	TargetSize            uint    `toml:"target_size"`
	TriggerRatio          float64 `toml:"trigger_ratio"`
	MaxBlocks             uint    `toml:"max_blocks"`
	PreservePhaseInsights bool    `toml:"preserve_phase_insights"`
}

// EventsConfig holds status event stream settings.
type EventsConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider"`

	// Brokers is a comma separated list of kafka brokers.
	Brokers   string `toml:"brokers,omitempty"`
	Topic     string `toml:"topic,omitempty"`
	Workers   uint   `toml:"workers"`
	QueueSize uint   `toml:"queue_size"`
}

// BrokerList splits Brokers into addresses.
func (e EventsConfig) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (e.g. strata status). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatUint(uint64(*field(c)), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *Duration) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return field(c).String() },
		set: func(c *Config, v string) error {
			if err := field(c).UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.cache_ttl": durationKey("storage.cache_ttl",
		func(c *Config) *Duration { return &c.Storage.CacheTTL }),
	"storage.cache_max_entries": uintKey("storage.cache_max_entries",
		func(c *Config) *uint { return &c.Storage.CacheMaxEntries }),
	"storage.sweep_interval": durationKey("storage.sweep_interval",
		func(c *Config) *Duration { return &c.Storage.SweepInterval }),

	"remote.dsn": stringKey(func(c *Config) *string { return &c.Remote.DSN }),
	"remote.timeout": durationKey("remote.timeout",
		func(c *Config) *Duration { return &c.Remote.Timeout }),
	"remote.reconnect_interval": durationKey("remote.reconnect_interval",
		func(c *Config) *Duration { return &c.Remote.ReconnectInterval }),

	"sync.queue": {
		get: func(c *Config) string { return c.Sync.Queue },
		set: func(c *Config, v string) error {
			switch v {
			case QueueSQLite, QueueMemory:
				c.Sync.Queue = v
				return nil
			}
			return fmt.Errorf("invalid value for sync.queue: %q (expected %s or %s)", v, QueueSQLite, QueueMemory)
		},
	},
	"sync.max_attempts": uintKey("sync.max_attempts", func(c *Config) *uint { return &c.Sync.MaxAttempts }),
	"sync.backoff":      durationKey("sync.backoff", func(c *Config) *Duration { return &c.Sync.Backoff }),

	"compression.target_size": uintKey("compression.target_size",
		func(c *Config) *uint { return &c.Compression.TargetSize }),
	"compression.trigger_ratio": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Compression.TriggerRatio, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for compression.trigger_ratio: %w", err)
			}
			if f < 1 {
				return fmt.Errorf("invalid value for compression.trigger_ratio: %v is below 1", f)
			}
			c.Compression.TriggerRatio = f
			return nil
		},
	},
	"compression.max_blocks": uintKey("compression.max_blocks",
		func(c *Config) *uint { return &c.Compression.MaxBlocks }),
	"compression.preserve_phase_insights": {
		get: func(c *Config) string { return strconv.FormatBool(c.Compression.PreservePhaseInsights) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for compression.preserve_phase_insights: %w", err)
			}
			c.Compression.PreservePhaseInsights = b
			return nil
		},
	},

	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case EventsNop, EventsKafka:
				c.Events.Provider = v
				return nil
			}
			return fmt.Errorf("invalid value for events.provider: %q (expected %s or %s)", v, EventsNop, EventsKafka)
		},
	},
	"events.brokers":    stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":      stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"events.workers":    uintKey("events.workers", func(c *Config) *uint { return &c.Events.Workers }),
	"events.queue_size": uintKey("events.queue_size", func(c *Config) *uint { return &c.Events.QueueSize }),

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),
}

// orderedKeys lists configKeys in TOML section order.
var orderedKeys = []string{
	"storage.sqlite_path",
	"storage.cache_ttl",
	"storage.cache_max_entries",
	"storage.sweep_interval",
	"remote.dsn",
	"remote.timeout",
	"remote.reconnect_interval",
	"sync.queue",
	"sync.max_attempts",
	"sync.backoff",
	"compression.target_size",
	"compression.trigger_ratio",
	"compression.max_blocks",
	"compression.preserve_phase_insights",
	"events.provider",
	"events.brokers",
	"events.topic",
	"events.workers",
	"events.queue_size",
	"api.listen",
	"client.api_target",
}
