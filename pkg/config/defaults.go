package config

import "time"

// Sync queue backends.
const (
	QueueSQLite = "sqlite"
	QueueMemory = "memory"
)

// Event stream providers.
const (
	EventsNop   = "nop"
	EventsKafka = "kafka"
)

const (
	defaultCacheTTL        = 5 * time.Minute
	defaultCacheMaxEntries = 1024
	defaultSweepInterval   = time.Minute

	defaultRemoteTimeout = 5 * time.Second
	defaultReconnectInterval = 15 * time.Second

	defaultMaxAttempts = 5
	defaultBackoff     = 30 * time.Second

	defaultTargetSize   = 20
	defaultTriggerRatio = 1.5
	defaultMaxBlocks    = 10

	defaultEventsTopic     = "strata.events"
	defaultEventsWorkers   = 2
	defaultEventsQueueSize = 256

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			CacheTTL:        Duration(defaultCacheTTL),
			CacheMaxEntries: defaultCacheMaxEntries,
			SweepInterval:   Duration(defaultSweepInterval),
		},
		Remote: RemoteConfig{
			Timeout:       Duration(defaultRemoteTimeout),
			ReconnectInterval: Duration(defaultReconnectInterval),
		},
		Sync: SyncConfig{
			Queue:       QueueSQLite,
			MaxAttempts: defaultMaxAttempts,
			Backoff:     Duration(defaultBackoff),
		},
		Compression: CompressionConfig{
			TargetSize:            defaultTargetSize,
			TriggerRatio:          defaultTriggerRatio,
			MaxBlocks:             defaultMaxBlocks,
			PreservePhaseInsights: true,
		},
		Events: EventsConfig{
			Provider:  EventsNop,
			Topic:     defaultEventsTopic,
			Workers:   defaultEventsWorkers,
			QueueSize: defaultEventsQueueSize,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
