// Package registry builds the process-wide components from configuration and
// owns their lifecycle: storage tiers, breaker, sync queue, event stream,
// scheduler and the memory service.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/breaker"
	"github.com/papercomputeco/strata/pkg/classify"
	"github.com/papercomputeco/strata/pkg/compress"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/dotdir"
	"github.com/papercomputeco/strata/pkg/eventstream"
	"github.com/papercomputeco/strata/pkg/eventstream/async"
	"github.com/papercomputeco/strata/pkg/eventstream/kafka"
	"github.com/papercomputeco/strata/pkg/eventstream/nop"
	"github.com/papercomputeco/strata/pkg/phase"
	"github.com/papercomputeco/strata/pkg/scheduler"
	"github.com/papercomputeco/strata/pkg/service"
	"github.com/papercomputeco/strata/pkg/storage"
	"github.com/papercomputeco/strata/pkg/storage/inmemory"
	"github.com/papercomputeco/strata/pkg/storage/postgres"
	"github.com/papercomputeco/strata/pkg/storage/sqlite"
	"github.com/papercomputeco/strata/pkg/storage/tiered"
	"github.com/papercomputeco/strata/pkg/syncqueue"
)

const (
	serviceName = "strata"

	// Job names.
	JobReconnect = "reconnect"
	JobSweep     = "cache-sweep"

	drainTimeout = 2 * time.Minute
)

// Options overrides parts of the configured stack.
type Options struct {
	// ConfigDir overrides .strata/ resolution for the default SQLite path.
	ConfigDir string

	// Logger is the provided zap logger
	Logger *zap.Logger

	// Remote replaces the postgres tier built from remote.dsn.
	Remote storage.RemoteTier

	// Publisher replaces the event backend built from events.provider.
	Publisher eventstream.Publisher
}

// Registry holds the wired components.
type Registry struct {
	Config    *config.Config
	Cache     *inmemory.Cache
	Local     *sqlite.Driver
	Breaker   *breaker.Breaker
	Queue     *syncqueue.Queue
	Store     *tiered.Store
	Service   *service.Service
	Scheduler *scheduler.Scheduler

	publisher eventstream.Publisher
	source    eventstream.EventSource
	logger    *zap.Logger

	// wg tracks drains started by breaker transitions; mu guards closed and
	// every wg.Add so none races Close's Wait.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// New builds every component. Nothing runs in the background until Start.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Registry, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		Config:  cfg,
		Breaker: breaker.New(),
		logger:  logger,
		source:  eventSource(),
	}

	publisher, err := r.newPublisher(opts.Publisher)
	if err != nil {
		return nil, err
	}
	r.publisher = publisher

	if err := r.buildStorage(ctx, opts); err != nil {
		_ = publisher.Close()
		return nil, err
	}

	lex := classify.DefaultLexicon()
	engine := compress.NewEngine(compress.Config{
		TargetSize:            int(cfg.Compression.TargetSize),
		TriggerRatio:          cfg.Compression.TriggerRatio,
		MaxBlocks:             int(cfg.Compression.MaxBlocks),
		PreservePhaseInsights: cfg.Compression.PreservePhaseInsights,
		Lexicon:               &lex,
	})

	r.Service, err = service.New(service.Config{
		Store:      r.Store,
		Compressor: engine,
		Tracker:    phase.NewTracker(classify.NewPhaseSignals(lex), 0),
		Importance: classify.NewImportance(lex),
		Intents:    classify.NewIntents(lex),
		Logger:     logger.Named("service"),
	})
	if err != nil {
		_ = r.Close()
		return nil, err
	}

	r.Scheduler = scheduler.New(logger.Named("scheduler"))
	if err := r.addJobs(); err != nil {
		_ = r.Close()
		return nil, err
	}

	r.Breaker.Subscribe(r.onConnectivity)

	return r, nil
}

func (r *Registry) newPublisher(override eventstream.Publisher) (eventstream.Publisher, error) {
	backend := override
	if backend == nil {
		switch r.Config.Events.Provider {
		case config.EventsKafka:
			p, err := kafka.NewPublisher(kafka.Config{
				Brokers: r.Config.Events.BrokerList(),
				Topic:   r.Config.Events.Topic,
			})
			if err != nil {
				return nil, fmt.Errorf("creating kafka publisher: %w", err)
			}
			backend = p
		case config.EventsNop, "":
			backend = nop.NewPublisher()
		default:
			return nil, fmt.Errorf("unknown events provider: %q", r.Config.Events.Provider)
		}
	}

	pool, err := async.NewPool(&async.Config{
		Publisher:  backend,
		NumWorkers: r.Config.Events.Workers,
		QueueSize:  r.Config.Events.QueueSize,
		Logger:     r.logger.Named("events"),
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("creating event pool: %w", err)
	}
	return pool, nil
}

func (r *Registry) buildStorage(ctx context.Context, opts Options) error {
	cfg := r.Config

	r.Cache = inmemory.NewCache(
		inmemory.WithTTL(cfg.Storage.CacheTTL.Std()),
		inmemory.WithMaxEntries(int(cfg.Storage.CacheMaxEntries)),
	)

	dbPath, err := dotdir.NewManager().DatabasePath(cfg.Storage.SQLitePath, opts.ConfigDir)
	if err != nil {
		return fmt.Errorf("resolving local store path: %w", err)
	}
	r.Local, err = sqlite.NewDriver(dbPath)
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}

	remote := opts.Remote
	if remote == nil && cfg.Remote.DSN != "" {
		pg, err := postgres.NewDriver(cfg.Remote.DSN, cfg.Remote.Timeout.Std())
		if err != nil {
			_ = r.Local.Close()
			return fmt.Errorf("opening remote store: %w", err)
		}
		remote = pg
	}

	var queueStore syncqueue.Store
	switch cfg.Sync.Queue {
	case config.QueueMemory:
		queueStore = syncqueue.NewMemoryStore()
	default:
		queueStore, err = syncqueue.NewSQLiteStore(ctx, r.Local.DB())
		if err != nil {
			_ = r.Local.Close()
			return fmt.Errorf("opening sync queue: %w", err)
		}
	}

	r.Queue, err = syncqueue.New(syncqueue.Config{
		Store:       queueStore,
		Replayer:    tiered.NewReplayer(remote, r.Breaker),
		MaxAttempts: int(cfg.Sync.MaxAttempts),
		Backoff:     cfg.Sync.Backoff.Std(),
		Publisher:   r.publisher,
		Source:      r.source,
		Logger:      r.logger.Named("syncqueue"),
	})
	if err != nil {
		_ = r.Local.Close()
		return err
	}

	r.Store, err = tiered.New(tiered.Config{
		Cache:   r.Cache,
		Local:   r.Local,
		Remote:  remote,
		Queue:   r.Queue,
		Breaker: r.Breaker,
		Logger:  r.logger.Named("tiered"),
	})
	if err != nil {
		_ = r.Local.Close()
		return err
	}
	return nil
}

func (r *Registry) addJobs() error {
	if r.Store.HasRemote() {
		err := r.Scheduler.Add(scheduler.Job{
			Name:  JobReconnect,
			Every: r.Config.Remote.ReconnectInterval.Std(),
			Run:   r.reconnectIfOffline,
		})
		if err != nil {
			return err
		}
	}

	return r.Scheduler.Add(scheduler.Job{
		Name:  JobSweep,
		Every: r.Config.Storage.SweepInterval.Std(),
		Run: func(context.Context) error {
			if n := r.Cache.Sweep(); n > 0 {
				r.logger.Debug("expired cache entries swept", zap.Int("count", n))
			}
			return nil
		},
	})
}

// reconnectIfOffline tries to reconnect while offline. Closing the breaker triggers the
// drain through onConnectivity.
func (r *Registry) reconnectIfOffline(ctx context.Context) error {
	if r.Store.IsOnline() {
		return nil
	}
	return r.Store.Reconnect(ctx)
}

// onConnectivity runs on every breaker transition.
func (r *Registry) onConnectivity(state breaker.State) {
	online := state == breaker.Closed
	event := eventstream.NewConnectivityEvent(r.source, eventstream.ConnectivityMeta{
		Online: online,
		Tier:   "remote",
	}, time.Now())
	if err := r.publisher.Publish(context.Background(), event); err != nil {
		r.logger.Warn("failed to publish connectivity event", zap.Error(err))
	}

	if online {
		r.drainAsync()
	}
}

func (r *Registry) drainAsync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()

		if _, err := r.Queue.Drain(ctx); err != nil {
			r.logger.Error("sync drain failed", zap.Error(err))
		}
	}()
}

// Start launches the scheduler and, when a remote tier is configured, checks
// it once so writes queued by an earlier run are replayed.
func (r *Registry) Start(ctx context.Context) {
	r.Scheduler.Start()

	if !r.Store.HasRemote() {
		return
	}
	if err := r.Store.Reconnect(ctx); err != nil {
		r.logger.Warn("remote tier unreachable at startup, running offline", zap.Error(err))
		return
	}
	r.drainAsync()
}

// Drain replays queued writes now.
func (r *Registry) Drain(ctx context.Context) (syncqueue.DrainResult, error) {
	return r.Queue.Drain(ctx)
}

// Status is a snapshot of the storage and sync state.
type Status struct {
	Online       bool       `json:"online"`
	HasRemote    bool       `json:"has_remote"`
	Breaker      string     `json:"breaker"`
	OfflineSince *time.Time `json:"offline_since,omitempty"`
	Failures     int64      `json:"failures"`
	Queued       int        `json:"queued"`
	RetryPending bool       `json:"retry_pending"`
	Cached       int        `json:"cached"`
	Stored       int        `json:"stored"`
}

// Status reports the current state.
func (r *Registry) Status(ctx context.Context) (Status, error) {
	queued, err := r.Queue.Len(ctx)
	if err != nil {
		return Status{}, err
	}
	stored, err := r.Local.Count(ctx)
	if err != nil {
		return Status{}, err
	}

	s := Status{
		Online:       r.Store.IsOnline(),
		HasRemote:    r.Store.HasRemote(),
		Breaker:      string(r.Breaker.State()),
		Failures:     r.Breaker.Failures(),
		Queued:       queued,
		RetryPending: r.Queue.RetryPending(),
		Cached:       r.Cache.Len(),
		Stored:       stored,
	}
	if at := r.Breaker.OpenedAt(); !at.IsZero() {
		s.OfflineSince = &at
	}
	return s, nil
}

// Close stops background work and releases every component. Drains still
// running finish before the stores close.
func (r *Registry) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		if r.Scheduler != nil {
			r.Scheduler.Stop(5 * time.Second)
		}
		r.Queue.Close()
		r.wg.Wait()
		err = errors.Join(r.Store.Close(), r.publisher.Close())
	})
	return err
}

func eventSource() eventstream.EventSource {
	host, _ := os.Hostname()
	return eventstream.EventSource{Service: serviceName, Instance: host}
}
