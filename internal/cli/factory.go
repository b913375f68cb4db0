package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/dynamo"
	"github.com/aretw0/dynamo/internal/config"
	"github.com/aretw0/dynamo/internal/logging"
	"github.com/aretw0/dynamo/pkg/adapters/file"
	"github.com/aretw0/dynamo/pkg/adapters/memory"
	"github.com/aretw0/dynamo/pkg/adapters/redis"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/observability"
	"github.com/aretw0/dynamo/pkg/persistence/middleware"
	"github.com/aretw0/dynamo/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Options configure the workbench built for a command.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// Debug installs hooks logging every run and node evaluation.
	Debug bool
	// Metrics registers run and node metrics when set.
	Metrics prometheus.Registerer
}

// NewWorkbench builds a workbench with the definition store selected by the
// configuration. The returned function releases the store.
func NewWorkbench(opts Options) (*dynamo.Workbench, func() error, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	store, locker, closeStore := openStore(cfg, logger)
	active, fallbacks, err := cfg.Store.Keys()
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	if active != nil {
		store = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		})(store)
		logger.Debug("custom node documents are encrypted at rest")
	}

	var hooks []domain.LifecycleHooks
	if opts.Debug {
		hooks = append(hooks, observability.LoggingHooks(logger))
	}
	if opts.Metrics != nil {
		m, err := observability.NewMetrics(opts.Metrics)
		if err != nil {
			_ = closeStore()
			return nil, nil, fmt.Errorf("error registering metrics: %w", err)
		}
		hooks = append(hooks, m.Hooks())
	}

	wbOpts := []dynamo.Option{
		dynamo.WithLogger(logger),
		dynamo.WithDefinitionStore(store),
		dynamo.WithShortCircuit(cfg.Run.ShortCircuit),
		dynamo.WithLifecycleHooks(observability.Combine(hooks...)),
	}
	if cfg.Run.MaxCallDepth > 0 {
		wbOpts = append(wbOpts, dynamo.WithMaxCallDepth(cfg.Run.MaxCallDepth))
	}
	if locker != nil {
		wbOpts = append(wbOpts, dynamo.WithLocker(locker))
	}
	return dynamo.New(wbOpts...), closeStore, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (ports.DocumentStore, ports.DocumentLocker, func() error) {
	nop := func() error { return nil }
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil, nop
	case config.DriverRedis:
		r := cfg.Store.Redis
		s := redis.New(r.Addr, r.Password, r.DB, redis.WithPrefix(r.Prefix+":doc:"))
		logger.Debug("using redis definition store", "addr", r.Addr, "db", r.DB)
		return s, redis.NewLocker(s.Client(), r.Prefix+":"), s.Close
	default:
		return file.NewWatchedStore(cfg.Definitions.Dir, file.WithWatchLogger(logger)), nil, nop
	}
}
