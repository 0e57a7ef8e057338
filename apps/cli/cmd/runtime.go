package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hostline/packages/core/config"
	"github.com/abdul-hamid-achik/hostline/packages/hostq"
	"github.com/abdul-hamid-achik/hostline/packages/http"
	"github.com/abdul-hamid-achik/hostline/packages/journal"
	"github.com/abdul-hamid-achik/hostline/packages/logger"
	"github.com/abdul-hamid-achik/hostline/packages/worker"
)

// runtime is everything a command needs, built from config and flags
type runtime struct {
	cfg      *config.Config
	log      zerolog.Logger
	registry *hostq.Registry
	pool     *http.Pool
	client   *http.Client
	workers  *worker.Pool
	journal  *journal.Store
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	if err := config.LoadEnvFile(envFileFlag); err != nil {
		return nil, configError(err)
	}

	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, configError(err)
	}

	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Log.Format = logFormatFlag
	}
	if noColorFlag {
		cfg.Log.NoColor = true
	}
	if err := cfg.Log.Validate(); err != nil {
		return nil, configError(err)
	}
	if journalFlag != "" {
		cfg.Journal = journalFlag
	}

	rt := &runtime{
		cfg:      cfg,
		log:      logger.New(cfg.Log, cmd.ErrOrStderr()),
		registry: hostq.NewRegistry(cfg.Hostq()),
		pool:     http.NewPool(),
	}

	opts := []http.ClientOption{
		http.WithRegistry(rt.registry),
		http.WithPool(rt.pool),
		http.WithLogger(logger.WithComponent(rt.log, "client")),
		http.WithDefaultTimeout(cfg.Timeout()),
	}

	if cfg.Journal != "" {
		store, err := journal.Open(cfg.Journal)
		if err != nil {
			return nil, configError(err)
		}
		rt.journal = store
		opts = append(opts, http.WithRecorder(store))
	}

	// Delegated requests run on the same registry and connection pools, so
	// they queue behind local requests to the same host.
	local := http.NewClient(
		http.WithRegistry(rt.registry),
		http.WithPool(rt.pool),
		http.WithLogger(logger.WithComponent(rt.log, "worker")),
		http.WithDefaultTimeout(cfg.Timeout()),
	)
	rt.workers = worker.NewPool(local, cfg.Workers, worker.WithLogger(logger.WithComponent(rt.log, "worker")))
	opts = append(opts, http.WithWorker(rt.workers))

	rt.client = http.NewClient(opts...)

	rt.log.Debug().
		Float64("rate", cfg.RateLimit).
		Int("burst", cfg.Burst).
		Int("workers", rt.workers.Size()).
		Str("journal", cfg.Journal).
		Msg("runtime ready")

	return rt, nil
}

// watchConfig applies rate and burst changes from the config file until
// ctx is done
func (rt *runtime) watchConfig(ctx context.Context) error {
	if configFlag == "" {
		return errors.New("--watch requires --config")
	}
	if _, err := os.Stat(configFlag); err != nil {
		return configError(err)
	}

	go func() {
		err := config.Watch(ctx, configFlag, func(cfg *config.Config, err error) {
			if err != nil {
				rt.log.Warn().Err(err).Msg("config reload failed")
				return
			}
			rt.registry.SetRate(cfg.RateLimit)
			rt.registry.SetBurst(cfg.Burst)
			rt.log.Info().Float64("rate", cfg.RateLimit).Int("burst", cfg.Burst).Msg("config reloaded")
		})
		if err != nil {
			rt.log.Warn().Err(err).Msg("config watch stopped")
		}
	}()
	return nil
}

func (rt *runtime) Close() {
	rt.workers.Close()
	rt.pool.CloseIdleConnections()
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			rt.log.Warn().Err(err).Msg("failed to close journal")
		}
	}
}
