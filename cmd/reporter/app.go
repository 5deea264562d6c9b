package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"clearcrew/internal/devicestore"
	"clearcrew/internal/devicestore/memory"
	devpebble "clearcrew/internal/devicestore/pebble"
	devredis "clearcrew/internal/devicestore/redis"
	identityservice "clearcrew/internal/identity/service"
	identitystore "clearcrew/internal/identity/store"
	"clearcrew/internal/ledger"
	"clearcrew/internal/pipeline"
	"clearcrew/internal/platform/config"
	"clearcrew/internal/platform/metrics"
	platformredis "clearcrew/internal/platform/redis"
	"clearcrew/internal/prover"
	"clearcrew/internal/prover/groth16"
	"clearcrew/internal/prover/remote"
	"clearcrew/internal/registry"
	"clearcrew/internal/sealer"
	"clearcrew/internal/session"
	"clearcrew/internal/storage/pinata"
	"clearcrew/internal/witness"
	dErrors "clearcrew/pkg/domain-errors"
	"clearcrew/pkg/platform/sentinel"
)

// app holds the long-lived collaborators one command needs. Nothing here is
// global; each run builds its own.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	promReg  *prometheus.Registry
	metrics  *metrics.Metrics
	kv       devicestore.Store
	session  *session.Session
	registry *registry.Client
	ids      *identitystore.Store
	closers  []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, promReg: prometheus.NewRegistry()}
	a.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.promReg)

	kv, err := a.openDeviceStore(ctx)
	if err != nil {
		return nil, err
	}
	a.kv = kv
	a.closers = append(a.closers, kv.Close)

	a.session = session.New(kv)
	a.ids = identitystore.New(kv)
	a.registry, err = registry.New(cfg.Registry.BaseURL, a.session,
		registry.WithHTTPClient(&http.Client{Timeout: cfg.Registry.Timeout}),
		registry.WithLogger(logger),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openDeviceStore(ctx context.Context) (devicestore.Store, error) {
	switch a.cfg.DeviceStore.Backend {
	case config.DeviceStoreMemory:
		return memory.New(), nil
	case config.DeviceStoreRedis:
		client, err := platformredis.New(ctx, a.cfg.DeviceStore.Redis)
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.Wrap(err, dErrors.CodeNetworkFailure, "device store unreachable")
		}
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return devredis.New(client.Client, devredis.WithKeyPrefix(a.cfg.DeviceStore.Redis.KeyPrefix)), nil
	default:
		if err := os.MkdirAll(a.cfg.DeviceStore.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("create device store directory: %w", err)
		}
		return devpebble.Open(a.cfg.DeviceStore.Dir)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) registrar() (*identityservice.Registrar, error) {
	return identityservice.New(a.ids, a.registry,
		identityservice.WithLogger(a.logger),
		identityservice.WithMetrics(a.metrics),
	)
}

// tracker builds the full submission pipeline behind a Tracker.
func (a *app) tracker(ctx context.Context) (*pipeline.Tracker, error) {
	backend, err := a.proverBackend()
	if err != nil {
		return nil, err
	}
	orchestrator, err := prover.New(backend, prover.WithLogger(a.logger), prover.WithMetrics(a.metrics))
	if err != nil {
		return nil, err
	}
	fetcher, err := witness.NewFetcher(a.registry,
		witness.WithDepth(a.cfg.Pipeline.TreeDepth),
		witness.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	sl, err := sealer.New(sealer.WithScheme(sealer.Scheme(a.cfg.Sealer.Scheme)))
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
	}
	if a.cfg.Pipeline.Mode == config.ModeRelay {
		opts = append(opts, pipeline.WithRelay(a.registry))
	} else {
		anchor, err := a.anchorOption(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, anchor)
	}

	p, err := pipeline.New(a.ids, a.registry, sl, fetcher, orchestrator, opts...)
	if err != nil {
		return nil, err
	}
	return pipeline.NewTracker(p, pipeline.WithTrackerLogger(a.logger))
}

func (a *app) anchorOption(ctx context.Context) (pipeline.Option, error) {
	if err := a.cfg.ValidateAnchor(); err != nil {
		return nil, err
	}
	content, err := pinata.New(a.cfg.Storage.PinataJWT,
		pinata.WithBaseURL(a.cfg.Storage.PinataBaseURL),
		pinata.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	rpc, err := ledger.Dial(ctx, a.cfg.Ledger.RPCURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { rpc.Close(); return nil })

	ledgerOpts := []ledger.Option{ledger.WithLogger(a.logger)}
	if a.cfg.Ledger.WaitReceipt {
		ledgerOpts = append(ledgerOpts, ledger.WithReceiptWait(a.cfg.Ledger.PollInterval))
	}
	if a.cfg.Ledger.GasLimit > 0 {
		ledgerOpts = append(ledgerOpts, ledger.WithGasLimit(a.cfg.Ledger.GasLimit))
	}
	chain, err := ledger.New(rpc, a.cfg.Ledger.ContractAddress, a.cfg.Ledger.PrivateKey, ledgerOpts...)
	if err != nil {
		return nil, err
	}
	a.logger.Info("anchoring reports on ledger", "contract", a.cfg.Ledger.ContractAddress, "from", chain.From().Hex())
	return pipeline.WithAnchor(content, chain), nil
}

func (a *app) proverBackend() (prover.Backend, error) {
	cfg := a.cfg.Prover
	if cfg.Backend == config.ProverRemote {
		if cfg.URL == "" {
			return nil, errors.New("PROVER_URL is required for the remote prover")
		}
		return remote.New(cfg.URL, cfg.Circuit, remote.WithLogger(a.logger))
	}

	depth := a.cfg.Pipeline.TreeDepth
	if cfg.ProvingKeyPath == "" || cfg.VerifyingKeyPath == "" {
		a.logger.Warn("no proving key configured; running a throwaway groth16 setup", "depth", depth)
		return groth16.Setup(depth, groth16.WithLogger(a.logger))
	}
	pk, err := os.Open(cfg.ProvingKeyPath)
	if err != nil {
		return nil, fmt.Errorf("open proving key: %w", err)
	}
	defer pk.Close()
	vk, err := os.Open(cfg.VerifyingKeyPath)
	if err != nil {
		return nil, fmt.Errorf("open verifying key: %w", err)
	}
	defer vk.Close()
	return groth16.Load(depth, pk, vk, groth16.WithLogger(a.logger))
}
