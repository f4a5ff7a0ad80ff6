package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"packetflow/internal/config"
	"packetflow/internal/internet"
	"packetflow/internal/loader"
	"packetflow/internal/repository/sqlite"
	"packetflow/internal/service"
	"packetflow/internal/sim"
)

// app holds the wired services for one serve or run invocation
type app struct {
	bus        *service.EventBus
	runner     *service.Runner
	packetFlow *service.PacketFlowService
	congestion *service.CongestionService
	internet   *service.InternetService
	repo       *sqlite.Repository
}

// newApp loads the topology, opens the delivery log when enabled and
// registers the sketches with a runner
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	topo, err := loader.LoadTopology(cfg.Topology.Path)
	if err != nil {
		return nil, err
	}

	a := &app{bus: service.NewEventBus()}

	if cfg.Recorder.Enabled {
		a.repo, err = sqlite.New(cfg.Recorder.Path,
			sqlite.WithBatchSize(cfg.Recorder.BatchSize),
			sqlite.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Info("delivery log opened", zap.String("path", cfg.Recorder.Path))
	}

	var opts []sim.Option
	if cfg.Simulation.RandomSeed != nil {
		opts = append(opts, sim.WithSeed(*cfg.Simulation.RandomSeed))
	}

	// A nil *sqlite.Repository must not reach the service as a non-nil
	// interface.
	if a.repo != nil {
		a.packetFlow, err = service.NewPacketFlowService(topo, cfg.SimConfig(), a.repo, a.bus, logger, opts...)
	} else {
		a.packetFlow, err = service.NewPacketFlowService(topo, cfg.SimConfig(), nil, a.bus, logger, opts...)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	a.runner = service.NewRunner(cfg.FrameInterval(), a.bus, logger)
	if err := a.runner.Register(a.packetFlow); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Congestion.Enabled {
		a.congestion, err = service.NewCongestionService(cfg.CongestionConfig(), a.bus, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := a.runner.Register(a.congestion); err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.Internet.Enabled {
		var netOpts []internet.Option
		if cfg.Simulation.RandomSeed != nil {
			netOpts = append(netOpts, internet.WithSeed(*cfg.Simulation.RandomSeed))
		}
		a.internet, err = service.NewInternetService(cfg.InternetConfig(), a.bus, logger, netOpts...)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := a.runner.Register(a.internet); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// Flush writes buffered deliveries
func (a *app) Flush(ctx context.Context) error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Flush(ctx)
}

// Close flushes and closes the delivery log
func (a *app) Close() error {
	if a.repo == nil {
		return nil
	}
	if err := a.repo.Close(); err != nil {
		return fmt.Errorf("close delivery log: %w", err)
	}
	return nil
}
