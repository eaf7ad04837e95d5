package main

import (
	"context"
	"fmt"

	"github.com/dailyyoga/offlinekit/audit"
	"github.com/dailyyoga/offlinekit/connectivity"
	"github.com/dailyyoga/offlinekit/cron"
	"github.com/dailyyoga/offlinekit/logger"
	"github.com/dailyyoga/offlinekit/offline"
	"github.com/dailyyoga/offlinekit/remote"
	"github.com/dailyyoga/offlinekit/routine"
	"github.com/dailyyoga/offlinekit/store"
	"go.uber.org/zap"
)

const statusSpec = "@every 1m"

// serve runs the daemon until ctx is done
func serve(ctx context.Context, cfg *Config) error {
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := store.Open(log, cfg.Store)
	if err != nil {
		return err
	}
	defer closeWithLog(log, "store", st.Close)

	sender, closeSender, err := newSender(log, cfg.Remote)
	if err != nil {
		return err
	}
	defer closeWithLog(log, "sender", closeSender)

	var recorder audit.Recorder = audit.Nop{}
	if cfg.Audit.Enabled {
		sink, err := audit.NewClickHouse(log, cfg.Audit.ClickHouse)
		if err != nil {
			return err
		}
		defer closeWithLog(log, "audit", sink.Close)
		recorder = sink
	}

	signal := connectivity.NewSignal(ctx, cfg.Connectivity.StartOnline)
	defer signal.Close()

	scheduler := cron.NewCron(log)
	scheduler.Start()
	defer scheduler.Close()

	m, err := offline.New(cfg.Offline, offline.Options{
		Logger:   log,
		Store:    st,
		Sender:   sender,
		Signal:   signal,
		Recorder: recorder,
		Cron:     scheduler,
	})
	if err != nil {
		return err
	}
	defer closeWithLog(log, "offline manager", m.Close)

	ctx, cancel := context.WithCancel(ctx)
	runner := routine.New(log)
	defer runner.Wait()
	defer cancel()

	if cfg.Connectivity.Prober.URL != "" {
		prober, err := connectivity.NewProber(log, cfg.Connectivity.Prober, signal)
		if err != nil {
			return err
		}
		runner.GoContext(ctx, "prober", prober.Run)
	} else {
		log.Warn("no health url configured, connectivity is fixed",
			zap.Bool("online", cfg.Connectivity.StartOnline),
		)
	}

	if err := m.Start(ctx); err != nil {
		return err
	}
	if err := scheduler.AddTask("report-status", statusSpec, cron.TaskFunc("report-status", func(context.Context) error {
		reportStatus(log, m)
		return nil
	})); err != nil {
		return err
	}

	log.Info("aulasync started",
		zap.String("store", cfg.Store.Driver),
		zap.String("transport", cfg.Remote.Transport),
		zap.Bool("audit", cfg.Audit.Enabled),
	)
	reportStatus(log, m)

	<-ctx.Done()
	log.Info("aulasync shutting down")
	return nil
}

func newSender(log logger.Logger, cfg RemoteConfig) (remote.Sender, func() error, error) {
	switch cfg.Transport {
	case transportHTTP:
		h, err := remote.NewHTTP(log, cfg.HTTP)
		if err != nil {
			return nil, nil, err
		}
		return h, func() error { return nil }, nil
	case transportKafka:
		k, err := remote.NewKafka(log, cfg.Kafka)
		if err != nil {
			return nil, nil, err
		}
		return k, k.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func reportStatus(log logger.Logger, m *offline.Manager) {
	log.Info("offline status",
		zap.Bool("offline", m.IsOffline()),
		zap.Int("pending_syncs", m.PendingSyncCount()),
	)
}

func closeWithLog(log logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Error("close failed", zap.String("component", what), zap.Error(err))
	}
}
