package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/dailyyoga/offlinekit/logger"
	"github.com/dailyyoga/offlinekit/routine"
	"github.com/smallnest/chanx"
	"go.uber.org/zap"
)

const createTableDDL = "CREATE TABLE IF NOT EXISTS `%s` (" +
	"at DateTime64(3), " +
	"operation_id String, " +
	"endpoint String, " +
	"method LowCardinality(String), " +
	"outcome LowCardinality(String), " +
	"retry_count UInt16, " +
	"error String, " +
	"device_id String" +
	") ENGINE = MergeTree ORDER BY (at, operation_id)"

// insertFunc writes one batch of events
type insertFunc func(ctx context.Context, events []Event) error

// ClickHouse is a Recorder that buffers events and writes them to ClickHouse
// in batches. Record never blocks on the network.
type ClickHouse struct {
	logger logger.Logger
	conn   driver.Conn
	table  string
	insert insertFunc

	flushSize     int
	flushInterval time.Duration

	dataChan *chanx.UnboundedChan[Event]
	runner   routine.Runner

	mu     sync.RWMutex
	closed bool
}

var _ Recorder = (*ClickHouse)(nil)

// NewClickHouse connects to ClickHouse, optionally creates the events table
// and starts the flush loop
func NewClickHouse(log logger.Logger, cfg *Config) (*ClickHouse, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.Named(log, "audit")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Hosts,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
		Debug:       cfg.Debug,
		Settings:    cfg.Settings,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, ErrConnection(err)
	}
	if cfg.CreateTable {
		if err := conn.Exec(ctx, fmt.Sprintf(createTableDDL, cfg.Table)); err != nil {
			conn.Close()
			return nil, ErrConnection(err)
		}
	}

	s := newSink(log, cfg, nil)
	s.conn = conn
	s.insert = s.batchInsert(cfg.DeviceID)
	s.start()

	log.Info("clickhouse audit sink initialized",
		zap.Strings("hosts", cfg.Hosts),
		zap.String("database", cfg.Database),
		zap.String("table", cfg.Table),
		zap.Duration("flush_interval", cfg.FlushInterval),
		zap.Int("flush_size", cfg.FlushSize),
	)
	return s, nil
}

// newSink builds a sink around insert without starting it
func newSink(log logger.Logger, cfg *Config, insert insertFunc) *ClickHouse {
	if log == nil {
		log = logger.Nop()
	}
	return &ClickHouse{
		logger:        log,
		table:         cfg.Table,
		insert:        insert,
		flushSize:     cfg.FlushSize,
		flushInterval: cfg.FlushInterval,
		dataChan:      chanx.NewUnboundedChan[Event](context.Background(), cfg.FlushSize),
		runner:        routine.New(log),
	}
}

func (s *ClickHouse) start() {
	s.runner.Go("audit-flush", s.processLoop)
}

// Record buffers e. Events recorded after Close are dropped.
func (s *ClickHouse) Record(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("event dropped, sink closed", zap.String("operation_id", e.OperationID))
		return
	}
	s.dataChan.In <- e
}

// Close stops accepting events, flushes everything buffered and closes the
// connection
func (s *ClickHouse) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.dataChan.In)
	s.mu.Unlock()

	s.runner.Wait()
	s.logger.Info("clickhouse audit sink shutdown complete")
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *ClickHouse) processLoop() {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	buffer := make([]Event, 0, s.flushSize)
	for {
		select {
		case e, ok := <-s.dataChan.Out:
			if !ok {
				// In was closed and everything queued has been delivered
				s.flush(buffer)
				return
			}
			buffer = append(buffer, e)
			if len(buffer) >= s.flushSize {
				s.flush(buffer)
				buffer = make([]Event, 0, s.flushSize)
			}
		case <-ticker.C:
			if len(buffer) > 0 {
				s.flush(buffer)
				buffer = make([]Event, 0, s.flushSize)
			}
		}
	}
}

func (s *ClickHouse) flush(events []Event) {
	if len(events) == 0 {
		return
	}
	if err := s.insert(context.Background(), events); err != nil {
		s.logger.Error("failed to flush audit events", zap.Int("events", len(events)), zap.Error(err))
		return
	}
	s.logger.Debug("audit events flushed", zap.Int("events", len(events)))
}

func (s *ClickHouse) batchInsert(deviceID string) insertFunc {
	return func(ctx context.Context, events []Event) error {
		batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO `%s`", s.table))
		if err != nil {
			return ErrInsert(s.table, err)
		}
		for _, e := range events {
			if err := batch.Append(
				e.At,
				e.OperationID,
				e.Endpoint,
				e.Method,
				string(e.Outcome),
				uint16(e.RetryCount),
				e.Error,
				deviceID,
			); err != nil {
				_ = batch.Abort()
				return ErrInsert(s.table, err)
			}
		}
		if err := batch.Send(); err != nil {
			return ErrInsert(s.table, err)
		}
		return nil
	}
}
