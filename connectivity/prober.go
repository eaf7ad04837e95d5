package connectivity

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/dailyyoga/offlinekit/logger"
	"go.uber.org/zap"
)

// ProberConfig configures the health prober
type ProberConfig struct {
	// URL answering 2xx while the API is reachable (required)
	URL string `mapstructure:"url"`
	// Interval between probes
	// default: 15s
	Interval time.Duration `mapstructure:"interval"`
	// Timeout of a single probe
	// default: 5s
	Timeout time.Duration `mapstructure:"timeout"`
	// FailureThreshold consecutive failed probes before going offline
	// default: 2
	FailureThreshold int `mapstructure:"failure_threshold"`
}

// DefaultProberConfig returns the default configuration for the prober
func DefaultProberConfig() *ProberConfig {
	return &ProberConfig{
		Interval:         15 * time.Second,
		Timeout:          5 * time.Second,
		FailureThreshold: 2,
	}
}

// MergeDefaults fills zero fields with default values and returns c
func (c *ProberConfig) MergeDefaults() *ProberConfig {
	defaults := DefaultProberConfig()
	if c.Interval == 0 {
		c.Interval = defaults.Interval
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = defaults.FailureThreshold
	}
	return c
}

// Validate validates the configuration
func (c *ProberConfig) Validate() error {
	switch {
	case c.URL == "":
		return ErrInvalidConfig("url is required")
	case c.Interval <= 0:
		return ErrInvalidConfig("interval must be greater than 0")
	case c.Timeout <= 0:
		return ErrInvalidConfig("timeout must be greater than 0")
	case c.FailureThreshold < 1:
		return ErrInvalidConfig("failure_threshold must be >= 1")
	}
	return nil
}

// Prober polls a health endpoint and drives a Signal. A single success turns
// the signal online; FailureThreshold consecutive failures turn it offline.
type Prober struct {
	logger    logger.Logger
	signal    *Signal
	client    *http.Client
	url       string
	interval  time.Duration
	threshold int

	failures int
}

// NewProber creates a prober publishing to signal
func NewProber(log logger.Logger, cfg *ProberConfig, signal *Signal) (*Prober, error) {
	if cfg == nil {
		cfg = DefaultProberConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if signal == nil {
		return nil, ErrNilSignal
	}
	return &Prober{
		logger:    logger.Named(log, "connectivity"),
		signal:    signal,
		client:    &http.Client{Timeout: cfg.Timeout},
		url:       cfg.URL,
		interval:  cfg.Interval,
		threshold: cfg.FailureThreshold,
	}, nil
}

// Run probes immediately and then every interval until ctx is done
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.ProbeOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProbeOnce performs a single probe and updates the signal
func (p *Prober) ProbeOnce(ctx context.Context) {
	err := p.probe(ctx)
	if err == nil {
		p.failures = 0
		if p.signal.Set(true) {
			p.logger.Info("remote reachable, going online", zap.String("url", p.url))
		}
		return
	}

	p.failures++
	p.logger.Debug("health probe failed",
		zap.String("url", p.url),
		zap.Int("consecutive_failures", p.failures),
		zap.Error(err),
	)
	if p.failures >= p.threshold && p.signal.Set(false) {
		p.logger.Warn("remote unreachable, going offline",
			zap.String("url", p.url),
			zap.Int("consecutive_failures", p.failures),
			zap.Error(err),
		)
	}
}

func (p *Prober) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ErrUnhealthy(resp.StatusCode)
	}
	return nil
}
