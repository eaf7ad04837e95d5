package remote

import (
	"net/url"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// HTTPConfig configures the REST sender
type HTTPConfig struct {
	// BaseURL is prefixed to every endpoint
	// default: "http://localhost:3001/api"
	BaseURL string `mapstructure:"base_url"`
	// Token is sent as a bearer token when set
	Token string `mapstructure:"token"`
	// Timeout bounds each request
	// default: 30s
	Timeout time.Duration `mapstructure:"timeout"`
	// UserAgent header value
	// default: "aulasync/1.0"
	UserAgent string `mapstructure:"user_agent"`
}

// DefaultHTTPConfig returns the default configuration for the REST sender
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		BaseURL:   "http://localhost:3001/api",
		Timeout:   30 * time.Second,
		UserAgent: "aulasync/1.0",
	}
}

// MergeDefaults fills zero fields with default values and returns c
func (c *HTTPConfig) MergeDefaults() *HTTPConfig {
	defaults := DefaultHTTPConfig()
	if c.BaseURL == "" {
		c.BaseURL = defaults.BaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaults.UserAgent
	}
	return c
}

// Validate validates the configuration
func (c *HTTPConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidConfig("base_url must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidConfig("base_url scheme must be http or https")
	}
	if c.Timeout <= 0 {
		return ErrInvalidConfig("timeout must be greater than 0")
	}
	return nil
}

// KafkaConfig configures the kafka sender
type KafkaConfig struct {
	// kafka cluster brokers
	Brokers []string `mapstructure:"brokers"`
	// Topic every mutation is published to
	Topic string `mapstructure:"topic"`
	// ClientID identifies this device in broker logs
	ClientID string `mapstructure:"client_id"`
	// Acks required before a delivery report is positive.
	// "all" is the only setting under which a positive report means the
	// mutation is durable, which is what dropping it from the queue assumes.
	// default: "all"
	Acks string `mapstructure:"acks"`
	// Compression codec: none, gzip, snappy, lz4, zstd
	// default: "none"
	Compression string `mapstructure:"compression"`
	// MessageTimeout bounds local delivery retries
	// default: 30s
	MessageTimeout time.Duration `mapstructure:"message_timeout"`
	// Security protocol, only PLAINTEXT is supported for now
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol"`
	// ValidateCluster checks broker metadata at construction
	// default: false
	ValidateCluster bool `mapstructure:"validate_cluster"`
}

// DefaultKafkaConfig returns the default configuration for the kafka sender
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Acks:             "all",
		Compression:      "none",
		MessageTimeout:   30 * time.Second,
		SecurityProtocol: "PLAINTEXT",
	}
}

// MergeDefaults fills zero fields with default values and returns c
func (c *KafkaConfig) MergeDefaults() *KafkaConfig {
	defaults := DefaultKafkaConfig()
	if c.Acks == "" {
		c.Acks = defaults.Acks
	}
	if c.Compression == "" {
		c.Compression = defaults.Compression
	}
	if c.MessageTimeout == 0 {
		c.MessageTimeout = defaults.MessageTimeout
	}
	if c.SecurityProtocol == "" {
		c.SecurityProtocol = defaults.SecurityProtocol
	}
	return c
}

// Validate validates the configuration
func (c *KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrInvalidConfig("brokers are required")
	}
	if c.Topic == "" {
		return ErrInvalidConfig("topic is required")
	}
	if c.MessageTimeout <= 0 {
		return ErrInvalidConfig("message_timeout must be greater than 0")
	}
	return nil
}

// BuildConfigMap converts the configuration to a librdkafka config map
func (c *KafkaConfig) BuildConfigMap() *kafka.ConfigMap {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(c.Brokers, ","),
		"compression.type":   strings.ToLower(c.Compression),
		"acks":               strings.ToLower(c.Acks),
		"message.timeout.ms": int(c.MessageTimeout.Milliseconds()),
		"security.protocol":  c.SecurityProtocol,
	}
	if c.ClientID != "" {
		_ = configMap.SetKey("client.id", c.ClientID)
	}
	return configMap
}
