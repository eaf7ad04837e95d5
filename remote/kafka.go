package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/offlinekit/logger"
	"github.com/dailyyoga/offlinekit/routine"
	"go.uber.org/zap"
)

// producer is the subset of *kafka.Producer the sender relies on
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// envelope is the message value published for each mutation
type envelope struct {
	OperationID string          `json:"operation_id,omitempty"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Attachments []Attachment    `json:"attachments,omitempty"`
	SentAt      time.Time       `json:"sent_at"`
}

// Kafka publishes mutations to a topic and waits for the delivery report, so
// a mutation only leaves the pending queue once the broker acknowledged it
type Kafka struct {
	logger logger.Logger
	p      producer
	topic  string

	done   chan struct{}
	runner routine.Runner
	closed atomic.Bool
	once   sync.Once
}

// NewKafka creates a kafka sender
func NewKafka(log logger.Logger, cfg *KafkaConfig) (*Kafka, error) {
	if cfg == nil {
		cfg = DefaultKafkaConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.Named(log, "remote.kafka")

	if cfg.ValidateCluster {
		if err := validateKafkaCluster(log, cfg.Brokers); err != nil {
			return nil, err
		}
	}

	p, err := kafka.NewProducer(cfg.BuildConfigMap())
	if err != nil {
		return nil, ErrConnection(err)
	}

	log.Info("kafka sender initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return newKafkaWithProducer(log, p, cfg.Topic), nil
}

func newKafkaWithProducer(log logger.Logger, p producer, topic string) *Kafka {
	k := &Kafka{
		logger: logger.Named(log, "remote.kafka"),
		p:      p,
		topic:  topic,
		done:   make(chan struct{}),
		runner: routine.New(log),
	}
	k.runner.Go("kafka-events", k.handleEvents)
	return k
}

// handleEvents logs client-level errors. Per-message reports go to the
// delivery channel passed to Produce and never reach this loop.
func (k *Kafka) handleEvents() {
	for {
		select {
		case <-k.done:
			return
		case e, ok := <-k.p.Events():
			if !ok {
				return
			}
			switch ev := e.(type) {
			case kafka.Error:
				k.logger.Error("kafka producer error",
					zap.Int("code", int(ev.Code())),
					zap.String("error", ev.String()),
				)
			default:
				k.logger.Debug("kafka event", zap.String("type", fmt.Sprintf("%T", ev)))
			}
		}
	}
}

// Send publishes the mutation and blocks until the broker acknowledges it or
// ctx is done.
//
// Delivery is at least once. When ctx ends before the report arrives the
// message may still reach the topic, and the retry publishes it again.
// Consumers dedupe on the envelope's operation_id, also carried in the
// operation_id header.
func (k *Kafka) Send(ctx context.Context, req Request) error {
	if k.closed.Load() {
		return ErrSenderClosed
	}

	value, err := json.Marshal(envelope{
		OperationID: req.ID,
		Endpoint:    req.Endpoint,
		Method:      strings.ToUpper(req.Method),
		Payload:     req.Payload,
		Attachments: req.Attachments,
		SentAt:      time.Now().UTC(),
	})
	if err != nil {
		return ErrRequest(req.Method, req.Endpoint, err)
	}

	topic := k.topic
	deliveryChan := make(chan kafka.Event, 1)
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(req.Endpoint),
		Value:          value,
		Headers: []kafka.Header{
			{Key: "method", Value: []byte(strings.ToUpper(req.Method))},
			{Key: "endpoint", Value: []byte(req.Endpoint)},
		},
	}
	if req.ID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "operation_id", Value: []byte(req.ID)})
	}
	if err := k.p.Produce(msg, deliveryChan); err != nil {
		return ErrRequest(req.Method, req.Endpoint, err)
	}

	select {
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return ErrDelivery(topic, fmt.Errorf("unexpected event %T", e))
		}
		if m.TopicPartition.Error != nil {
			return ErrDelivery(topic, m.TopicPartition.Error)
		}
		k.logger.Debug("mutation published",
			zap.String("endpoint", req.Endpoint),
			zap.Int32("partition", m.TopicPartition.Partition),
			zap.Int64("offset", int64(m.TopicPartition.Offset)),
		)
		return nil
	case <-ctx.Done():
		return ErrDelivery(topic, ctx.Err())
	}
}

// Close flushes outstanding messages and closes the producer
func (k *Kafka) Close() error {
	k.once.Do(func() {
		k.closed.Store(true)
		close(k.done)
		k.runner.Wait()

		if remaining := k.p.Flush(10000); remaining > 0 {
			k.logger.Warn("kafka sender closed with undelivered messages", zap.Int("remaining", remaining))
		}
		k.p.Close()
	})
	return nil
}

// validateKafkaCluster fetches cluster metadata to verify the brokers are
// reachable
func validateKafkaCluster(log logger.Logger, brokers []string) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(brokers, ","),
		"request.timeout.ms": 10000,
	})
	if err != nil {
		return ErrConnection(err)
	}
	defer admin.Close()

	if _, err := admin.GetMetadata(nil, false, 10000); err != nil {
		return ErrConnection(err)
	}
	log.Info("kafka brokers validated", zap.Strings("brokers", brokers))
	return nil
}
