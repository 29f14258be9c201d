package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"

	"firestige.xyz/bytescope/internal/monitor"
)

const (
	defaultBatchTimeout = 100 * time.Millisecond
	defaultMaxAttempts  = 3
)

// KafkaConfig configures the Kafka report sink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	Compression  string // none|gzip|snappy|lz4
	MaxAttempts  int
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every report as one JSON message keyed by its label.
type KafkaSink struct {
	cfg    KafkaConfig
	writer messageWriter

	published atomic.Uint64
	failed    atomic.Uint64
}

// NewKafkaSink builds a synchronous kafka-go writer for cfg.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink: brokers is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink: topic is required")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	wc := kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		MaxAttempts:  cfg.MaxAttempts,
	}
	switch cfg.Compression {
	case "none", "":
	case "gzip":
		wc.CompressionCodec = compress.Gzip.Codec()
	case "snappy":
		wc.CompressionCodec = compress.Snappy.Codec()
	case "lz4":
		wc.CompressionCodec = compress.Lz4.Codec()
	default:
		return nil, fmt.Errorf("kafka sink: invalid compression type: %s", cfg.Compression)
	}

	slog.Info("kafka sink configured", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return newKafkaSink(cfg, kafka.NewWriter(wc)), nil
}

func newKafkaSink(cfg KafkaConfig, w messageWriter) *KafkaSink {
	return &KafkaSink{cfg: cfg, writer: w}
}

func (s *KafkaSink) Name() string {
	return "kafka"
}

func (s *KafkaSink) Publish(ctx context.Context, reports []monitor.Report) error {
	msgs := make([]kafka.Message, 0, len(reports))
	for _, r := range reports {
		msg, err := reportMessage(r)
		if err != nil {
			s.failed.Add(1)
			return fmt.Errorf("serialize report %d: %w", r.Seq, err)
		}
		msgs = append(msgs, msg)
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		s.failed.Add(uint64(len(msgs)))
		return fmt.Errorf("kafka write failed: %w", err)
	}
	s.published.Add(uint64(len(msgs)))
	return nil
}

// Close flushes pending messages.
func (s *KafkaSink) Close() error {
	err := s.writer.Close()
	slog.Info("kafka sink stopped",
		"total_published", s.published.Load(),
		"total_failed", s.failed.Load(),
	)
	return err
}

func reportMessage(r monitor.Report) (kafka.Message, error) {
	value, err := json.Marshal(r)
	if err != nil {
		return kafka.Message{}, err
	}
	key := r.Label
	if key == "" {
		key = "unlabelled"
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  r.Received,
		Headers: []kafka.Header{
			{Key: "seq", Value: []byte(strconv.FormatUint(r.Seq, 10))},
			{Key: "critical", Value: []byte(strconv.FormatBool(r.Critical()))},
		},
	}, nil
}
