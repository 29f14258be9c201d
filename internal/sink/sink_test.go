package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/bytescope/internal/core"
	"firestige.xyz/bytescope/internal/monitor"
)

func sampleReports() []monitor.Report {
	return []monitor.Report{
		{Seq: 1, Title: "Message 1", Length: 2, Hex: "AA55", Received: time.Unix(1700000000, 0)},
		{
			Seq: 2, Title: "PING", Label: "PING", Length: 3, Hex: "AA5501",
			Warnings: []core.Warning{{Rule: "marker", Severity: core.SeverityCritical, Message: "marker: expected 0xEE at [2..2], got 0x01"}},
		},
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := NewLogSink(logger)
	require.NoError(t, s.Publish(context.Background(), sampleReports()))

	out := buf.String()
	assert.Contains(t, out, "seq=1")
	assert.Contains(t, out, "title=PING")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "CRITICAL: marker")
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSinkPublish(t *testing.T) {
	w := &fakeWriter{}
	s := newKafkaSink(KafkaConfig{Topic: "frames"}, w)

	require.NoError(t, s.Publish(context.Background(), sampleReports()))
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "unlabelled", string(w.msgs[0].Key))
	assert.Equal(t, "PING", string(w.msgs[1].Key))
	assert.Contains(t, w.msgs[1].Headers, kafka.Header{Key: "critical", Value: []byte("true")})

	var decoded monitor.Report
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &decoded))
	assert.Equal(t, uint64(2), decoded.Seq)
	require.Len(t, decoded.Warnings, 1)
	assert.Equal(t, core.SeverityCritical, decoded.Warnings[0].Severity)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
	assert.Equal(t, uint64(2), s.published.Load())
}

func TestKafkaSinkWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	s := newKafkaSink(KafkaConfig{Topic: "frames"}, w)

	err := s.Publish(context.Background(), sampleReports())
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, uint64(2), s.failed.Load())
}

func TestNewKafkaSinkValidation(t *testing.T) {
	_, err := NewKafkaSink(KafkaConfig{Topic: "frames"})
	assert.Error(t, err)

	_, err = NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	_, err = NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", Compression: "zip"})
	assert.Error(t, err)

	s, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", Compression: "snappy"})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
