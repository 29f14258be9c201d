// Package monitor drives the framing and rule engine from a stream of raw
// chunks: a single consumer drains the bounded hand-off queue, extracts
// frames, keeps a bounded history and publishes per-message reports.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"firestige.xyz/bytescope/internal/core"
	"firestige.xyz/bytescope/internal/metrics"
	"firestige.xyz/bytescope/internal/rules"
)

const (
	DefaultMaxMessages = 200
	DefaultQueueSize   = 1024
)

// Config contains monitor configuration.
type Config struct {
	Start          string // start delimiter, space separated hex
	End            string // end delimiter, space separated hex
	MaxMessages    int    // history capacity (0 = DefaultMaxMessages)
	MaxBufferBytes int    // accumulator ceiling (0 = unbounded)
	QueueSize      int    // chunk hand-off capacity (0 = DefaultQueueSize)
}

// Message is one framed record kept in history.
type Message struct {
	Seq      uint64
	Received time.Time
	Data     []byte
}

// Sink receives reports for newly framed messages.
type Sink interface {
	Name() string
	Publish(ctx context.Context, reports []Report) error
}

// Monitor owns the accumulator and message history.
type Monitor struct {
	rules  *rules.Store
	sinks  []Sink
	chunks chan []byte
	now    func() time.Time

	mu          sync.Mutex
	acc         *core.Accumulator
	start, end  string
	maxMessages int
	history     []Message
	nextSeq     uint64
	framesTotal uint64
	bytesTotal  uint64
}

// New creates a monitor. The delimiters must decode as hex.
func New(cfg Config, store *rules.Store, sinks ...Sink) (*Monitor, error) {
	if _, err := core.DecodeHex(cfg.Start); err != nil {
		return nil, fmt.Errorf("start delimiter: %w", err)
	}
	if _, err := core.DecodeHex(cfg.End); err != nil {
		return nil, fmt.Errorf("end delimiter: %w", err)
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if store == nil {
		store = rules.NewStore()
	}
	return &Monitor{
		rules:       store,
		sinks:       sinks,
		chunks:      make(chan []byte, cfg.QueueSize),
		now:         time.Now,
		acc:         core.NewAccumulator(cfg.MaxBufferBytes),
		start:       cfg.Start,
		end:         cfg.End,
		maxMessages: cfg.MaxMessages,
		nextSeq:     1,
	}, nil
}

// Rules returns the rule store evaluated against every message.
func (m *Monitor) Rules() *rules.Store {
	return m.rules
}

// Chunks is the producer side of the hand-off queue.
func (m *Monitor) Chunks() chan<- []byte {
	return m.chunks
}

// Feed enqueues a chunk, blocking while the queue is full.
func (m *Monitor) Feed(ctx context.Context, chunk []byte) error {
	select {
	case m.chunks <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the single consumer loop. Each wake-up drains every queued chunk,
// runs one extraction pass over the batch and publishes the new reports.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor starting", "start", m.start, "end", m.end, "max_messages", m.maxMessages)
	defer slog.Info("monitor stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk := <-m.chunks:
			batch := [][]byte{chunk}
		drain:
			for {
				select {
				case c := <-m.chunks:
					batch = append(batch, c)
				default:
					break drain
				}
			}
			reports := m.Ingest(batch...)
			m.publish(ctx, reports)
		}
	}
}

// Ingest appends chunks to the accumulator, extracts every complete frame
// and returns the reports of the frames it produced.
func (m *Monitor) Ingest(chunks ...[]byte) []Report {
	snap := m.rules.Snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		m.acc.Append(c)
		m.bytesTotal += uint64(len(c))
	}

	// Delimiters are operator-editable, decode them on every pass.
	start, errStart := core.DecodeHex(m.start)
	end, errEnd := core.DecodeHex(m.end)
	if err := errors.Join(errStart, errEnd); err != nil {
		slog.Error("delimiters do not decode, skipping extraction", "error", err)
		return nil
	}

	frames, dropped := m.acc.Extract(start, end)
	if dropped > 0 {
		metrics.BufferDroppedBytesTotal.Add(float64(dropped))
		slog.Warn("accumulator ceiling reached, dropped oldest bytes",
			"dropped", dropped, "buffered", m.acc.Len())
	}
	metrics.BufferBytes.Set(float64(m.acc.Len()))

	if len(frames) == 0 {
		return nil
	}

	reports := make([]Report, 0, len(frames))
	received := m.now()
	for _, f := range frames {
		msg := Message{Seq: m.nextSeq, Received: received, Data: f}
		m.nextSeq++
		m.framesTotal++
		m.history = append(m.history, msg)

		r := buildReport(msg, snap)
		reports = append(reports, r)

		metrics.FramesTotal.Inc()
		metrics.FrameBytes.Observe(float64(len(f)))
		label := r.Label
		if label == "" {
			label = metrics.NoLabel
		}
		metrics.LabelsTotal.WithLabelValues(label).Inc()
		for _, w := range r.Warnings {
			metrics.WarningsTotal.WithLabelValues(w.Severity.String()).Inc()
		}
		slog.Debug("frame extracted", "seq", msg.Seq, "len", len(f), "label", r.Label, "warnings", len(r.Warnings))
	}

	if overflow := len(m.history) - m.maxMessages; overflow > 0 {
		m.history = slices.Delete(m.history, 0, overflow)
	}
	metrics.MessagesRetained.Set(float64(len(m.history)))
	metrics.CriticalActive.Set(boolGauge(criticalActive(m.history, snap)))

	return reports
}

func (m *Monitor) publish(ctx context.Context, reports []Report) {
	if len(reports) == 0 {
		return
	}
	for _, s := range m.sinks {
		if err := s.Publish(ctx, reports); err != nil {
			metrics.SinkErrorsTotal.WithLabelValues(s.Name()).Inc()
			slog.Error("sink publish failed", "sink", s.Name(), "error", err)
		}
	}
}

// SetDelimiters replaces the framing delimiters. Both values must decode;
// on failure the current delimiters are kept.
func (m *Monitor) SetDelimiters(start, end string) error {
	if _, err := core.DecodeHex(start); err != nil {
		return fmt.Errorf("start delimiter: %w", err)
	}
	if _, err := core.DecodeHex(end); err != nil {
		return fmt.Errorf("end delimiter: %w", err)
	}
	m.mu.Lock()
	m.start, m.end = start, end
	m.mu.Unlock()
	slog.Info("framing delimiters changed", "start", start, "end", end)
	return nil
}

// Delimiters returns the current delimiter hex text.
func (m *Monitor) Delimiters() (start, end string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.start, m.end
}

// Messages returns a copy of the retained history, oldest first.
func (m *Monitor) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

// Clear drops the history and every unframed byte.
func (m *Monitor) Clear() {
	m.mu.Lock()
	m.history = nil
	m.acc.Reset()
	m.mu.Unlock()

	metrics.MessagesRetained.Set(0)
	metrics.BufferBytes.Set(0)
	metrics.CriticalActive.Set(0)
}

// Reports evaluates the current rules against the retained history. limit
// keeps only the newest messages; 0 returns all of them.
func (m *Monitor) Reports(limit int) []Report {
	msgs := m.Messages()
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	snap := m.rules.Snapshot()
	out := make([]Report, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, buildReport(msg, snap))
	}
	return out
}

// CriticalActive recomputes whether any retained message carries a
// critical warning under the current rules.
func (m *Monitor) CriticalActive() bool {
	active := criticalActive(m.Messages(), m.rules.Snapshot())
	metrics.CriticalActive.Set(boolGauge(active))
	return active
}

// Status summarises the monitor state.
type Status struct {
	Start          string             `json:"start"`
	End            string             `json:"end"`
	BufferedBytes  int                `json:"buffered_bytes"`
	DroppedBytes   uint64             `json:"dropped_bytes"`
	Retained       int                `json:"retained"`
	MaxMessages    int                `json:"max_messages"`
	FramesTotal    uint64             `json:"frames_total"`
	BytesTotal     uint64             `json:"bytes_total"`
	QueuedChunks   int                `json:"queued_chunks"`
	Rules          map[rules.Kind]int `json:"rules"`
	CriticalActive bool               `json:"critical_active"`
}

// Status returns a point-in-time summary.
func (m *Monitor) Status() Status {
	critical := m.CriticalActive()

	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Start:          m.start,
		End:            m.end,
		BufferedBytes:  m.acc.Len(),
		DroppedBytes:   m.acc.Dropped(),
		Retained:       len(m.history),
		MaxMessages:    m.maxMessages,
		FramesTotal:    m.framesTotal,
		BytesTotal:     m.bytesTotal,
		QueuedChunks:   len(m.chunks),
		Rules:          m.rules.Counts(),
		CriticalActive: critical,
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
