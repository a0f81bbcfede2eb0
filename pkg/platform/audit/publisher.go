package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Metrics tracks the publisher's queue.
type Metrics struct {
	Emitted       prometheus.Counter
	Dropped       prometheus.Counter
	SinkFailures  prometheus.Counter
	FlushDuration prometheus.Histogram
}

// NewMetrics registers the audit publisher metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchdesk_audit_events_emitted_total",
			Help: "Audit events accepted by the publisher",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchdesk_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full",
		}),
		SinkFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchdesk_audit_sink_failures_total",
			Help: "Audit events the sink failed to persist",
		}),
		FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchdesk_audit_flush_duration_seconds",
			Help:    "Duration of one buffer flush to the sink",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) incEmitted() {
	if m != nil {
		m.Emitted.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) incSinkFailures() {
	if m != nil {
		m.SinkFailures.Inc()
	}
}

func (m *Metrics) observeFlush(start time.Time) {
	if m != nil {
		m.FlushDuration.Observe(time.Since(start).Seconds())
	}
}

// Publisher accepts events without blocking the caller and hands them to a
// Store from a background loop. Events emitted while the sink is down stay
// buffered until the buffer wraps.
type Publisher struct {
	sink      Store
	buffer    *RingBuffer
	notify    chan struct{}
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBufferSize sets the number of events held before the oldest is dropped.
func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(n)
	}
}

// WithFlushInterval sets how often the buffer is drained when idle.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

// NewPublisher creates a publisher writing to sink. Call Run to start it.
func NewPublisher(sink Store, opts ...Option) *Publisher {
	p := &Publisher{
		sink:      sink,
		notify:    make(chan struct{}, 1),
		batchSize: defaultBatchSize,
		interval:  defaultFlushInterval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer == nil {
		p.buffer = NewRingBuffer(0)
	}
	return p
}

// Emit queues an event. It never blocks on the sink.
func (p *Publisher) Emit(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if p.buffer.Enqueue(event) {
		p.metrics.incDropped()
	}
	p.metrics.incEmitted()
	if p.buffer.Len() >= p.batchSize {
		select {
		case p.notify <- struct{}{}:
		default:
		}
	}
}

// Run drains the buffer until ctx is cancelled, then flushes what is left.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			p.Flush(drainCtx)
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		case <-p.notify:
			p.Flush(ctx)
		}
	}
}

// Flush writes every buffered event to the sink. Failed events are logged
// and counted, not retried.
func (p *Publisher) Flush(ctx context.Context) {
	start := time.Now()
	defer p.metrics.observeFlush(start)
	for {
		batch := p.buffer.DequeueBatch(p.batchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			if err := p.sink.Append(ctx, event); err != nil {
				p.metrics.incSinkFailures()
				p.logger.ErrorContext(ctx, "audit sink append failed",
					"action", event.Action,
					"entity_id", event.EntityID,
					"request_id", event.RequestID,
					"error", err,
				)
			}
		}
	}
}

// Pending is the number of events waiting for the sink.
func (p *Publisher) Pending() int {
	return p.buffer.Len()
}
