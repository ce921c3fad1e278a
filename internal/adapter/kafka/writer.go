package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

// Message kinds carried in the "kind" header.
const (
	KindAnnual = "annual_stats"
	KindTrend  = "trend"
)

// Publish retry policy.
const (
	defaultAttempts   = 3
	defaultBackoff    = 500 * time.Millisecond
	defaultMaxBackoff = 5 * time.Second
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces run results to a Kafka topic.
// It implements pipeline.Sink.
type Publisher struct {
	writer     messageWriter
	logger     *slog.Logger
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

// NewPublisher creates a Kafka producer for the configured results topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaResultsTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, logger)
}

func newPublisher(w messageWriter, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer:     w,
		logger:     logger,
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// Name identifies the sink in logs and metrics.
func (p *Publisher) Name() string { return "kafka" }

// Save publishes the report as one batch: one message per annual row keyed
// by year, then one per trend keyed by variable. A failed batch is retried
// with exponential backoff until the attempts run out or ctx is cancelled.
func (p *Publisher) Save(ctx context.Context, report domain.Report) error {
	msgs, err := reportMessages(report)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	backoff := p.backoff
	for attempt := 1; ; attempt++ {
		err = p.writer.WriteMessages(ctx, msgs...)
		if err == nil {
			break
		}
		if attempt >= p.attempts {
			return fmt.Errorf("publish results after %d attempts: %w", attempt, err)
		}
		p.logger.Warn("publish failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("publish results: %w", ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}

	p.logger.Info("results published", "messages", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// AnnualRecord is the payload of an annual statistics message. Undefined
// values are omitted.
type AnnualRecord struct {
	Region      string             `json:"region"`
	Year        int                `json:"year"`
	Values      map[string]float64 `json:"values"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// TrendRecord is the payload of a trend message.
type TrendRecord struct {
	Region      string    `json:"region"`
	Variable    string    `json:"variable"`
	Slope       float64   `json:"slope"`
	Intercept   float64   `json:"intercept"`
	RSquared    float64   `json:"r_squared"`
	PValue      float64   `json:"p_value"`
	N           int       `json:"n"`
	Significant bool      `json:"significant"`
	Direction   string    `json:"direction"`
	GeneratedAt time.Time `json:"generated_at"`
}

func reportMessages(report domain.Report) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, report.Annual.Len()+len(report.Trends))
	for _, row := range report.Annual.Rows {
		rec := AnnualRecord{
			Region:      report.Region,
			Year:        row.Period.Year,
			Values:      make(map[string]float64, len(row.Values)),
			GeneratedAt: report.GeneratedAt,
		}
		for i, v := range row.Values {
			if !math.IsNaN(v) {
				rec.Values[report.Annual.Columns[i]] = v
			}
		}
		msg, err := serializeToMessage(strconv.Itoa(rec.Year), KindAnnual, rec, report.GeneratedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	for _, t := range report.Trends {
		rec := TrendRecord{
			Region:      report.Region,
			Variable:    t.Variable,
			Slope:       t.Slope,
			Intercept:   t.Intercept,
			RSquared:    t.RSquared,
			PValue:      t.PValue,
			N:           t.N,
			Significant: t.Significant,
			Direction:   t.Direction(),
			GeneratedAt: report.GeneratedAt,
		}
		msg, err := serializeToMessage(t.Variable, KindTrend, rec, report.GeneratedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// serializeToMessage marshals a result record into a Kafka message.
func serializeToMessage(key, kind string, payload any, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s %s: %w", kind, key, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
