// Package progress publishes sync controller phase/chunk events to NATS
// JetStream so external observers (dashboards, alerting) can watch
// backfill progress without polling the checkpoint store directly.
// Adapted from the teacher's event publisher: same connect/dedup/subject
// shape, repointed at this daemon's phase events instead of chain events.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const (
	streamName           = "ETL_PROGRESS"
	streamSubjectPattern = "ETL_PROGRESS.*"
	streamCreateTimeout  = 10 * time.Second
	duplicateWindow      = 20 * time.Minute
)

// Event is one phase/chunk milestone the sync controller emits.
type Event struct {
	Phase   string `json:"phase"`
	Event   string `json:"event"`
	MinTime int64  `json:"min_time,omitempty"`
	MaxTime int64  `json:"max_time,omitempty"`
}

// Publisher publishes Events to NATS JetStream with deduplication.
type Publisher struct {
	js     jetstream.JetStream
	nc     *nats.Conn
	logger zerolog.Logger
	prefix string
}

// NewPublisher connects to natsURL and creates/updates the progress
// stream. persistDuration bounds how long published events are retained.
func NewPublisher(natsURL string, persistDuration time.Duration, logger zerolog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("helium-arango-etl"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), streamCreateTimeout)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       streamName,
		Subjects:   []string{streamSubjectPattern},
		MaxAge:     persistDuration,
		Storage:    jetstream.FileStorage,
		Duplicates: duplicateWindow,
		Retention:  jetstream.LimitsPolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	logger.Info().
		Str("stream", streamName).
		Dur("max_age", persistDuration).
		Msg("progress publisher initialized")

	return &Publisher{js: js, nc: nc, logger: logger, prefix: "ETL_PROGRESS"}, nil
}

// Publish emits event on ETL_PROGRESS.{phase}, deduplicated by
// phase+event+window so a retried chunk doesn't double-publish.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	subject := fmt.Sprintf("%s.%s", p.prefix, event.Phase)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}

	msgID := fmt.Sprintf("%s-%s-%d-%d", event.Phase, event.Event, event.MinTime, event.MaxTime)

	_, err = p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID))
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Str("msg_id", msgID).Msg("failed to publish progress event")
		return fmt.Errorf("publish to nats: %w", err)
	}

	p.logger.Debug().Str("subject", subject).Str("event", event.Event).Msg("progress event published")
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info().Msg("progress publisher closed")
	}
}

// Healthy reports whether the NATS connection is up.
func (p *Publisher) Healthy() bool {
	return p.nc != nil && p.nc.IsConnected()
}
