// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package fanout

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker/v2"

	"github.com/stancemap/stancemap/internal/logging"
	"github.com/stancemap/stancemap/internal/metrics"
	"github.com/stancemap/stancemap/internal/models"
)

// Publisher pushes domain events onto the bus behind a circuit breaker.
// Publishing is best-effort by contract: a vote that reached the ledger
// stays valid even if its fan-out fails, because clients reconcile from
// snapshots. The breaker keeps a wedged bus from stalling the write path.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[any]
}

// NewPublisher wraps the bus publisher with a circuit breaker.
func NewPublisher(pub message.Publisher) *Publisher {
	settings := gobreaker.Settings{
		Name:        "fanout-publisher",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("publisher circuit breaker state change")
		},
	}
	return &Publisher{
		publisher: pub,
		breaker:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

// PublishVote fans a new ledger entry out to the vote's topic subject.
func (p *Publisher) PublishVote(ev *models.VoteEvent) error {
	data, err := EncodeVote(ev)
	if err != nil {
		return err
	}

	msg := message.NewMessage(ev.ID.String(), data)
	msg.Metadata.Set("event_type", EventTypeVote)
	msg.Metadata.Set("topic_id", ev.TopicID.String())

	if err := p.publish(VoteSubject(ev.TopicID), msg); err != nil {
		return fmt.Errorf("publish vote %s: %w", ev.ID, err)
	}
	metrics.EventsPublished.WithLabelValues(EventTypeVote).Inc()
	return nil
}

// PublishTopicCreated announces a new topic on the global subject.
func (p *Publisher) PublishTopicCreated(summary *models.TopicSummary) error {
	data, err := EncodeTopicCreated(summary)
	if err != nil {
		return err
	}

	msg := message.NewMessage(summary.ID.String(), data)
	msg.Metadata.Set("event_type", EventTypeTopicCreated)

	if err := p.publish(TopicCreatedSubject, msg); err != nil {
		return fmt.Errorf("publish topic created %s: %w", summary.ID, err)
	}
	metrics.EventsPublished.WithLabelValues(EventTypeTopicCreated).Inc()
	return nil
}

func (p *Publisher) publish(subject string, msg *message.Message) error {
	_, err := p.breaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(subject, msg)
	})
	return err
}
