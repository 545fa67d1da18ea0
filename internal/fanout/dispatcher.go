// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package fanout

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/stancemap/stancemap/internal/logging"
	"github.com/stancemap/stancemap/internal/metrics"
)

// Subscriber receives decoded fan-out events. Deliver must not block; it
// reports whether the event was accepted so the dispatcher can account
// for drops by slow consumers.
type Subscriber interface {
	Deliver(ev Event) bool
}

// room is the live subscriber set for one topic plus the consumer
// draining that topic's bus subject. The consumer exists only while the
// room has members.
type room struct {
	members map[Subscriber]struct{}
	cancel  context.CancelFunc
}

// Dispatcher routes bus events to subscribers. Vote events reach only the
// subscribers of their topic; topic-created events reach every attached
// subscriber. Subscribing is idempotent and unsubscribing a topic that
// was never subscribed is a no-op.
type Dispatcher struct {
	bus *Bus

	mu     sync.Mutex
	rooms  map[uuid.UUID]*room
	global map[Subscriber]struct{}
	runCtx context.Context
}

// NewDispatcher creates a dispatcher on the given bus. Serve must be
// running before subscribers are attached.
func NewDispatcher(bus *Bus) *Dispatcher {
	return &Dispatcher{
		bus:    bus,
		rooms:  make(map[uuid.UUID]*room),
		global: make(map[Subscriber]struct{}),
	}
}

// Serve consumes the global topic-created subject until ctx is canceled.
// It satisfies the supervision tree's service contract.
func (d *Dispatcher) Serve(ctx context.Context) error {
	d.mu.Lock()
	d.runCtx = ctx
	d.mu.Unlock()

	msgs, err := d.bus.Subscribe(ctx, TopicCreatedSubject)
	if err != nil {
		return err
	}
	logging.Info().Msg("fanout dispatcher started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			d.handleTopicCreated(msg)
		}
	}
}

func (d *Dispatcher) handleTopicCreated(msg *message.Message) {
	defer msg.Ack()

	summary, err := DecodeTopicCreated(msg.Payload)
	if err != nil {
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable topic-created event")
		return
	}

	ev := Event{Type: EventTypeTopicCreated, Topic: summary}
	for _, sub := range d.globalSnapshot() {
		d.deliver(sub, ev)
	}
}

// Attach registers a subscriber for global topic-created events. Every
// connected client is attached for its whole connection lifetime.
func (d *Dispatcher) Attach(sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.global[sub] = struct{}{}
}

// Detach removes a subscriber from global delivery and from every topic
// room it joined.
func (d *Dispatcher) Detach(sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.global, sub)
	for topicID, r := range d.rooms {
		delete(r.members, sub)
		if len(r.members) == 0 {
			r.cancel()
			delete(d.rooms, topicID)
		}
	}
}

// Subscribe adds a subscriber to one topic's room, creating the room and
// its bus consumer on first member. Subscribing twice to the same topic
// changes nothing.
func (d *Dispatcher) Subscribe(topicID uuid.UUID, sub Subscriber) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[topicID]
	if ok {
		r.members[sub] = struct{}{}
		return nil
	}

	parent := d.runCtx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	msgs, err := d.bus.Subscribe(ctx, VoteSubject(topicID))
	if err != nil {
		cancel()
		return err
	}

	r = &room{
		members: map[Subscriber]struct{}{sub: {}},
		cancel:  cancel,
	}
	d.rooms[topicID] = r
	metrics.TopicSubscriptions.Inc()

	go d.consumeRoom(ctx, topicID, msgs)
	return nil
}

// Unsubscribe removes a subscriber from one topic's room. The room's bus
// consumer stops when the last member leaves. Unsubscribing from a topic
// the subscriber never joined is a no-op.
func (d *Dispatcher) Unsubscribe(topicID uuid.UUID, sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[topicID]
	if !ok {
		return
	}
	delete(r.members, sub)
	if len(r.members) == 0 {
		r.cancel()
		delete(d.rooms, topicID)
	}
}

func (d *Dispatcher) consumeRoom(ctx context.Context, topicID uuid.UUID, msgs <-chan *message.Message) {
	defer metrics.TopicSubscriptions.Dec()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			d.handleVote(topicID, msg)
		}
	}
}

func (d *Dispatcher) handleVote(topicID uuid.UUID, msg *message.Message) {
	defer msg.Ack()

	vote, err := DecodeVote(msg.Payload)
	if err != nil {
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable vote event")
		return
	}

	ev := Event{Type: EventTypeVote, Vote: vote}
	for _, sub := range d.roomSnapshot(topicID) {
		d.deliver(sub, ev)
	}
}

func (d *Dispatcher) deliver(sub Subscriber, ev Event) {
	if sub.Deliver(ev) {
		metrics.EventsDelivered.Inc()
	} else {
		metrics.EventsDropped.Inc()
	}
}

func (d *Dispatcher) roomSnapshot(topicID uuid.UUID) []Subscriber {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[topicID]
	if !ok {
		return nil
	}
	subs := make([]Subscriber, 0, len(r.members))
	for sub := range r.members {
		subs = append(subs, sub)
	}
	return subs
}

func (d *Dispatcher) globalSnapshot() []Subscriber {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := make([]Subscriber, 0, len(d.global))
	for sub := range d.global {
		subs = append(subs, sub)
	}
	return subs
}

// Subscribed reports whether the subscriber is currently in the topic's
// room. Used by connection handlers to answer idempotent subscribe acks.
func (d *Dispatcher) Subscribed(topicID uuid.UUID, sub Subscriber) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.rooms[topicID]
	if !ok {
		return false
	}
	_, ok = r.members[sub]
	return ok
}
