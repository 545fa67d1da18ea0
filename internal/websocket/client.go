// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stancemap/stancemap/internal/fanout"
	"github.com/stancemap/stancemap/internal/logging"
	"github.com/stancemap/stancemap/internal/spatial"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB, view requests are small
)

// ClientMessage is one inbound frame from the browser.
type ClientMessage struct {
	Action  string       `json:"action"`
	TopicID string       `json:"topic_id,omitempty"`
	View    *ViewRequest `json:"view,omitempty"`
}

// ViewRequest describes the client's current map viewport. Each request
// supersedes the previous one for the connection.
type ViewRequest struct {
	TopicID string         `json:"topic_id"`
	Zoom    int            `json:"zoom"`
	Bounds  spatial.Bounds `json:"bounds"`
}

// AggregateUpdate is the pushed answer to a view request.
type AggregateUpdate struct {
	TopicID    string                `json:"topic_id"`
	Zoom       int                   `json:"zoom"`
	Generation time.Time             `json:"generation"`
	Features   []spatial.GridFeature `json:"features"`
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan Message

	// recomputer keeps view aggregation at last-request-wins: a pan or
	// zoom cancels the in-flight computation for the stale viewport.
	recomputer *spatial.Recomputer
	closeOnce  sync.Once
}

// NewClient wraps an upgraded connection for the given authenticated user.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, sendBuffer int) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		userID:     userID,
		send:       make(chan Message, sendBuffer),
		recomputer: spatial.NewRecomputer(),
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Deliver queues a fan-out event for the client without blocking. A full
// send buffer drops the event; the client recovers the missed state from
// its next snapshot fetch.
func (c *Client) Deliver(ev fanout.Event) bool {
	msg := Message{Type: ev.Type}
	switch ev.Type {
	case fanout.EventTypeVote:
		msg.Data = ev.Vote
	case fanout.EventTypeTopicCreated:
		msg.Data = ev.Topic
	}

	return c.enqueue(msg)
}

func (c *Client) enqueue(msg Message) bool {
	defer func() {
		// Racing a concurrent shutdown can send on the closed channel;
		// treat that as a drop rather than a crash.
		_ = recover()
	}()
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// shutdown is invoked by the hub exactly once per client.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.recomputer.Stop()
		close(c.send)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			break
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The hub closed the channel
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Error().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("failed to write JSON message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg ClientMessage) {
	switch msg.Action {
	case MessageTypePing:
		c.enqueue(Message{Type: MessageTypePong})

	case "subscribe":
		topicID, err := uuid.Parse(msg.TopicID)
		if err != nil {
			c.sendError("invalid topic_id")
			return
		}
		if err := c.hub.dispatcher.Subscribe(topicID, c); err != nil {
			c.sendError("subscribe failed")
			return
		}
		c.enqueue(Message{Type: MessageTypeSubscribed, Data: topicID.String()})

	case "unsubscribe":
		topicID, err := uuid.Parse(msg.TopicID)
		if err != nil {
			c.sendError("invalid topic_id")
			return
		}
		c.hub.dispatcher.Unsubscribe(topicID, c)
		c.enqueue(Message{Type: MessageTypeUnsubscribed, Data: topicID.String()})

	case "view":
		if msg.View == nil {
			c.sendError("view payload required")
			return
		}
		c.handleView(*msg.View)

	default:
		c.sendError("unknown action")
	}
}

// handleView recomputes the viewport aggregation. The recomputer cancels
// any in-flight computation for a previous viewport and discards results
// the next view request already superseded.
func (c *Client) handleView(view ViewRequest) {
	topicID, err := uuid.Parse(view.TopicID)
	if err != nil {
		c.sendError("invalid topic_id")
		return
	}

	hub := c.hub
	c.recomputer.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		set, generation, err := hub.cache.Snapshot(ctx, topicID)
		if err != nil {
			return nil, err
		}
		cells, err := spatial.GridAggregate(ctx, set, spatial.GridOptions{
			Zoom:     view.Zoom,
			Bounds:   view.Bounds,
			MaxCells: hub.aggCfg.MaxGridCells,
		})
		if err != nil {
			return nil, err
		}
		return AggregateUpdate{
			TopicID:    topicID.String(),
			Zoom:       view.Zoom,
			Generation: generation,
			Features:   spatial.GridFeatures(cells, view.Zoom),
		}, nil
	}, func(result interface{}, err error) {
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logging.Warn().Err(err).Str("topic_id", view.TopicID).Msg("view aggregation failed")
			c.sendError("aggregation failed")
			return
		}
		c.enqueue(Message{Type: MessageTypeAggregate, Data: result})
	})
}

func (c *Client) sendError(msg string) {
	c.enqueue(Message{Type: MessageTypeError, Data: msg})
}
