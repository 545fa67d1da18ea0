// StanceMap - Geotagged Stance Voting and Opinion Mapping
// Copyright 2026 StanceMap contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/stancemap/stancemap

package fanout

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is the in-process pub/sub transport. Subjects partition delivery:
// each topic's votes travel on their own subject, so subscribers of one
// topic never see another topic's events and never pay for them.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the in-process bus. buffer bounds each subscriber's
// output channel; a full channel blocks the bus goroutine for that
// subscriber, so downstream consumers must drain promptly or drop.
func NewBus(buffer int64) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: buffer,
		}, NewLoggerAdapter()),
	}
}

// Publisher exposes the raw publisher side for wrapping.
func (b *Bus) Publisher() message.Publisher {
	return b.pubsub
}

// Subscribe opens a consumer channel on one subject. The channel closes
// when ctx is canceled or the bus shuts down. Only events published after
// the subscription exists are delivered.
func (b *Bus) Subscribe(ctx context.Context, subject string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, subject)
}

// Close shuts the bus down, closing all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
