// Package events broadcasts capsule index and progress changes inside the
// process. Publishers are the store decorator returned by Observe; the
// library watcher and the web UI's event stream subscribe.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/hpungsan/pocket/internal/logging"
)

// Topic carries every Change.
const Topic = "pocket.changes"

// Kind says which record changed.
type Kind string

const (
	KindIndex    Kind = "index"
	KindProgress Kind = "progress"
)

// Change is one notification.
type Change struct {
	Kind Kind `json:"kind"`
	// ID is the capsule whose progress changed; empty for index changes
	ID string `json:"id,omitempty"`
}

// Bus is an in-memory pub/sub for Changes.
type Bus struct {
	pubSub *gochannel.GoChannel
	log    *logging.Logger
}

// NewBus creates a Bus. A nil log discards watermill's own logging.
func NewBus(log *logging.Logger) *Bus {
	if log == nil {
		log = logging.Nop()
	}
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		NewWatermillLogger(log),
	)
	return &Bus{pubSub: pubSub, log: log}
}

// Publish broadcasts changes to every current subscriber.
func (b *Bus) Publish(changes ...Change) error {
	msgs := make([]*message.Message, 0, len(changes))
	for _, c := range changes {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode change: %w", err)
		}
		msgs = append(msgs, message.NewMessage(watermill.NewUUID(), payload))
	}
	if len(msgs) == 0 {
		return nil
	}
	return b.pubSub.Publish(Topic, msgs...)
}

// Subscribe returns a channel of Changes published after the call. The
// channel is closed when ctx is done or the Bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Change, error) {
	messages, err := b.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}

	out := make(chan Change, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var c Change
			if err := json.Unmarshal(msg.Payload, &c); err != nil {
				b.log.Warn("dropping undecodable change", "uuid", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- c:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// Close stops the Bus and closes every subscription.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
