package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fitlink/chat-broker/internal/domain"
	"github.com/fitlink/chat-broker/internal/hub"
	"github.com/fitlink/chat-broker/pkg/log"
	"github.com/fitlink/chat-broker/pkg/pubsub"
)

// Relay is a Registry for multi-instance deployments. Membership stays in
// the local hub; broadcasts go through the bus and every instance, this one
// included, delivers them to its own members.
type Relay struct {
	local  *hub.Hub
	bus    pubsub.PubSub
	origin string

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

var _ hub.Registry = (*Relay)(nil)

// New creates a relay. origin identifies this instance on the bus.
func New(local *hub.Hub, bus pubsub.PubSub, origin string) *Relay {
	return &Relay{
		local:  local,
		bus:    bus,
		origin: origin,
		done:   make(chan struct{}),
	}
}

// Start subscribes to every room channel and begins delivering events.
func (r *Relay) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	events, err := r.bus.SubscribePattern(ctx, pubsub.PatternRoomEvents)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", pubsub.PatternRoomEvents, err)
	}
	r.cancel = cancel

	go r.consume(ctx, events)
	return nil
}

func (r *Relay) consume(ctx context.Context, events <-chan *pubsub.Event) {
	defer close(r.done)
	l := log.Ctx(ctx)

	for ev := range events {
		roomID, err := domain.ParseID(ev.RoomID)
		if err != nil {
			l.Warn().Err(err).Str(log.FieldEventType, ev.Type).Msg("dropping bus event with bad room id")
			continue
		}
		r.local.BroadcastRaw(ctx, roomID, ev.Payload)
	}
}

func (r *Relay) Join(roomID domain.ID, m hub.Member) {
	r.local.Join(roomID, m)
}

func (r *Relay) Leave(roomID domain.ID, m hub.Member) {
	r.local.Leave(roomID, m)
}

// Broadcast publishes the event on the room's channel.
func (r *Relay) Broadcast(ctx context.Context, roomID domain.ID, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	ev := pubsub.NewEvent(event.EventType(), roomID.String(), r.origin, data)
	if err := r.bus.Publish(ctx, pubsub.RoomEventsChannel(roomID.String()), ev); err != nil {
		return fmt.Errorf("publish %s event to room %d: %w", event.EventType(), roomID, err)
	}
	return nil
}

func (r *Relay) RoomSize(roomID domain.ID) int {
	return r.local.RoomSize(roomID)
}

// Close stops consuming and closes every local member. The bus itself is
// closed by its owner.
func (r *Relay) Close() {
	r.once.Do(func() {
		if r.cancel != nil {
			r.cancel()
			<-r.done
		}
		r.local.Close()
	})
}
