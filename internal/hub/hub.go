package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fitlink/chat-broker/internal/domain"
	"github.com/fitlink/chat-broker/pkg/log"
)

// Member is a live connection that can receive room broadcasts.
type Member interface {
	ID() string
	// Deliver enqueues one encoded frame without blocking.
	Deliver(data []byte) error
	Close()
}

// Registry maps rooms to their currently connected members.
type Registry interface {
	Join(roomID domain.ID, m Member)
	// Leave is a no-op when m is not joined to roomID.
	Leave(roomID domain.ID, m Member)
	// Broadcast encodes event once and attempts delivery to every member
	// joined at call time. Per-member failures are skipped and logged; only
	// encoding or transport errors are returned.
	Broadcast(ctx context.Context, roomID domain.ID, event domain.Event) error
	RoomSize(roomID domain.ID) int
	Close()
}

// Result counts the outcome of one broadcast.
type Result struct {
	Delivered int
	Dropped   int
}

// Hub is the in-process Registry.
type Hub struct {
	rooms map[domain.ID]map[string]Member // roomID -> memberID -> member
	mu    sync.RWMutex
}

func New() *Hub {
	return &Hub{rooms: make(map[domain.ID]map[string]Member)}
}

func (h *Hub) Join(roomID domain.ID, m Member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]Member)
		h.rooms[roomID] = members
	}
	members[m.ID()] = m

	l := log.L()
	l.Debug().Str(log.FieldClientID, m.ID()).Uint64(log.FieldRoomID, uint64(roomID)).Int("room_size", len(members)).Msg("member joined room")
}

func (h *Hub) Leave(roomID domain.ID, m Member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := members[m.ID()]; !ok {
		return
	}
	delete(members, m.ID())
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}

	l := log.L()
	l.Debug().Str(log.FieldClientID, m.ID()).Uint64(log.FieldRoomID, uint64(roomID)).Msg("member left room")
}

func (h *Hub) Broadcast(ctx context.Context, roomID domain.ID, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}
	h.BroadcastRaw(ctx, roomID, data)
	return nil
}

// BroadcastRaw delivers an already encoded frame to the room's members.
func (h *Hub) BroadcastRaw(ctx context.Context, roomID domain.ID, data []byte) Result {
	var res Result

	h.mu.RLock()
	defer h.mu.RUnlock()

	l := log.Ctx(ctx)
	for id, m := range h.rooms[roomID] {
		if err := m.Deliver(data); err != nil {
			res.Dropped++
			l.Warn().Err(err).Str(log.FieldClientID, id).Uint64(log.FieldRoomID, uint64(roomID)).Msg("skipping member during broadcast")
			continue
		}
		res.Delivered++
	}

	l.Debug().Uint64(log.FieldRoomID, uint64(roomID)).
		Int(log.FieldDelivered, res.Delivered).
		Int(log.FieldDropped, res.Dropped).
		Msg("broadcast")
	return res
}

func (h *Hub) RoomSize(roomID domain.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Close closes and forgets every member.
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[domain.ID]map[string]Member)
	h.mu.Unlock()

	for _, members := range rooms {
		for _, m := range members {
			m.Close()
		}
	}
}
