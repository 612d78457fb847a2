package pubsub

import (
	"fmt"
	"strings"
)

// Channel naming for room broadcasts: chat:room:{roomID}:events.
const (
	ChannelRoomEvents = "chat:room:%s:events"
	PatternRoomEvents = "chat:room:*:events"
)

// RoomEventsChannel returns the channel carrying broadcasts for roomID.
func RoomEventsChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomEvents, roomID)
}

// parseChannel splits {prefix}:room:{roomID}:{suffix}.
func parseChannel(channel string) (prefix, roomID, suffix string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[1] != "room" || parts[2] == "" {
		return "", "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	return parts[0], parts[2], parts[3], nil
}

// RoomIDFromChannel extracts the room id from a room channel name.
func RoomIDFromChannel(channel string) (string, error) {
	_, roomID, _, err := parseChannel(channel)
	return roomID, err
}
