package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomEventsChannel(t *testing.T) {
	req := require.New(t)

	ch := RoomEventsChannel("42")
	req.Equal("chat:room:42:events", ch)

	roomID, err := RoomIDFromChannel(ch)
	req.NoError(err)
	req.Equal("42", roomID)
}

func TestRoomIDFromChannel_Invalid(t *testing.T) {
	for _, ch := range []string{"", "chat:42:events", "chat:room::events", "chat:room:42:events:extra"} {
		_, err := RoomIDFromChannel(ch)
		require.Error(t, err, ch)
	}
}

func TestChannelToTopicAndKey(t *testing.T) {
	req := require.New(t)

	topic, key, err := channelToTopicAndKey(RoomEventsChannel("7"))
	req.NoError(err)
	req.Equal("chat-events", topic)
	req.Equal("7", key)

	topic, err = patternToTopic(PatternRoomEvents)
	req.NoError(err)
	req.Equal("chat-events", topic)
}

func TestNewPubSub_LocalHasNoBus(t *testing.T) {
	_, err := NewPubSub(DefaultConfig())
	require.Error(t, err)
}

func TestSanitizeGroupID(t *testing.T) {
	require.Equal(t, "chat-room---events", sanitizeGroupID("chat:room:*:events"))
}
