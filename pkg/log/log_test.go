package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	req := require.New(t)
	req.Equal(zerolog.DebugLevel, ParseLevel("DEBUG"))
	req.Equal(zerolog.WarnLevel, ParseLevel(" warning "))
	req.Equal(zerolog.Disabled, ParseLevel("off"))
	req.Equal(zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestNewWithWriterAddsServiceField(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	logger := NewWithWriter(Config{Level: "info", ServiceName: "chat-broker"}, &buf)
	logger.Info().Msg("hello")
	logger.Debug().Msg("filtered")

	var line map[string]any
	req.NoError(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	req.Equal("chat-broker", line[FieldService])
	req.Equal("hello", line["message"])
}

func TestEnrichKeepsParentFields(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer

	ctx := WithLogger(context.Background(), NewWithWriter(Config{}, &buf).With().Str(FieldRequestID, "r1").Logger())
	ctx = Enrich(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Uint64(FieldRoomID, 7)
	})

	l := Ctx(ctx)
	l.Info().Msg("joined")

	var line map[string]any
	req.NoError(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	req.Equal("r1", line[FieldRequestID])
	req.EqualValues(7, line[FieldRoomID])
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	l := Ctx(context.Background())
	require.Equal(t, L().GetLevel(), l.GetLevel())
}
