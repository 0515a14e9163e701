package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestConfigureJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	Configure(&buf, "debug", "json")
	log.Debug().Str("module", "test").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["message"])
	require.Equal(t, "test", entry["module"])
	require.Equal(t, "debug", entry["level"])
}

func TestConfigureUnknownLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	Configure(&buf, "chatty", "json")
	log.Debug().Msg("dropped")
	require.Zero(t, buf.Len())

	log.Info().Msg("kept")
	require.Contains(t, buf.String(), "kept")
}
