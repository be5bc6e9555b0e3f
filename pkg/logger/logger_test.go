package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWritersFansOut(t *testing.T) {
	var text, js bytes.Buffer
	InitWithWriters(&text, &js, slog.LevelInfo)

	Info("unlock granted", "job_id", "J1", "cost", 10)
	Debug("hidden")

	assert.Contains(t, text.String(), "unlock granted")
	assert.Contains(t, text.String(), "job_id=J1")
	assert.NotContains(t, text.String(), "hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &rec))
	assert.Equal(t, "unlock granted", rec["msg"])
	assert.Equal(t, "J1", rec["job_id"])
	assert.EqualValues(t, 10, rec["cost"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
