package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("info", "json", &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("bought shares", "symbol", "AAPL", "quantity", 1000)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "bought shares", entry["msg"])
	assert.Equal(t, "AAPL", entry["symbol"])
	assert.Equal(t, float64(1000), entry["quantity"])
}

func TestNew_TextDebug(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("DEBUG", "text", &buf)
	require.NoError(t, err)

	log.Debug("decision", "action", "HOLD")
	assert.Contains(t, buf.String(), "action=HOLD")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", "json", &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New("info", "xml", &bytes.Buffer{})
	assert.EqualError(t, err, `invalid log format "xml"`)
}
