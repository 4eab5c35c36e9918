package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONFieldsAndCaller(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: "debug", Format: "json", Output: &buf})

	Error("cart write failed", errors.New("boom"), map[string]interface{}{
		"visitor_id": "v-1",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "cart write failed", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "v-1", entry["visitor_id"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: "warn", Format: "json", Output: &buf})

	Info("hidden")
	assert.Empty(t, buf.String())

	WithContext(map[string]interface{}{"request_id": "r1"}).Warn("shown")
	assert.Contains(t, buf.String(), "r1")

	Initialize(Config{Level: "debug", Format: "json", Output: &bytes.Buffer{}})
}
