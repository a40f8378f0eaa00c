package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForVerbosity(t *testing.T) {
	assert.Equal(t, LevelWarn, LevelForVerbosity(0))
	assert.Equal(t, LevelDebug, LevelForVerbosity(1))
	assert.Equal(t, LevelTrace, LevelForVerbosity(3))
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf, NoColor: true})

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	logger.WithField("hop", 1).Debug("connecting")
	assert.Contains(t, buf.String(), `msg=connecting`)
	assert.Contains(t, buf.String(), `hop=1`)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: "json", Output: &buf})

	logger.Debug("hidden")
	logger.WithField("status", 200).Info("complete")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "complete", entry["msg"])
	assert.Equal(t, float64(200), entry["status"])
}

func TestNew_BadLevelFallsBack(t *testing.T) {
	logger := New(Config{Level: "loud"})
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.False(t, logger.IsLevelEnabled(logrus.ErrorLevel))
}
