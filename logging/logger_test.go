package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/crytic/seedfuzz/logging/colors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAddAndRemoveWriter will test to Logger.AddWriter and Logger.RemoveWriter functions to ensure that they work as expected.
func TestAddAndRemoveWriter(t *testing.T) {
	logger := NewLogger(zerolog.InfoLevel)

	// Add three types of writers
	logger.AddWriter(os.Stdout, UNSTRUCTURED, true)
	logger.AddWriter(os.Stderr, UNSTRUCTURED, false)
	logger.AddWriter(os.Stdin, STRUCTURED, false)

	assert.Len(t, logger.core.unstructuredColorWriters, 1)
	assert.Len(t, logger.core.unstructuredWriters, 1)
	assert.Len(t, logger.core.structuredWriters, 1)

	// Duplicate writers are ignored
	logger.AddWriter(os.Stdout, UNSTRUCTURED, true)
	logger.AddWriter(os.Stderr, UNSTRUCTURED, false)
	logger.AddWriter(os.Stdin, STRUCTURED, false)

	assert.Len(t, logger.core.unstructuredColorWriters, 1)
	assert.Len(t, logger.core.unstructuredWriters, 1)
	assert.Len(t, logger.core.structuredWriters, 1)

	logger.RemoveWriter(os.Stdout, UNSTRUCTURED, true)
	logger.RemoveWriter(os.Stderr, UNSTRUCTURED, false)
	logger.RemoveWriter(os.Stdin, STRUCTURED, false)

	assert.Len(t, logger.core.unstructuredColorWriters, 0)
	assert.Len(t, logger.core.unstructuredWriters, 0)
	assert.Len(t, logger.core.structuredWriters, 0)
}

// TestSubLoggerSharesWriters ensures that a sub-logger created before a writer was added still logs to it, and that
// it carries its module field in structured output.
func TestSubLoggerSharesWriters(t *testing.T) {
	logger := NewLogger(zerolog.InfoLevel)
	subLogger := logger.NewSubLogger("module", CODEGEN_SERVICE)

	var buf bytes.Buffer
	logger.AddWriter(&buf, STRUCTURED, false)
	subLogger.Info("generated ", 3, " files", StructuredLogInfo{"package": "counter"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "generated 3 files", entry["message"])
	assert.Equal(t, CODEGEN_SERVICE, entry["module"])
	assert.Equal(t, map[string]any{"package": "counter"}, entry["info"])
}

// TestLevelFiltering ensures events below the logger's level are discarded and SetLevel applies to sub-loggers.
func TestLevelFiltering(t *testing.T) {
	logger := NewLogger(zerolog.WarnLevel)
	subLogger := logger.NewSubLogger("module", CLI_SERVICE)

	var buf bytes.Buffer
	logger.AddWriter(&buf, UNSTRUCTURED, false)

	subLogger.Info("hidden")
	assert.Empty(t, buf.String())

	subLogger.Error("visible", errors.New("boom"))
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	logger.SetLevel(zerolog.DebugLevel)
	assert.Equal(t, zerolog.DebugLevel, subLogger.Level())
	subLogger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

// TestPanicLogsThenPanics ensures Panic emits the event before panicking.
func TestPanicLogsThenPanics(t *testing.T) {
	logger := NewLogger(zerolog.InfoLevel)
	var buf bytes.Buffer
	logger.AddWriter(&buf, UNSTRUCTURED, false)

	assert.PanicsWithValue(t, "failed to initialize: bad flag", func() {
		logger.Panic("failed to initialize", errors.New("bad flag"))
	})
	assert.Contains(t, buf.String(), "failed to initialize")
}

// TestDisabledColors verifies the behavior of the unstructured colored logger when colors are disabled,
// ensuring that it does not output colors when the color feature is turned off.
func TestDisabledColors(t *testing.T) {
	logger := NewLogger(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger.AddWriter(&buf, UNSTRUCTURED, true)
	assert.Len(t, logger.core.unstructuredColorWriters, 1)

	colors.DisableColor()
	logger.Info(colors.Bold, "foo")

	_, _, ok := strings.Cut(buf.String(), colors.LEFT_ARROW+" foo")
	assert.True(t, ok)
	assert.NotContains(t, buf.String(), "\x1b[")
}
