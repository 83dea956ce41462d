package log

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, level LogLevel) *bytes.Buffer {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	assert.NoError(t, SetLevel(level))
	t.Cleanup(func() {
		SetLevel(InfoLevel)
	})
	return buf
}

func TestShouldLog(t *testing.T) {
	assert.True(t, ShouldLog(ErrorLevel, InfoLevel))
	assert.True(t, ShouldLog(InfoLevel, InfoLevel))
	assert.False(t, ShouldLog(DebugLevel, InfoLevel))
	assert.False(t, ShouldLog(FatalLevel, DisabledLevel))
	assert.False(t, ShouldLog("bogus", InfoLevel))
}

func TestSetLevel(t *testing.T) {
	assert.Error(t, SetLevel("verbose"))
	assert.NoError(t, SetLevel(DebugLevel))
	assert.Equal(t, LogLevel(DebugLevel), GetLevel())
	assert.NoError(t, SetLevel(InfoLevel))
}

func TestComponentLogger(t *testing.T) {
	buf := capture(t, InfoLevel)
	logger := Component("workforce")

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Infof("worker %s added", "w1")
	assert.Contains(t, buf.String(), "-  info - [workforce] worker w1 added")

	buf.Reset()
	logger.Warn("careful")
	assert.Contains(t, buf.String(), "-  warn - [workforce] careful")
}

func TestSetVerbosity(t *testing.T) {
	buf := capture(t, InfoLevel)

	SetVerbosity(1)
	Debug("debug line")
	Trace("trace line")
	assert.Contains(t, buf.String(), "debug line")
	assert.NotContains(t, buf.String(), "trace line")

	SetVerbosity(2)
	Trace("trace line")
	assert.Contains(t, buf.String(), "trace line")
}

func TestLogWriter(t *testing.T) {
	buf := capture(t, InfoLevel)

	w := NewLogWriter(ErrorLevel)
	n, err := fmt.Fprint(w, "server failed")
	assert.NoError(t, err)
	assert.Equal(t, len("server failed"), n)
	assert.Contains(t, buf.String(), "- error - server failed")

	buf.Reset()
	fmt.Fprint(NewLogWriter(DisabledLevel), "nothing")
	assert.Empty(t, buf.String())
}

func TestDebugError(t *testing.T) {
	buf := capture(t, DebugLevel)

	inner := errors.New("inner")
	DebugError(fmt.Errorf("outer: %w", inner))

	assert.Contains(t, buf.String(), "outer: inner")
	assert.Contains(t, buf.String(), "| 1: inner")
}
