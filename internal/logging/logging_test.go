package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/tordrt/levelschema/internal/shared"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
		hasError bool
	}{
		{"", logrus.InfoLevel, false},
		{"info", logrus.InfoLevel, false},
		{"DEBUG", logrus.DebugLevel, false},
		{" warn ", logrus.WarnLevel, false},
		{"warning", logrus.WarnLevel, false},
		{"error", logrus.ErrorLevel, false},
		{"trace", logrus.TraceLevel, false},
		{"verbose", logrus.InfoLevel, true},
	}

	for _, tc := range tests {
		lvl, err := ParseLevel(tc.input)
		if tc.hasError {
			assert.True(t, errors.Is(err, shared.ErrInvalidLogLevel), "input %q", tc.input)
		} else {
			assert.NoError(t, err, "input %q", tc.input)
		}
		assert.Equal(t, tc.expected, lvl, "input %q", tc.input)
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "debug", "json")
	log.WithField("dialect", "sqlite").Debug("opened")

	assert.Contains(t, buf.String(), `"dialect":"sqlite"`)
	assert.Contains(t, buf.String(), `"msg":"opened"`)
}

func TestNewLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "chatty", "text")
	log.Debug("hidden")
	log.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
