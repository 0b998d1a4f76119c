package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, format OutputFormat, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	InitLogger(level, format)
	fn()
	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:     "info log",
			level:    "info",
			logFn:    func() { Info("test info message") },
			contains: []string{"test info message", "level=INFO"},
		},
		{
			name:     "debug log with debug level",
			level:    "debug",
			logFn:    func() { Debug("test debug message") },
			contains: []string{"test debug message", "level=DEBUG"},
		},
		{
			name:     "debug log with info level",
			level:    "info",
			logFn:    func() { Debug("test debug message") },
			excludes: []string{"test debug message"},
		},
		{
			name:     "warn suppressed at error level",
			level:    "error",
			logFn:    func() { Warn("careful") },
			excludes: []string{"careful"},
		},
		{
			name:     "fields are rendered",
			level:    "info",
			logFn:    func() { Info("synced", Fields{"repo": 3, "mode": "diff"}) },
			contains: []string{"synced", "repo=3", "mode=diff"},
		},
		{
			name:     "success adds status",
			level:    "info",
			logFn:    func() { Success("done") },
			contains: []string{"done", "status=success"},
		},
		{
			name:     "formatted",
			level:    "info",
			logFn:    func() { Infof("applied %d packages", 7) },
			contains: []string{"applied 7 packages"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, tt.level, FormatText, tt.logFn)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	out := captureOutput(t, "info", FormatJSON, func() {
		With(Fields{"repo": 1}).Info("hello")
	})
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"repo":1`)
	assert.Contains(t, out, `"msg":"hello"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestFieldsSortedAndMerged(t *testing.T) {
	got := attrs(Fields{"b": 1, "a": 2}, Fields{"b": 3})
	assert.Equal(t, []interface{}{"a", 2, "b", 3}, got)
}
