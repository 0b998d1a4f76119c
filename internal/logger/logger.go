package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// OutputFormat selects the slog handler.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Fields is a set of structured attributes attached to a log line.
type Fields map[string]interface{}

var (
	mu         sync.Mutex
	logger     *slog.Logger
	testOutput io.Writer
)

// SetTestOutput redirects all log output to w until UnsetTestOutput is called.
func SetTestOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	testOutput = w
}

// UnsetTestOutput restores stdout as the log destination.
func UnsetTestOutput() {
	mu.Lock()
	defer mu.Unlock()
	testOutput = nil
}

// ParseLevel maps a config level name to a slog level, falling back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger (re)configures the process-wide logger.
func InitLogger(level string, format OutputFormat) {
	mu.Lock()
	defer mu.Unlock()

	var out io.Writer = os.Stderr
	if testOutput != nil {
		out = testOutput
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	logger = slog.New(handler)
}

// GetLogger returns the configured logger, initializing an info-level text logger on first use.
func GetLogger() *slog.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l != nil {
		return l
	}
	InitLogger("info", FormatText)
	return GetLogger()
}

// With returns a child logger carrying fields on every line.
func With(fields Fields) *slog.Logger {
	return GetLogger().With(attrs(fields)...)
}

func Debug(msg string, fields ...Fields) { GetLogger().Debug(msg, attrs(fields...)...) }
func Info(msg string, fields ...Fields)  { GetLogger().Info(msg, attrs(fields...)...) }
func Warn(msg string, fields ...Fields)  { GetLogger().Warn(msg, attrs(fields...)...) }
func Error(msg string, fields ...Fields) { GetLogger().Error(msg, attrs(fields...)...) }

// Success logs at info level with status=success.
func Success(msg string, fields ...Fields) {
	GetLogger().Info(msg, append(attrs(fields...), "status", "success")...)
}

func Debugf(format string, args ...interface{}) { GetLogger().Debug(fmt.Sprintf(format, args...)) }
func Infof(format string, args ...interface{})  { GetLogger().Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...interface{})  { GetLogger().Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...interface{}) { GetLogger().Error(fmt.Sprintf(format, args...)) }

// attrs flattens field maps into slog key/value pairs, sorted by key so output is stable.
func attrs(fields ...Fields) []interface{} {
	var keys []string
	merged := Fields{}
	for _, f := range fields {
		for k, v := range f {
			if _, seen := merged[k]; !seen {
				keys = append(keys, k)
			}
			merged[k] = v
		}
	}
	sort.Strings(keys)

	out := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, k, merged[k])
	}
	return out
}
