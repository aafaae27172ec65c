package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	mu     sync.Mutex
)

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text, simple, or compact
	Output string `yaml:"output"` // stdout (default) or stderr
}

// CompactFormatter renders "[LEVEL][component][device] message (k=v, ...)".
type CompactFormatter struct {
	ShowTime bool
}

// Format renders a single log entry
func (f *CompactFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	if f.ShowTime {
		fmt.Fprintf(b, "[%s]", entry.Time.Format("15:04:05"))
	}
	fmt.Fprintf(b, "[%s]", strings.ToUpper(entry.Level.String()))

	if component, ok := entry.Data["component"]; ok {
		fmt.Fprintf(b, "[%v]", component)
	}
	if device, ok := entry.Data["device"]; ok {
		fmt.Fprintf(b, "[%v]", device)
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "component" && k != "device" {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		b.WriteString(" (")
		for i, key := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s=%v", key, entry.Data[key])
		}
		b.WriteString(")")
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// InitLogger initializes the global logger with the provided configuration
func InitLogger(config LogConfig) {
	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
		l.Warnf("Invalid log level '%s', defaulting to 'info'", config.Level)
	}
	l.SetLevel(level)

	switch strings.ToLower(config.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "simple":
		l.SetFormatter(&CompactFormatter{ShowTime: false})
	case "compact":
		l.SetFormatter(&CompactFormatter{ShowTime: true})
	case "text", "":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		l.Warnf("Invalid log format '%s', defaulting to 'text'", config.Format)
	}

	l.SetOutput(outputFor(config.Output))

	mu.Lock()
	logger = l
	mu.Unlock()

	l.Debugf("Logger initialized with level: %s, format: %s", level.String(), config.Format)
}

// SetOutput redirects the global logger, mainly for tests and one-shot CLI commands.
func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}

func outputFor(name string) io.Writer {
	if strings.ToLower(name) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// GetLogger returns the global logger instance
func GetLogger() *logrus.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		InitLogger(LogConfig{
			Level:  "info",
			Format: "text",
		})
		mu.Lock()
		l = logger
		mu.Unlock()
	}
	return l
}

// Helper functions for common logging patterns
func WithComponent(component string) *logrus.Entry {
	return GetLogger().WithField("component", component)
}

func WithDevice(device string) *logrus.Entry {
	return GetLogger().WithField("device", device)
}

func WithComponentAndDevice(component, device string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"component": component,
		"device":    device,
	})
}

func WithError(err error) *logrus.Entry {
	return GetLogger().WithError(err)
}
