// internal/utils/logger.go
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	FATAL
)

// Logger is a leveled logger taking structured fields. It is backed by logrus
// and writes to stdout plus an optional log file.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	base   *logrus.Logger
	fields logrus.Fields
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		base := logrus.New()
		base.SetOutput(os.Stdout)
		base.SetLevel(logrus.InfoLevel)
		base.SetReportCaller(true)
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
		globalLogger = &Logger{base: base}
	})
	return globalLogger
}

// NewLogger builds a standalone logger writing to w. Used by tests and the CLI.
func NewLogger(w io.Writer, level LogLevel) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(toLogrusLevel(level))
	base.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})
	return &Logger{base: base}
}

// InitLogger adds logFile as a second destination of the global logger.
func InitLogger(logFile string) error {
	logger := GetLogger()

	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if logger.file != nil {
		logger.file.Close()
	}

	logger.file = file
	logger.base.SetOutput(io.MultiWriter(os.Stdout, file))
	return nil
}

// CloseLogger releases the log file, if any.
func CloseLogger() {
	logger := GetLogger()
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if logger.file != nil {
		logger.base.SetOutput(os.Stdout)
		logger.file.Close()
		logger.file = nil
	}
}

// ParseLogLevel maps a config string to a LogLevel, defaulting to INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// SetLogLevel sets the minimum level for logging
func (l *Logger) SetLogLevel(level LogLevel) {
	l.base.SetLevel(toLogrusLevel(level))
}

// WithFields returns a child logger that attaches fields to every entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{base: l.base, fields: merged}
}

func (l *Logger) entry(fields map[string]interface{}) *logrus.Entry {
	e := logrus.NewEntry(l.base)
	if len(l.fields) > 0 {
		e = e.WithFields(l.fields)
	}
	if len(fields) > 0 {
		e = e.WithFields(logrus.Fields(fields))
	}
	return e
}

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DEBUG:
		return logrus.DebugLevel
	case WARNING:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	case FATAL:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.entry(fields).Debug(message)
}

func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.entry(fields).Info(message)
}

func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.entry(fields).Warn(message)
}

func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.entry(fields).Error(message)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, fields map[string]interface{}) {
	l.entry(fields).Fatal(message)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.entry(nil).Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry(nil).Infof(format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry(nil).Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.entry(nil).Errorf(format, args...)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.entry(nil).Fatalf(format, args...)
}
