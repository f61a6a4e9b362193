package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var defaultLogger *logrus.Logger

func init() {
	defaultLogger = logrus.New()

	// Check if we're in test mode
	isTest := os.Getenv("GO_ENV") == "test"

	// Set log level from environment or default to info
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		if isTest {
			logLevel = "silent"
		} else {
			logLevel = "info"
		}
	}

	if logLevel == "silent" {
		defaultLogger.SetOutput(io.Discard)
	} else {
		level, err := logrus.ParseLevel(strings.ToLower(logLevel))
		if err != nil {
			level = logrus.InfoLevel
		}
		defaultLogger.SetLevel(level)
		defaultLogger.SetOutput(os.Stdout)
	}

	defaultLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// GetLogger returns the default logger instance
func GetLogger() *logrus.Logger {
	return defaultLogger
}

// WithName creates a child logger with a name field
func WithName(name string) *logrus.Entry {
	return defaultLogger.WithField("name", name)
}

// WithFields creates a logger with additional fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return defaultLogger.WithFields(fields)
}

// SetLevel sets the logging level
func SetLevel(level logrus.Level) {
	defaultLogger.SetLevel(level)
}

// IsLevelEnabled checks if a log level is enabled
func IsLevelEnabled(level logrus.Level) bool {
	return defaultLogger.IsLevelEnabled(level)
}

// FileOptions configures rotating log file output
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// Configure applies level and optional rotating file output.
// Test mode takes precedence and silences all output.
func Configure(levelStr string, file *FileOptions) error {
	if os.Getenv("GO_ENV") == "test" {
		defaultLogger.SetOutput(io.Discard)
		return nil
	}

	if levelStr == "silent" {
		defaultLogger.SetOutput(io.Discard)
		return nil
	}

	if levelStr != "" {
		level, err := logrus.ParseLevel(strings.ToLower(levelStr))
		if err != nil {
			return err
		}
		defaultLogger.SetLevel(level)
	}

	if file != nil && file.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
		}
		defaultLogger.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}

	return nil
}
