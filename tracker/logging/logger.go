package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/wardenfield/robot-pulse/tracker/config"
)

// Logger is the structured logger handed through the pipeline. Using an entry rather than
// the bare logger lets the service field travel with it.
type Logger = *logrus.Entry

// Fields represents structured logging fields.
type Fields = logrus.Fields

// NewLogger creates a JSON-formatted logger with the level taken from LOG_LEVEL.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(config.GetLogLevel())
	return logger
}

// NewLoggerWithService creates a logger whose entries all carry a service field.
func NewLoggerWithService(serviceName string) Logger {
	return NewLogger().WithField("service", serviceName)
}
