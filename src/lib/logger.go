package lib

import (
	"eventhub/src/config"
	"io"
	"os"
	"path"

	"github.com/covalenthq/lumberjack"
	"github.com/sirupsen/logrus"
)

// NewLogger writes to stdout and, when LOG_DIR is set, to a rotated server log.
func NewLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.IsLocal() {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var out io.Writer = os.Stdout
	if cfg.LogDir != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   path.Join(cfg.LogDir, "server.log"),
			MaxSize:    500,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		})
	}
	logger.SetOutput(out)
	return logger
}

// NewNullLogger discards everything. Handy in tests.
func NewNullLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
