package logs

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger. When file is set, output is
// appended to it as well as stderr. The returned closer releases the file.
func Setup(level, format, file string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logrus.SetLevel(lvl)

	switch format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if file == "" {
		logrus.SetOutput(os.Stderr)
		return nopCloser{}, nil
	}

	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
