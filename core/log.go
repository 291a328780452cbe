// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	log "github.com/sirupsen/logrus"
)

// DefaultLogFile is where logs go when not in debug mode.
const DefaultLogFile = "koru.log"

// LogConfiguration selects the log sink and level.
type LogConfiguration struct {
	// Debug logs to stdout at debug level,
	// otherwise logs go to File at warn level.
	Debug bool

	// Level overrides the level picked by Debug.
	Level string

	File string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLog configures the standard logger. The returned closer
// releases the log file, if one was opened.
func SetupLog(cfg LogConfiguration) (io.Closer, error) {
	return setupLogger(log.StandardLogger(), cfg)
}

func setupLogger(logger *log.Logger, cfg LogConfiguration) (io.Closer, error) {
	level := log.WarnLevel
	if cfg.Debug {
		level = log.DebugLevel
	}
	if cfg.Level != "" {
		l, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	logger.SetLevel(level)

	if cfg.Debug {
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return nopCloser{}, nil
	}

	file := cfg.File
	if file == "" {
		file = DefaultLogFile
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.SetOutput(ioutil.Discard)
		return nil, fmt.Errorf("open log file %q: %w", file, err)
	}
	logger.SetOutput(f)
	logger.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	return f, nil
}
