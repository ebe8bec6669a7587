// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/llehouerou/wavesd/internal/stderr"
)

// Options controls where and how much is logged.
type Options struct {
	File    string // rotating log file; empty disables file output
	Level   string // zerolog level name, defaults to "info"
	Console bool   // also write human-readable output to the real stderr
}

// Init installs the global logger. Extra writers (tests) are appended.
func Init(opts Options, writers ...io.Writer) error {
	var out []io.Writer

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return err
		}
		out = append(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    1,
			MaxBackups: 2,
		})
	}
	if opts.Console {
		out = append(out, zerolog.ConsoleWriter{Out: stderr.Original(), TimeFormat: time.TimeOnly})
	}
	out = append(out, writers...)
	if len(out) == 0 {
		out = append(out, io.Discard)
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = zerolog.New(io.MultiWriter(out...)).
		With().Timestamp().Caller().Logger()
	return nil
}
