// Package logging builds the per-component loggers used across the
// core. Components receive a *log.Logger through their constructors;
// nothing reaches for a package-level singleton.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Writer returns the shared log destination. With a file path it is a
// size-rotated file; otherwise stderr.
func Writer(file string) io.Writer {
	if file == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   true,
	}
}

// New creates a tagged logger on w, e.g. New(w, "import") gives
// "[import] " prefixed lines.
func New(w io.Writer, tag string) *log.Logger {
	return log.New(w, "["+tag+"] ", log.LstdFlags)
}
