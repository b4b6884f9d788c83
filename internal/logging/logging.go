// Package logging configures the process logger.
//
// Logs go to stderr; stdout carries the MCP protocol.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "APRILTAG_MCP_LOG_LEVEL"
	EnvLogNoColor = "APRILTAG_MCP_LOG_NOCOLOR"
	EnvLogJSON    = "APRILTAG_MCP_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var (
	configureOnce sync.Once
	logger        = zerolog.New(io.Discard)
)

func ConfigureRuntime() {
	Configure(ProfileRuntime, os.Stderr)
}

func ConfigureTests() {
	Configure(ProfileTest, io.Discard)
}

// Configure sets up the logger once; later calls are ignored.
func Configure(profile Profile, w io.Writer) {
	configureOnce.Do(func() {
		logger = build(profile, w, os.Getenv)
	})
}

// build is split from Configure so tests can drive the env lookup.
func build(profile Profile, w io.Writer, getenv func(string) string) zerolog.Logger {
	level := zerolog.InfoLevel
	if profile == ProfileTest {
		level = zerolog.DebugLevel
	}
	if lvl, ok := parseLevel(getenv(EnvLogLevel)); ok {
		level = lvl
	}

	out := w
	if !parseBool(getenv(EnvLogJSON)) {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    profile == ProfileTest || parseBool(getenv(EnvLogNoColor)),
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	ctx := zerolog.New(out).Level(level).With()
	if profile == ProfileRuntime {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// Logger returns the configured logger, or a discarding one before Configure.
func Logger() *zerolog.Logger {
	return &logger
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "off", "disabled":
		return zerolog.Disabled, true
	}
	return zerolog.NoLevel, false
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
