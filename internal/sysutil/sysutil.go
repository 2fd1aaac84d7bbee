// Package sysutil holds process-level helpers used by the server entry point
// and the HTTP layer.
package sysutil

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogOptions configures the process-wide logger.
type LogOptions struct {
	// Level is a zerolog level name; "warning" is accepted for warn.
	// Unknown or empty values fall back to info.
	Level string
	// Pretty switches to the human-readable console writer.
	Pretty bool
	// Service and Version are stamped on every line when set.
	Service string
	Version string
	// Out defaults to os.Stderr.
	Out io.Writer
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// ConfigureLogging installs the global zerolog logger used by the server,
// its services and the request logger middleware, and returns the level in
// effect.
func ConfigureLogging(opt LogOptions) zerolog.Level {
	lvl := ParseLevel(opt.Level)
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opt.Out
	if out == nil {
		out = os.Stderr
	}
	if opt.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	if opt.Version != "" {
		ctx = ctx.Str("version", opt.Version)
	}
	log.Logger = ctx.Logger()
	return lvl
}

// IsTruthy reports whether a query or environment value means true. It
// accepts what strconv.ParseBool does plus "yes", "y" and "on".
func IsTruthy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	switch v {
	case "yes", "y", "on":
		return true
	}
	return false
}
