package main

import (
	"log/slog"
	"strings"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// newLogger returns the process logger for the LOG_LEVEL and LOG_FORMAT
// values.  Unknown values fall back to info and the default format.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	f := slogutil.FormatDefault
	switch strings.ToLower(format) {
	case "json":
		f = slogutil.FormatJSON
	case "text":
		f = slogutil.FormatText
	}

	return slogutil.New(&slogutil.Config{
		Format:       f,
		Level:        lvl,
		AddTimestamp: true,
	})
}
