package config

import (
	"io"
	"log/slog"

	"github.com/bagumbayan/brgydocs/internal/gelf"
)

// SetupLogger builds the process logger and installs it as the slog default.
// When a GELF address is configured, records are also shipped over UDP.
// The returned close function releases the GELF socket.
func SetupLogger(cfg *Config, out io.Writer) (*slog.Logger, func(), error) {
	level, err := ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	format := cfg.LogFormat
	if cfg.GELFAddr != "" {
		gw, err := gelf.New(cfg.GELFAddr, "brgydocs")
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(out, gw)
		closeFn = func() { gw.Close() }
		// The GELF writer parses JSON records.
		format = "json"
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler).With(slog.String("version", Version))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}
