// Package gelf ships log records to Graylog as GELF 1.1 over UDP.
package gelf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Writer sends GELF messages over UDP and implements io.Writer so it can sit
// behind a slog handler via io.MultiWriter. Each Write is expected to carry
// one slog JSON record; anything else is sent verbatim as short_message.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("gelf: dial %s: %w", addr, err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

func (w *Writer) Close() error {
	return w.conn.Close()
}

// Write implements io.Writer. Delivery is fire-and-forget: a failed send
// never fails the log call.
func (w *Writer) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		payload, err := json.Marshal(w.message(line, time.Now()))
		if err != nil {
			continue
		}
		_, _ = w.conn.Write(payload)
	}
	return len(p), nil
}

// syslog severities used by GELF.
var severity = map[string]int{
	"DEBUG": 7,
	"INFO":  6,
	"WARN":  4,
	"ERROR": 3,
}

func (w *Writer) message(line []byte, now time.Time) map[string]any {
	msg := map[string]any{
		"version":   "1.1",
		"host":      w.hostname,
		"timestamp": float64(now.UnixNano()) / 1e9,
		"level":     6,
		"_service":  w.service,
	}

	var rec map[string]any
	if err := json.Unmarshal(line, &rec); err != nil {
		msg["short_message"] = string(line)
		return msg
	}

	short, _ := rec["msg"].(string)
	if short == "" {
		short = string(line)
	}
	msg["short_message"] = short
	if lvl, ok := rec["level"].(string); ok {
		// slog emits offsets such as "INFO+2"; the base name decides.
		base, _, _ := strings.Cut(lvl, "+")
		base, _, _ = strings.Cut(base, "-")
		if s, ok := severity[base]; ok {
			msg["level"] = s
		}
	}
	if ts, ok := rec["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			msg["timestamp"] = float64(t.UnixNano()) / 1e9
		}
	}

	for k, v := range rec {
		switch k {
		case "msg", "level", "time":
			continue
		}
		flatten(msg, "_"+sanitizeKey(k), v)
	}
	return msg
}

// flatten turns slog groups into underscore-joined additional fields.
// GELF only allows string and number values.
func flatten(dst map[string]any, key string, v any) {
	if key == "_id" {
		key = "_record_id"
	}
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			flatten(dst, key+"_"+sanitizeKey(k), inner)
		}
	case string, float64:
		dst[key] = val
	case bool:
		dst[key] = fmt.Sprint(val)
	case nil:
	default:
		b, _ := json.Marshal(val)
		dst[key] = string(b)
	}
}

func sanitizeKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		}
		return '_'
	}, k)
}
