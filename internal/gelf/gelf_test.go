package gelf

import (
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageFromSlogRecord(t *testing.T) {
	w := &Writer{hostname: "brgy-1", service: "brgydocs"}
	line := []byte(`{"time":"2024-05-01T08:00:00Z","level":"WARN","msg":"photo omitted","path":"/tmp/x.png","http":{"status":500},"id":"abc","ok":true}`)

	m := w.message(line, time.Now())
	assert.Equal(t, "1.1", m["version"])
	assert.Equal(t, "brgy-1", m["host"])
	assert.Equal(t, "photo omitted", m["short_message"])
	assert.Equal(t, 4, m["level"])
	assert.Equal(t, float64(1714550400), m["timestamp"])
	assert.Equal(t, "/tmp/x.png", m["_path"])
	assert.Equal(t, float64(500), m["_http_status"])
	assert.Equal(t, "abc", m["_record_id"])
	assert.Equal(t, "true", m["_ok"])
	assert.NotContains(t, m, "_id")
	assert.NotContains(t, m, "_msg")
}

func TestMessageLevels(t *testing.T) {
	w := &Writer{}
	cases := map[string]int{"DEBUG": 7, "INFO": 6, "WARN": 4, "ERROR": 3, "ERROR+4": 3, "DEBUG-2": 7}
	for lvl, want := range cases {
		m := w.message([]byte(`{"level":"`+lvl+`","msg":"x"}`), time.Now())
		assert.Equal(t, want, m["level"], lvl)
	}
}

func TestMessageFromPlainText(t *testing.T) {
	w := &Writer{}
	m := w.message([]byte(`time=2024 level=INFO msg=hello`), time.Unix(10, 0))
	assert.Equal(t, "time=2024 level=INFO msg=hello", m["short_message"])
	assert.Equal(t, 6, m["level"])
	assert.Equal(t, float64(10), m["timestamp"])
}

func TestWriterSendsUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	w, err := New(pc.LocalAddr().String(), "brgydocs")
	require.NoError(t, err)
	defer w.Close()

	logger := slog.New(slog.NewJSONHandler(w, nil))
	logger.Error("certificate failed", slog.String("type", "indigency"))

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 8192)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf[:n], &got))
	assert.Equal(t, "certificate failed", got["short_message"])
	assert.Equal(t, float64(3), got["level"])
	assert.Equal(t, "indigency", got["_type"])
	assert.Equal(t, "brgydocs", got["_service"])
}
