// Package oxidbtest runs an in-process stand-in for oxidb-server that speaks
// the same framed JSON protocol. It keeps everything in memory and supports
// the subset of commands the oxidb client issues.
package oxidbtest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
)

type object struct {
	content     string
	contentType string
	metadata    map[string]any
}

type Server struct {
	ln net.Listener

	mu      sync.Mutex
	nextID  int
	colls   map[string][]map[string]any
	uniques map[string][]string
	buckets map[string]map[string]object
	cmds    []string
	wg      sync.WaitGroup
}

// Start listens on a loopback port and serves until the test ends.
func Start(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("oxidbtest: listen: %v", err)
	}
	s := &Server{
		ln:      ln,
		colls:   map[string][]map[string]any{},
		uniques: map[string][]string{},
		buckets: map[string]map[string]object{},
	}
	s.wg.Add(1)
	go s.accept()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Host() string { return "127.0.0.1" }

func (s *Server) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// Close stops accepting connections.
func (s *Server) Close() {
	s.ln.Close()
	s.wg.Wait()
}

// Commands returns the commands received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cmds...)
}

func (s *Server) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			return
		}
		payload := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		var req map[string]any
		var resp map[string]any
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = fail("bad request: %v", err)
		} else {
			resp = s.handle(req)
		}

		out, _ := json.Marshal(resp)
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(out)))
		if _, err := conn.Write(append(lenBuf[:], out...)); err != nil {
			return
		}
	}
}

func ok(data any) map[string]any { return map[string]any{"ok": true, "data": data} }

func fail(format string, args ...any) map[string]any {
	return map[string]any{"ok": false, "error": fmt.Sprintf(format, args...)}
}

func (s *Server) handle(req map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, _ := req["cmd"].(string)
	s.cmds = append(s.cmds, cmd)
	coll, _ := req["collection"].(string)
	query, _ := req["query"].(map[string]any)
	bucket, _ := req["bucket"].(string)
	key, _ := req["key"].(string)

	switch cmd {
	case "ping":
		return ok("pong")

	case "create_collection":
		if _, exists := s.colls[coll]; !exists {
			s.colls[coll] = nil
		}
		return ok(nil)

	case "create_unique_index":
		field, _ := req["field"].(string)
		s.uniques[coll] = append(s.uniques[coll], field)
		return ok(nil)

	case "insert":
		doc, _ := req["doc"].(map[string]any)
		for _, field := range s.uniques[coll] {
			for _, existing := range s.colls[coll] {
				if reflect.DeepEqual(existing[field], doc[field]) {
					return fail("unique constraint violated on %s.%s", coll, field)
				}
			}
		}
		s.nextID++
		stored := map[string]any{"_id": float64(s.nextID)}
		for k, v := range doc {
			stored[k] = v
		}
		s.colls[coll] = append(s.colls[coll], stored)
		return ok(map[string]any{"id": float64(s.nextID)})

	case "find_one":
		for _, d := range s.colls[coll] {
			if matches(d, query) {
				return ok(d)
			}
		}
		return ok(nil)

	case "count":
		n := 0
		for _, d := range s.colls[coll] {
			if matches(d, query) {
				n++
			}
		}
		return ok(map[string]any{"count": float64(n)})

	case "create_bucket":
		if _, exists := s.buckets[bucket]; exists {
			return fail("bucket %s already exists", bucket)
		}
		s.buckets[bucket] = map[string]object{}
		return ok(nil)

	case "put_object":
		b, exists := s.buckets[bucket]
		if !exists {
			return fail("bucket %s not found", bucket)
		}
		o := object{}
		o.content, _ = req["data"].(string)
		o.contentType, _ = req["content_type"].(string)
		o.metadata, _ = req["metadata"].(map[string]any)
		b[key] = o
		return ok(map[string]any{"key": key, "size": float64(len(o.content))})

	case "get_object":
		o, exists := s.buckets[bucket][key]
		if !exists {
			return fail("object %s/%s not found", bucket, key)
		}
		return ok(map[string]any{"content": o.content, "content_type": o.contentType, "metadata": o.metadata})

	case "delete_object":
		if _, exists := s.buckets[bucket][key]; !exists {
			return fail("object %s/%s not found", bucket, key)
		}
		delete(s.buckets[bucket], key)
		return ok(nil)

	case "list_objects":
		prefix, _ := req["prefix"].(string)
		keys := make([]string, 0, len(s.buckets[bucket]))
		for k := range s.buckets[bucket] {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			o := s.buckets[bucket][k]
			out = append(out, map[string]any{"key": k, "content_type": o.contentType, "metadata": o.metadata})
		}
		return ok(out)
	}
	return fail("unknown command %q", cmd)
}

func matches(doc, query map[string]any) bool {
	for k, want := range query {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	return true
}
