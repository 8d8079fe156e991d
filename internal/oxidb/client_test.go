package oxidb_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagumbayan/brgydocs/internal/oxidb"
	"github.com/bagumbayan/brgydocs/internal/oxidb/oxidbtest"
)

func getClient(t *testing.T) *oxidb.Client {
	t.Helper()
	srv := oxidbtest.Start(t)
	c, err := oxidb.Connect(context.Background(), srv.Host(), srv.Port())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPing(t *testing.T) {
	c := getClient(t)

	pong, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pong", pong)
}

func TestInsertAndFindOne(t *testing.T) {
	c := getClient(t)
	ctx := context.Background()

	require.NoError(t, c.CreateCollection(ctx, "residents"))
	result, err := c.Insert(ctx, "residents", map[string]any{"username": "juan", "role": "resident"})
	require.NoError(t, err)
	assert.NotNil(t, result["id"])

	_, err = c.Insert(ctx, "residents", map[string]any{"username": "maria", "role": "resident"})
	require.NoError(t, err)

	doc, err := c.FindOne(ctx, "residents", map[string]any{"username": "maria"})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "resident", doc["role"])

	n, err := c.Count(ctx, "residents", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFindOneMissing(t *testing.T) {
	c := getClient(t)

	doc, err := c.FindOne(context.Background(), "residents", map[string]any{"username": "nobody"})
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestUniqueIndex(t *testing.T) {
	c := getClient(t)
	ctx := context.Background()

	require.NoError(t, c.CreateUniqueIndex(ctx, "users", "username"))
	_, err := c.Insert(ctx, "users", map[string]any{"username": "juan"})
	require.NoError(t, err)

	_, err = c.Insert(ctx, "users", map[string]any{"username": "juan"})
	require.Error(t, err)
	assert.True(t, oxidb.IsDuplicate(err))
	assert.False(t, oxidb.IsNotFound(err))
}

func TestBlobRoundTrip(t *testing.T) {
	c := getClient(t)
	ctx := context.Background()

	require.NoError(t, c.CreateBucket(ctx, "certificates"))
	err := c.CreateBucket(ctx, "certificates")
	assert.True(t, oxidb.IsExists(err))

	data := []byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0xff}
	require.NoError(t, c.PutObject(ctx, "certificates", "2024/abc.docx", data, "", map[string]string{"type": "indigency"}))

	obj, err := c.GetObject(ctx, "certificates", "2024/abc.docx")
	require.NoError(t, err)
	assert.Equal(t, data, obj.Data)
	assert.Equal(t, "application/octet-stream", obj.ContentType)
	assert.Equal(t, "indigency", obj.Metadata["type"])

	list, err := c.ListObjects(ctx, "certificates", "2024/", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024/abc.docx", list[0]["key"])

	require.NoError(t, c.DeleteObject(ctx, "certificates", "2024/abc.docx"))
	_, err = c.GetObject(ctx, "certificates", "2024/abc.docx")
	assert.True(t, oxidb.IsNotFound(err))
}

func TestServerErrorMessage(t *testing.T) {
	c := getClient(t)

	_, err := c.Ping(context.Background())
	require.NoError(t, err)

	err = c.DeleteObject(context.Background(), "nope", "k")
	var oe *oxidb.Error
	require.ErrorAs(t, err, &oe)
	assert.Contains(t, oe.Error(), "oxidb: object nope/k not found")
}

func TestRequestHonorsContextDeadline(t *testing.T) {
	// A listener that accepts but never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(2 * time.Second)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	c, err := oxidb.Connect(context.Background(), "127.0.0.1", addr.Port)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = c.Ping(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCanceledContextSkipsRoundTrip(t *testing.T) {
	c := getClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Ping(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
