package imaging

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagumbayan/brgydocs/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAllowedFile(t *testing.T) {
	accepted := []string{"a.png", "a.jpg", "a.jpeg", "a.gif", "A.PNG", "my.photo.JpEg"}
	rejected := []string{"a", "a.", "a.bmp", "a.pdf", "png", "a.png.exe", ".jpgx", ""}

	for _, name := range accepted {
		assert.True(t, AllowedFile(name), name)
	}
	for _, name := range rejected {
		assert.False(t, AllowedFile(name), name)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"My Photo.jpg":       "My_Photo.jpg",
		"../../etc/passwd":   "etc_passwd",
		`C:\Users\juan\a.png`: "C_Users_juan_a.png",
		"Peñafrancia.png":    "Penafrancia.png",
		"  spaced  out .gif": "spaced_out_.gif",
		"<script>.jpeg":      "script.jpeg",
		"...":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestStoreSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, discardLogger())
	content := pngBytes(t, 4, 3)

	path, err := store.Save(context.Background(), models.UploadedPhoto{Filename: "../Juan Cruz.PNG", Content: content})
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_Juan_Cruz.PNG"), path)

	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestStoreSaveScopesEachUpload(t *testing.T) {
	store := NewStore(t.TempDir(), discardLogger())
	photo := models.UploadedPhoto{Filename: "same.jpg", Content: []byte("x")}

	p1, err := store.Save(context.Background(), photo)
	require.NoError(t, err)
	p2, err := store.Save(context.Background(), photo)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
}

func TestStoreSaveRejects(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, discardLogger())

	for _, name := range []string{"resume.pdf", "noext", "photo.bmp"} {
		_, err := store.Save(context.Background(), models.UploadedPhoto{Filename: name, Content: []byte("data")})
		assert.ErrorIs(t, err, ErrUnsupportedFormat, name)
	}

	_, err := store.Save(context.Background(), models.UploadedPhoto{Filename: "a.png"})
	assert.ErrorIs(t, err, ErrEmptyUpload)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoreSaveOnlyExtensionSurvives(t *testing.T) {
	store := NewStore(t.TempDir(), discardLogger())
	path, err := store.Save(context.Background(), models.UploadedPhoto{Filename: "ñ.JPG", Content: []byte("x")})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_n.JPG") || strings.HasSuffix(path, "_photo.jpg"), path)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{100, 50, 100, 50},
		{200, 200, 200, 200},
		{400, 200, 200, 100},
		{200, 800, 50, 200},
		{1000, 1, 200, 1},
	}
	for _, tt := range tests {
		w, h := FitWithin(tt.w, tt.h, ThumbnailSize)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}

func TestWithThumbnailBoundsAndCleansUp(t *testing.T) {
	src := filepath.Join(t.TempDir(), "big.png")
	require.NoError(t, os.WriteFile(src, pngBytes(t, 640, 320), 0o644))

	var seen string
	err := WithThumbnail(src, ThumbnailSize, func(path string) error {
		seen = path
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		cfg, format, err := image.DecodeConfig(f)
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.Equal(t, 200, cfg.Width)
		assert.Equal(t, 100, cfg.Height)
		return nil
	})
	require.NoError(t, err)

	_, statErr := os.Stat(seen)
	assert.True(t, os.IsNotExist(statErr), "thumbnail left behind: %s", seen)
}

func TestWithThumbnailCleansUpOnFailure(t *testing.T) {
	src := filepath.Join(t.TempDir(), "small.png")
	require.NoError(t, os.WriteFile(src, pngBytes(t, 10, 10), 0o644))

	boom := assert.AnError
	var seen string
	err := WithThumbnail(src, ThumbnailSize, func(path string) error {
		seen = path
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, statErr := os.Stat(seen)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWithThumbnailDecodeError(t *testing.T) {
	src := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o644))

	called := false
	err := WithThumbnail(src, ThumbnailSize, func(string) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

// pngHeader returns a PNG holding only a signature and an IHDR chunk for a
// w×h 8-bit grayscale image. It is enough for image.DecodeConfig.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestThumbnailRejectsOversizedImage(t *testing.T) {
	src := filepath.Join(t.TempDir(), "huge.png")
	require.NoError(t, os.WriteFile(src, pngHeader(12000, 12000), 0o644))

	_, err := Thumbnail(src, ThumbnailSize)
	require.ErrorIs(t, err, ErrImageTooLarge)

	called := false
	err = WithThumbnail(src, ThumbnailSize, func(string) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrImageTooLarge)
	assert.False(t, called)
}
