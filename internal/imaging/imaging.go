// Package imaging stores uploaded photos and produces the bounded
// thumbnails embedded in certificates.
package imaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/bagumbayan/brgydocs/internal/models"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported photo format")
	ErrEmptyUpload       = errors.New("uploaded file is empty")
)

// AllowedExtensions is the photo allow-list, without dots.
var AllowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// AllowedFile reports whether name has an extension from the allow-list.
func AllowedFile(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return false
	}
	return AllowedExtensions[strings.ToLower(name[i+1:])]
}

var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeFilename reduces name to a safe base name: accents are folded to
// ASCII, path separators become spaces, anything outside [A-Za-z0-9._-] is
// dropped, whitespace runs become "_" and leading/trailing "._" are trimmed.
func SanitizeFilename(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}
	folded = strings.NewReplacer("/", " ", "\\", " ").Replace(folded)

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r > unicode.MaxASCII:
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	out := strings.Join(strings.Fields(b.String()), "_")
	return strings.Trim(out, "._")
}

// Store persists raw uploads under a working directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

func (s *Store) Dir() string { return s.dir }

// Save validates the extension and writes the upload as <uuid>_<sanitized name>.
// The stored bytes are exactly the uploaded bytes.
func (s *Store) Save(ctx context.Context, photo models.UploadedPhoto) (string, error) {
	if !AllowedFile(photo.Filename) {
		return "", ErrUnsupportedFormat
	}
	if len(photo.Content) == 0 {
		return "", ErrEmptyUpload
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := SanitizeFilename(photo.Filename)
	if !AllowedFile(name) {
		// Everything but the extension was stripped.
		name = "photo" + filepath.Ext(strings.ToLower(photo.Filename))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.dir, uuid.NewString()+"_"+name)
	if err := os.WriteFile(path, photo.Content, 0o644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}

	s.logger.Debug("photo stored",
		slog.String("path", path),
		slog.Int("size", len(photo.Content)),
	)
	return path, nil
}
