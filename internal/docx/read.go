package docx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gdx "github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/packager"
	"github.com/gomutex/godocx/wml/ctypes"
)

var ErrNotDocx = errors.New("docx: not a wordprocessing package")

// Summary is the readable content of a .docx package.
type Summary struct {
	Paragraphs []string
	Images     int
	Title      string
}

// Text joins the paragraphs with newlines.
func (s *Summary) Text() string {
	return strings.Join(s.Paragraphs, "\n")
}

// Open reads the .docx at path.
func Open(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// Read extracts paragraph text and counts embedded media.
func Read(r io.ReaderAt, size int64) (*Summary, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// PlainText returns the document body as text, one line per paragraph.
func PlainText(path string) (string, error) {
	s, err := Open(path)
	if err != nil {
		return "", err
	}
	return s.Text(), nil
}

func parse(data []byte) (*Summary, error) {
	root, err := packager.Unpack(&data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}
	if root.Document == nil || root.Document.Body == nil {
		return nil, fmt.Errorf("%w: missing body", ErrNotDocx)
	}

	s := &Summary{Images: int(root.ImageCount)}
	for _, child := range root.Document.Body.Children {
		if child.Para != nil {
			s.Paragraphs = append(s.Paragraphs, paragraphText(child.Para.GetCT().Children))
		}
	}
	if raw, ok := root.FileMap.Load(corePart); ok {
		if core, err := gdx.LoadDocProps(raw.([]byte)); err == nil {
			s.Title = core.Title
		}
	}
	return s, nil
}

func paragraphText(children []ctypes.ParagraphChild) string {
	var b strings.Builder
	var walk func([]ctypes.ParagraphChild)
	walk = func(children []ctypes.ParagraphChild) {
		for _, c := range children {
			if c.Link != nil {
				walk(c.Link.Children)
			}
			if c.Run == nil {
				continue
			}
			for _, rc := range c.Run.Children {
				switch {
				case rc.Text != nil:
					b.WriteString(rc.Text.Text)
				case rc.Break != nil:
					b.WriteByte('\n')
				case rc.Tab != nil:
					b.WriteByte('\t')
				}
			}
		}
	}
	walk(children)
	return b.String()
}
