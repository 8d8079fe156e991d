// Package docx builds and reads WordprocessingML (.docx) documents on top of
// godocx: paragraphs of styled runs, line breaks, paragraph borders and
// inline pictures.
package docx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	// Decoders used to size inline pictures.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/common/units"
	gdx "github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/ctypes"
	"github.com/gomutex/godocx/wml/stypes"
)

var ErrUnsupportedImage = errors.New("docx: unsupported image format")

type Alignment = stypes.Justification

const (
	AlignLeft   = stypes.JustificationLeft
	AlignCenter = stypes.JustificationCenter
	AlignRight  = stypes.JustificationRight
	AlignBoth   = stypes.JustificationBoth
)

// Document is a .docx under construction.
type Document struct {
	Title   string
	Author  string
	Created time.Time

	root *gdx.RootDoc
}

// New starts a document from the godocx default template (Letter page).
func New() (*Document, error) {
	root, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("docx: load template: %w", err)
	}
	return &Document{Created: time.Now().UTC(), root: root}, nil
}

// AddParagraph appends an empty paragraph to the body.
func (d *Document) AddParagraph() *Paragraph {
	return &Paragraph{p: d.root.AddEmptyParagraph()}
}

type Paragraph struct {
	p *gdx.Paragraph
}

func (p *Paragraph) Align(a Alignment) *Paragraph {
	p.p.Justification(a)
	return p
}

// BottomBorder draws a full-width rule under the paragraph.
func (p *Paragraph) BottomBorder() *Paragraph {
	ct := p.p.GetCT()
	if ct.Property == nil {
		ct.Property = ctypes.DefaultParaProperty()
	}
	color, space := "000000", "1"
	ct.Property.Border = &ctypes.ParaBorder{
		Bottom: &ctypes.Border{Val: stypes.BorderStyleSingle, Color: &color, Space: &space},
	}
	return p
}

// AddText appends text. Newlines become line breaks.
func (p *Paragraph) AddText(text string) *Run {
	lines := strings.Split(text, "\n")
	r := &Run{runs: make([]*gdx.Run, 0, len(lines))}
	for i, line := range lines {
		run := p.p.AddText(line)
		if i < len(lines)-1 {
			run.AddBreak(nil)
		}
		r.runs = append(r.runs, run)
	}
	return r
}

// AddPicture appends an inline picture widthInches wide, keeping the aspect ratio.
func (p *Paragraph) AddPicture(data []byte, widthInches float64) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	switch format {
	case "png", "jpeg", "gif":
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}

	// godocx embeds pictures from a path and names the part after its extension.
	tmp, err := os.CreateTemp("", "docx-picture-*."+format)
	if err != nil {
		return fmt.Errorf("docx: stage picture: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("docx: stage picture: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("docx: stage picture: %w", err)
	}

	height := widthInches * float64(cfg.Height) / float64(cfg.Width)
	if _, err := p.p.AddPicture(tmp.Name(), units.Inch(widthInches), units.Inch(height)); err != nil {
		return fmt.Errorf("docx: embed picture: %w", err)
	}
	return nil
}

// Run is text added in one call, possibly spanning several line breaks.
type Run struct {
	runs []*gdx.Run
}

func (r *Run) Bold() *Run {
	for _, run := range r.runs {
		run.Bold(true)
	}
	return r
}

// Size sets the font size in points.
func (r *Run) Size(pt uint64) *Run {
	for _, run := range r.runs {
		run.Size(pt)
	}
	return r
}
