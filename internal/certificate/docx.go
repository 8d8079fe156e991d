package certificate

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bagumbayan/brgydocs/internal/docx"
	"github.com/bagumbayan/brgydocs/internal/models"
)

const (
	headerPt = 18
	titlePt  = 14
)

// Document converts a layout into a .docx document.
func (c *Composer) Document(ctx context.Context, l *Layout) (*docx.Document, error) {
	d, err := docx.New()
	if err != nil {
		return nil, err
	}
	d.Title = l.Title
	d.Author = l.Author

	head := d.AddParagraph().Align(docx.AlignCenter)
	c.addPicture(ctx, head, "left logo", l.LogoLeft, LogoWidthInches)
	head.AddText(l.Header + "\n").Bold().Size(headerPt)
	c.addPicture(ctx, head, "right logo", l.LogoRight, LogoWidthInches)

	d.AddParagraph()
	d.AddParagraph().BottomBorder()

	d.AddParagraph().Align(docx.AlignCenter).AddText(l.Title).Bold().Size(titlePt)
	d.AddParagraph()

	body := d.AddParagraph()
	body.AddText(l.Preamble + "\n").Bold()
	for _, f := range l.Fields {
		body.AddText("\n" + f.Label + ": ").Bold()
		body.AddText(f.Value)
	}

	if l.Photo != nil {
		p := d.AddParagraph()
		c.addPicture(ctx, p, "photo", l.Photo, PhotoWidthInches)
	}

	d.AddParagraph().Align(docx.AlignRight).AddText("\n" + l.Closing)
	return d, nil
}

func (c *Composer) addPicture(ctx context.Context, p *docx.Paragraph, what string, data []byte, width float64) {
	if data == nil {
		return
	}
	if err := p.AddPicture(data, width); err != nil {
		c.logger.WarnContext(ctx, what+" omitted from certificate", slog.String("error", err.Error()))
	}
}

// WriteDOCX renders l as a .docx package to w.
func (c *Composer) WriteDOCX(ctx context.Context, w io.Writer, l *Layout) error {
	d, err := c.Document(ctx, l)
	if err != nil {
		return fmt.Errorf("build certificate: %w", err)
	}
	if _, err := d.WriteTo(w); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	return nil
}

// ComposeFile lays out fields and saves the .docx at path.
func (c *Composer) ComposeFile(ctx context.Context, path string, fields models.FieldSet, assets Assets) error {
	l := c.Layout(ctx, fields, assets)
	d, err := c.Document(ctx, l)
	if err != nil {
		return fmt.Errorf("build certificate: %w", err)
	}
	if err := d.Save(path); err != nil {
		return fmt.Errorf("save certificate: %w", err)
	}
	c.logger.InfoContext(ctx, "certificate composed",
		slog.String("type", string(l.Type)),
		slog.String("path", path),
		slog.Bool("photo", l.Photo != nil),
	)
	return nil
}
