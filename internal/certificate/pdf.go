package certificate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/draw"

	"github.com/bagumbayan/brgydocs/internal/models"
)

const (
	pdfMargin  = 18.0
	mmPerInch  = 25.4
	qrSideMM   = 28.0
	qrPixels   = 256
	bodyFontPt = 11.0
)

// WritePDF renders l as an A4 PDF with a QR code encoding reference.
func (c *Composer) WritePDF(ctx context.Context, w io.Writer, l *Layout, reference string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(l.Title, true)
	pdf.SetAuthor(l.Author, true)
	pdf.SetCreator("brgydocs", true)
	pdf.AddPage()

	// Core fonts are cp1252; names such as Peñafrancia need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	lm, _, rm, _ := pdf.GetMargins()
	contentW := pageW - lm - rm
	logoW := LogoWidthInches * mmPerInch

	top := pdf.GetY()
	c.pdfImage(ctx, pdf, "logo-left", "left logo", l.LogoLeft, lm, top, logoW)
	c.pdfImage(ctx, pdf, "logo-right", "right logo", l.LogoRight, pageW-rm-logoW, top, logoW)

	pdf.SetFont("Helvetica", "B", headerPt)
	pdf.SetXY(lm+logoW, top)
	pdf.MultiCell(contentW-2*logoW, headerPt*0.45, tr(l.Header), "", "C", false)
	if y := top + logoW; pdf.GetY() < y {
		pdf.SetY(y)
	}

	// Divider.
	pdf.Ln(3)
	y := pdf.GetY()
	pdf.SetLineWidth(0.8)
	pdf.Line(lm, y, pageW-rm, y)
	pdf.SetLineWidth(0.2)
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "B", titlePt)
	pdf.CellFormat(contentW, titlePt*0.5, tr(l.Title), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	lineH := bodyFontPt * 0.5
	pdf.SetFont("Helvetica", "B", bodyFontPt)
	pdf.MultiCell(contentW, lineH, tr(l.Preamble), "", "J", false)
	pdf.Ln(lineH)
	for _, f := range l.Fields {
		pdf.SetFont("Helvetica", "B", bodyFontPt)
		pdf.Write(lineH, tr(f.Label+": "))
		pdf.SetFont("Helvetica", "", bodyFontPt)
		pdf.Write(lineH, tr(f.Value))
		pdf.Ln(lineH)
	}

	if l.Photo != nil {
		pdf.Ln(4)
		photoW := PhotoWidthInches * mmPerInch
		if h := c.pdfImage(ctx, pdf, "photo", "photo", l.Photo, lm, pdf.GetY(), photoW); h > 0 {
			pdf.SetY(pdf.GetY() + h)
		}
	}

	pdf.Ln(lineH * 2)
	pdf.SetFont("Helvetica", "", bodyFontPt)
	pdf.MultiCell(contentW, lineH, tr(l.Closing), "", "R", false)

	if reference != "" {
		code, err := qrPNG(reference)
		if err != nil {
			return fmt.Errorf("encode verification code: %w", err)
		}
		qy := pageH - pdfMargin - qrSideMM - 6
		pdf.RegisterImageOptionsReader("verification", gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(code))
		pdf.ImageOptions("verification", lm, qy, qrSideMM, qrSideMM, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetXY(lm, qy+qrSideMM+1)
		pdf.CellFormat(contentW, 4, "Ref. "+reference, "", 1, "L", false, 0, "")
	}

	if pdf.Err() {
		return fmt.Errorf("render certificate pdf: %w", pdf.Error())
	}
	return pdf.Output(w)
}

// pdfImage places data at (x, y) scaled to width and returns the drawn height,
// or 0 when the image could not be used.
func (c *Composer) pdfImage(ctx context.Context, pdf *gofpdf.Fpdf, name, what string, data []byte, x, y, width float64) float64 {
	if data == nil {
		return 0
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 {
		c.logger.WarnContext(ctx, what+" omitted from pdf", slog.Any("error", err))
		return 0
	}
	opts := gofpdf.ImageOptions{ImageType: pdfImageType(format)}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if pdf.Err() {
		c.logger.WarnContext(ctx, what+" omitted from pdf", slog.String("error", pdf.Error().Error()))
		pdf.ClearError()
		return 0
	}
	h := width * float64(cfg.Height) / float64(cfg.Width)
	pdf.ImageOptions(name, x, y, width, h, false, opts, 0, "")
	return h
}

func pdfImageType(format string) string {
	if format == "jpeg" {
		return "JPG"
	}
	return strings.ToUpper(format)
}

func qrPNG(content string) ([]byte, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	code, err = barcode.Scale(code, qrPixels, qrPixels)
	if err != nil {
		return nil, err
	}
	// The QR image is 16-bit gray; gofpdf only embeds 8-bit PNGs.
	gray := image.NewGray(code.Bounds())
	draw.Draw(gray, gray.Bounds(), code, code.Bounds().Min, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ComposePDFFile lays out fields and saves the PDF rendition at path.
func (c *Composer) ComposePDFFile(ctx context.Context, path string, fields models.FieldSet, assets Assets, reference string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := c.Layout(ctx, fields, assets)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pdf-*")
	if err != nil {
		return fmt.Errorf("create temp pdf: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := c.WritePDF(ctx, tmp, l, reference); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close pdf: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
