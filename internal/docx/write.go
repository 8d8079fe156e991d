package docx

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	corePart      = "docProps/core.xml"
	thumbnailPart = "docProps/thumbnail.jpeg"
	relThumbnail  = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail"
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo serializes the document as a .docx package.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.finish()
	cw := &countingWriter{w: w}
	if err := d.root.Write(cw); err != nil {
		return cw.n, fmt.Errorf("docx: write package: %w", err)
	}
	return cw.n, nil
}

// Save writes the document to path. The file is written next to its final
// name and renamed into place, so readers never observe a partial package.
func (d *Document) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("docx: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".docx-*")
	if err != nil {
		return fmt.Errorf("docx: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if _, err := d.WriteTo(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("docx: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("docx: close: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// finish replaces the template's metadata parts with this document's.
func (d *Document) finish() {
	d.root.FileMap.Store(corePart, []byte(d.coreXML()))

	d.root.FileMap.Delete(thumbnailPart)
	rels := d.root.RootRels.Relationships[:0]
	for _, rel := range d.root.RootRels.Relationships {
		if rel.Type != relThumbnail {
			rels = append(rels, rel)
		}
	}
	d.root.RootRels.Relationships = rels

	// One Default per extension; godocx adds one for every picture.
	seen := make(map[string]bool)
	defaults := d.root.ContentType.Default[:0]
	for _, def := range d.root.ContentType.Default {
		ext := strings.ToLower(def.Extension)
		if !seen[ext] {
			seen[ext] = true
			defaults = append(defaults, def)
		}
	}
	d.root.ContentType.Default = defaults
}

func (d *Document) coreXML() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/"` +
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	b.WriteString("<dc:title>")
	escape(&b, d.Title)
	b.WriteString("</dc:title><dc:creator>")
	escape(&b, d.Author)
	b.WriteString("</dc:creator>")
	created := d.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}
	stamp := created.UTC().Format(time.RFC3339)
	b.WriteString(`<dcterms:created xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:created>`)
	b.WriteString(`<dcterms:modified xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:modified>`)
	b.WriteString("</cp:coreProperties>")
	return b.String()
}

func escape(b *strings.Builder, s string) {
	// strings.Builder never returns a write error.
	_ = xml.EscapeText(b, []byte(s))
}
