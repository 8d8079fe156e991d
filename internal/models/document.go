package models

import (
	"fmt"
	"time"
)

// DocumentType identifies one of the civic documents the barangay issues.
type DocumentType string

const (
	BarangayClearance      DocumentType = "barangay_clearance"
	ResidenceCertification DocumentType = "residence_certification"
	Indigency              DocumentType = "indigency"
)

// DocumentTypes lists the supported types in menu order.
var DocumentTypes = []DocumentType{BarangayClearance, ResidenceCertification, Indigency}

func ParseDocumentType(s string) (DocumentType, error) {
	for _, t := range DocumentTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid document type %q", s)
}

// Title is the heading printed on the certificate.
func (t DocumentType) Title() string {
	switch t {
	case BarangayClearance:
		return "BARANGAY CLEARANCE"
	case ResidenceCertification:
		return "CERTIFICATE OF RESIDENCY"
	case Indigency:
		return "CERTIFICATE OF INDIGENCY"
	}
	return "CERTIFICATION"
}

// DownloadName is the fixed file name offered to the browser.
func (t DocumentType) DownloadName(f Format) string {
	base := string(t)
	if t == Indigency {
		base = "indigency_certificate"
	}
	return base + f.Extension()
}

// Format is the file format of a generated artifact.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "docx":
		return FormatDOCX, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("invalid format %q", s)
}

func (f Format) Extension() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// GeneratedDocument is an artifact written under a request-scoped directory.
type GeneratedDocument struct {
	ID          string       `json:"id"`
	Type        DocumentType `json:"type"`
	Format      Format       `json:"format"`
	Path        string       `json:"path"`
	FileName    string       `json:"fileName"`
	ContentType string       `json:"contentType"`
	Size        int64        `json:"size"`
	CreatedAt   time.Time    `json:"createdAt"`
}
