// Package certificate lays out barangay certificates and renders them as
// .docx (the issued artifact) or PDF (print copy with a verification code).
package certificate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bagumbayan/brgydocs/internal/imaging"
	"github.com/bagumbayan/brgydocs/internal/models"
)

const (
	LogoWidthInches  = 0.75
	PhotoWidthInches = 1.0
)

// Authority names the issuing barangay.
type Authority struct {
	Republic       string `yaml:"republic"`
	Barangay       string `yaml:"barangay"`
	City           string `yaml:"city"`
	Province       string `yaml:"province"`
	PunongBarangay string `yaml:"punong_barangay"`
}

func DefaultAuthority() Authority {
	return Authority{
		Republic: "Republic of the Philippines",
		Barangay: "Bagumbayan",
		City:     "Tanauan City",
		Province: "Batangas",
	}
}

func (a Authority) place() string {
	return fmt.Sprintf("Barangay %s, %s, %s", a.Barangay, a.City, a.Province)
}

// Assets are optional images placed on the certificate. Empty paths are skipped.
type Assets struct {
	LogoLeft  string
	LogoRight string
	Photo     string
}

// Layout is the fully resolved content of one certificate. Images are held
// as encoded bytes; an image that could not be loaded is nil.
type Layout struct {
	Type      models.DocumentType
	Header    string
	LogoLeft  []byte
	LogoRight []byte
	Title     string
	Preamble  string
	Fields    []models.LabeledValue
	Photo     []byte
	Closing   string
	Author    string
}

type Composer struct {
	authority Authority
	logger    *slog.Logger
}

func NewComposer(authority Authority, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{authority: authority, logger: logger}
}

// Layout builds the certificate content for fields. Logos and the photo are
// best effort: failures are logged and the image is left out.
func (c *Composer) Layout(ctx context.Context, fields models.FieldSet, assets Assets) *Layout {
	t := fields.DocumentType()
	l := &Layout{
		Type:     t,
		Header:   c.header(t),
		Title:    t.Title(),
		Preamble: c.preamble(t),
		Fields:   fields.Labeled(),
		Closing:  c.closing(),
		Author:   "Barangay " + c.authority.Barangay,
	}

	l.LogoLeft = c.readImage(ctx, "left logo", assets.LogoLeft)
	l.LogoRight = c.readImage(ctx, "right logo", assets.LogoRight)

	if assets.Photo != "" {
		err := imaging.WithThumbnail(assets.Photo, imaging.ThumbnailSize, func(path string) error {
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			l.Photo = b
			return nil
		})
		if err != nil {
			c.logger.WarnContext(ctx, "photo omitted from certificate",
				slog.String("path", assets.Photo),
				slog.String("error", err.Error()),
			)
			l.Photo = nil
		}
	}
	return l
}

func (c *Composer) readImage(ctx context.Context, what, path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		c.logger.WarnContext(ctx, what+" omitted from certificate",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return b
}

func (c *Composer) header(t models.DocumentType) string {
	a := c.authority
	return strings.Join([]string{
		a.Republic,
		"Barangay " + a.Barangay,
		a.City + ", " + a.Province,
		"",
		t.Title(),
	}, "\n")
}

func (c *Composer) preamble(t models.DocumentType) string {
	var body string
	switch t {
	case models.ResidenceCertification:
		body = "This is to certify that the person whose name and personal circumstances are indicated below " +
			"is a bona fide resident of " + c.authority.place() + ":"
	case models.Indigency:
		body = "This is to certify that the person whose name and personal circumstances are indicated below " +
			"belongs to an indigent family of Barangay " + c.authority.Barangay +
			" and has no sufficient source of income:"
	default:
		body = "This is to certify that, based on the records of this Barangay, the person whose name and " +
			"personal circumstances are indicated below has not been accused nor has a pending case with Barangay " +
			c.authority.Barangay + " involving moral turpitude or any act contrary to existing law:"
	}
	return "TO WHOM IT MAY CONCERN:\n\n" + body
}

func (c *Composer) closing() string {
	captain := c.authority.PunongBarangay
	if captain == "" {
		captain = "**********"
	}
	return "This certification is issued upon the request of the above-named person to support " +
		"whatever legal purposes it may serve best.\n\n" +
		"Given this ____ day of __________ 20__ at " + c.authority.place() + ", Philippines.\n\n" +
		"HON. " + strings.ToUpper(captain) + "\n\nPunong Barangay"
}
