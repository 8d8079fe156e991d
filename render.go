package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bagumbayan/brgydocs/internal/certificate"
	"github.com/bagumbayan/brgydocs/internal/docx"
	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/validate"
)

var (
	renderType  string
	renderData  string
	renderPhoto string
	renderOut   string
	renderPDF   bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Generate a certificate from a YAML field file",
	Long: `Generate a certificate without the web portal.

The data file is a flat YAML mapping of form fields, for example:

  first_name: Juan
  middle_name: Dela
  last_name: Cruz
  address: 123 Main St
  purpose: Employment`,
	RunE: runRender,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE.docx",
	Short: "Print the body text of a generated .docx",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := docx.PlainText(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderType, "type", "t", string(models.BarangayClearance), "document type: barangay_clearance, residence_certification, indigency")
	renderCmd.Flags().StringVarP(&renderData, "data", "d", "", "YAML file with the form fields (required)")
	renderCmd.Flags().StringVar(&renderPhoto, "photo", "", "photo to place on the certificate")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output file (default <type>.docx or .pdf)")
	renderCmd.Flags().BoolVar(&renderPDF, "pdf", false, "write the PDF print copy instead of .docx")
	_ = renderCmd.MarkFlagRequired("data")
}

func runRender(cmd *cobra.Command, args []string) error {
	t, err := models.ParseDocumentType(renderType)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(renderData)
	if err != nil {
		return fmt.Errorf("read data: %w", err)
	}
	var data models.FormSubmission
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse %s: %w", renderData, err)
	}

	var photo *models.UploadedPhoto
	if renderPhoto != "" {
		photo = &models.UploadedPhoto{Filename: renderPhoto}
	}
	if res := validate.Submission(t, data, photo); !res.OK {
		return fmt.Errorf("invalid information: missing %s", strings.Join(res.Missing, ", "))
	}

	format := models.FormatDOCX
	if renderPDF {
		format = models.FormatPDF
	}
	out := renderOut
	if out == "" {
		out = t.DownloadName(format)
	}

	composer := certificate.NewComposer(cfg.Authority, logger)
	fields := models.Bind(t, data)
	assets := certificate.Assets{LogoLeft: cfg.Files.LogoLeft, LogoRight: cfg.Files.LogoRight, Photo: renderPhoto}
	ctx := cmd.Context()
	if renderPDF {
		err = composer.ComposePDFFile(ctx, out, fields, assets, uuid.NewString())
	} else {
		err = composer.ComposeFile(ctx, out, fields, assets)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return nil
}
