package efaktur

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdfimg "github.com/sunshineplan/pdf"
)

// Supported media types.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
)

// DetectMediaType resolves the canonical media type from an upload's declared
// content type, falling back to the filename extension. Returns "" when
// neither identifies a supported format.
func DetectMediaType(filename, contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case MediaTypePDF:
		return MediaTypePDF
	case MediaTypeJPEG, "image/jpg":
		return MediaTypeJPEG
	case MediaTypePNG:
		return MediaTypePNG
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MediaTypePDF
	case ".jpg", ".jpeg":
		return MediaTypeJPEG
	case ".png":
		return MediaTypePNG
	}
	return ""
}

// RasterRegion is an embedded or standalone image together with its
// provenance. Regions live for one request only.
type RasterRegion struct {
	Image image.Image
	// Page is the 1-based page number, 0 when the source does not expose it.
	Page int
	// Index is the position in document order.
	Index int
	// Standalone marks a raw-image upload rather than an embedded PDF image.
	Standalone bool
}

// Document is the normalized form of an uploaded file: one plain-text
// rendering plus every raster region, independent of the source modality.
type Document struct {
	PlainText string
	Regions   []RasterRegion
}

// Normalize determines the document modality and produces its normalized
// form. PDF inputs get their native text layer extracted page by page; when
// that layer is empty the raster regions are OCRed instead. Image inputs are
// OCRed directly.
func (v *Validator) Normalize(ctx context.Context, data []byte, mediaType string) (*Document, error) {
	switch mediaType {
	case MediaTypePDF:
		return v.normalizePDF(ctx, data)
	case MediaTypeJPEG, MediaTypePNG:
		return v.normalizeImage(ctx, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mediaType)
	}
}

func (v *Validator) normalizePDF(ctx context.Context, data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptInput, err)
	}

	var text strings.Builder
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		contentReader, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil || contentReader == nil {
			continue
		}
		contentBytes, err := io.ReadAll(contentReader)
		if err != nil {
			continue
		}
		text.WriteString(textFromPDFContent(string(contentBytes)))
		text.WriteString("\n\n")
	}

	regions, err := embeddedPDFImages(data)
	if err != nil {
		if v.debug {
			log.Printf("Failed to extract embedded images: %v", err)
		}
		regions = nil
	}

	plainText := text.String()
	if strings.TrimSpace(plainText) == "" {
		// Scanned PDFs carry no text layer; the pages are embedded as
		// whole-page images, so OCR the raster regions instead.
		var ocrText strings.Builder
		for _, region := range regions {
			transcript, err := v.recognizer.Recognize(ctx, enhanceForOCR(region.Image))
			if err != nil {
				log.Printf("Warning: OCR failed on embedded image %d: %v", region.Index, err)
				continue
			}
			ocrText.WriteString(transcript)
			ocrText.WriteString("\n")
		}
		plainText = ocrText.String()
	}

	return &Document{PlainText: plainText, Regions: regions}, nil
}

func (v *Validator) normalizeImage(ctx context.Context, data []byte) (*Document, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptInput, err)
	}

	plainText, err := v.recognizer.Recognize(ctx, enhanceForOCR(img))
	if err != nil {
		// Extraction degrades to field absence; the QR scan may still
		// locate the validation URL.
		log.Printf("Warning: OCR failed on image upload: %v", err)
		plainText = ""
	}

	return &Document{
		PlainText: plainText,
		Regions:   []RasterRegion{{Image: img, Index: 0, Standalone: true}},
	}, nil
}

// embeddedPDFImages decodes every image embedded in the PDF, in document
// order. pdfcpu may panic on exotic streams, so recover and report instead.
func embeddedPDFImages(data []byte) (regions []RasterRegion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while extracting PDF images: %v", r)
			regions = nil
		}
	}()

	images, err := pdfimg.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PDF images: %w", err)
	}
	for i, img := range images {
		regions = append(regions, RasterRegion{Image: img, Index: i})
	}
	return regions, nil
}
