// Package extract turns uploaded documents into per-page text.
//
// PDFs take a dual path: the embedded text layer is read directly, and
// pages whose layer is missing or too thin fall back to OCR on the page's
// raster images. Standalone images always go through OCR. Both OCR routes
// run the imageproc preprocessing pipeline first and keep thumbnails of
// every intermediate step.
package extract

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tsawler/tabula/format"

	"github.com/kart-io/docintel/internal/docintel/extract/ocrclient"
	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/pkg/errors"
)

// Supported file types as reported on documents.
const (
	TypePDF  = "pdf"
	TypePNG  = "png"
	TypeJPEG = "jpeg"
	TypeTIFF = "tiff"
	TypeBMP  = "bmp"
	TypeWebP = "webp"
)

// Config tunes extraction behavior.
type Config struct {
	// DigitalMinChars is the minimum trimmed length of a page's embedded
	// text layer for the digital path to win reconciliation.
	DigitalMinChars int
	// ForceOCRPages runs OCR on the first N pages of digital PDFs even
	// when the text layer suffices, so preprocessing snapshots exist for
	// inspection. Reconciliation still picks the winning text.
	ForceOCRPages int
	// CaptureSteps records preprocessing thumbnails on OCR'd pages.
	CaptureSteps bool
	// OCRLanguage is passed to the OCR engine ("eng" when empty).
	OCRLanguage string
}

// DefaultConfig returns the production extraction settings.
func DefaultConfig() Config {
	return Config{
		DigitalMinChars: 50,
		ForceOCRPages:   3,
		CaptureSteps:    true,
		OCRLanguage:     "eng",
	}
}

// PageExtraction is the outcome of extracting one page.
type PageExtraction struct {
	Number        int
	Method        string
	DigitalText   string
	OCRText       string
	BlockCount    int
	SkewAngle     float64
	Steps         []model.StepSnapshot
	FailureReason string
}

// Text returns the reconciliation winner for the page.
func (p *PageExtraction) Text() string {
	if p.Method == model.MethodDigital {
		return p.DigitalText
	}
	return p.OCRText
}

// Failed reports whether the page produced no usable text.
func (p *PageExtraction) Failed() bool {
	return p.FailureReason != ""
}

// Extractor dispatches uploads to the PDF or image path.
type Extractor struct {
	cfg Config
	ocr ocrclient.Engine

	// The Tesseract client holds mutable state per recognition, so calls
	// are serialized.
	ocrMu sync.Mutex
}

// New creates an Extractor. The OCR engine may be nil, in which case pages
// that need OCR are recorded as failed instead of extracted.
func New(cfg Config, engine ocrclient.Engine) *Extractor {
	if cfg.DigitalMinChars <= 0 {
		cfg.DigitalMinChars = 50
	}
	return &Extractor{cfg: cfg, ocr: engine}
}

// DetectType sniffs the upload's magic bytes and returns the normalized
// file type. Extension is never trusted.
func DetectType(data []byte) (string, error) {
	if format.DetectFromMagic(data) == format.PDF {
		return TypePDF, nil
	}
	if t := detectImageMagic(data); t != "" {
		return t, nil
	}
	return "", errors.ErrUnsupportedFileType
}

func detectImageMagic(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	switch {
	case data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G':
		return TypePNG
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return TypeJPEG
	case (data[0] == 'I' && data[1] == 'I' && data[2] == 0x2A && data[3] == 0x00) ||
		(data[0] == 'M' && data[1] == 'M' && data[2] == 0x00 && data[3] == 0x2A):
		return TypeTIFF
	case data[0] == 'B' && data[1] == 'M':
		return TypeBMP
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return TypeWebP
	}
	return ""
}

// reconcile picks the primary method for a PDF page. The digital layer
// wins only when it carries enough trimmed text to be a real layer rather
// than stray artifacts.
func (e *Extractor) reconcile(digital, ocrText string) string {
	if len(strings.TrimSpace(digital)) > e.cfg.DigitalMinChars {
		return model.MethodDigital
	}
	if strings.TrimSpace(ocrText) != "" {
		return model.MethodOCR
	}
	return model.MethodDigital
}

// recognize runs OCR on encoded image data, wrapping engine absence as a
// readable failure reason.
func (e *Extractor) recognize(imageData []byte) (ocrclient.Result, error) {
	if e.ocr == nil {
		return ocrclient.Result{}, ocrclient.ErrOCRNotEnabled
	}
	e.ocrMu.Lock()
	res, err := e.ocr.Recognize(imageData)
	e.ocrMu.Unlock()
	if err != nil {
		return ocrclient.Result{}, fmt.Errorf("ocr: %w", err)
	}
	return res, nil
}
