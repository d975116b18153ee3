// Package ocrclient wraps the Tesseract OCR engine for scanned-page text
// recovery.
//
// The real engine is behind the "ocr" build tag because gosseract needs
// Tesseract's C libraries at build time. Without the tag every call
// returns ErrOCRNotEnabled, which the extraction layer surfaces as a
// page-level failure instead of aborting the document.
package ocrclient

import "errors"

// ErrOCRNotEnabled is returned when OCR is called but support was not
// compiled in. Rebuild with -tags ocr to enable it.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Result is the outcome of recognizing one page image.
type Result struct {
	// Text is the recognized text, whitespace-trimmed.
	Text string
	// BlockCount is the number of text blocks Tesseract segmented the
	// page into. Zero when layout analysis is unavailable.
	BlockCount int
}

// Engine performs OCR on page images.
type Engine interface {
	// Recognize runs OCR on encoded image data (PNG or JPEG).
	Recognize(imageData []byte) (Result, error)
	// Close releases engine resources.
	Close() error
}
