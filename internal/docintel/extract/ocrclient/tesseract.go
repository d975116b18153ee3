//go:build ocr

package ocrclient

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract is the gosseract-backed OCR engine.
type Tesseract struct {
	client *gosseract.Client
}

var _ Engine = (*Tesseract)(nil)

// New creates a Tesseract engine for the given language ("eng" when empty).
// Close must be called to release engine resources.
func New(lang string) (*Tesseract, error) {
	client := gosseract.NewClient()
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("set OCR language %q: %w", lang, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	return &Tesseract{client: client}, nil
}

// Recognize runs OCR on encoded image data and counts the segmented text
// blocks.
func (t *Tesseract) Recognize(imageData []byte) (Result, error) {
	if err := t.client.SetImageFromBytes(imageData); err != nil {
		return Result{}, fmt.Errorf("set OCR image: %w", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize text: %w", err)
	}

	res := Result{Text: strings.TrimSpace(text)}
	if boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_BLOCK); err == nil {
		res.BlockCount = len(boxes)
	}
	return res, nil
}

// Close releases Tesseract resources.
func (t *Tesseract) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}
