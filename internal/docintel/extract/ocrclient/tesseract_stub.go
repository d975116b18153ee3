//go:build !ocr

package ocrclient

// Tesseract is the stub engine used when OCR support is not compiled in.
type Tesseract struct{}

var _ Engine = (*Tesseract)(nil)

// New returns ErrOCRNotEnabled; rebuild with -tags ocr to enable OCR.
func New(lang string) (*Tesseract, error) {
	return nil, ErrOCRNotEnabled
}

// Recognize returns ErrOCRNotEnabled.
func (t *Tesseract) Recognize(imageData []byte) (Result, error) {
	return Result{}, ErrOCRNotEnabled
}

// Close is a no-op and safe on a nil engine.
func (t *Tesseract) Close() error {
	return nil
}
