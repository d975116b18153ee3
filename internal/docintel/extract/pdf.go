package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/reader"

	"github.com/kart-io/docintel/internal/docintel/extract/imageproc"
	"github.com/kart-io/docintel/internal/model"
)

// PDFDocument is an open PDF ready for per-page extraction. Pages can be
// extracted from multiple goroutines; access to the underlying reader is
// serialized while preprocessing and OCR run outside the lock.
type PDFDocument struct {
	e         *Extractor
	r         *reader.Reader
	pageCount int

	mu sync.Mutex
}

// OpenPDF opens a PDF file for extraction. Close must be called when done.
func (e *Extractor) OpenPDF(path string) (*PDFDocument, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	count, err := r.PageCount()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("read page count: %w", err)
	}
	if count == 0 {
		r.Close()
		return nil, fmt.Errorf("pdf has no pages")
	}
	return &PDFDocument{e: e, r: r, pageCount: count}, nil
}

// PageCount returns the number of pages.
func (d *PDFDocument) PageCount() int {
	return d.pageCount
}

// Close releases the underlying reader.
func (d *PDFDocument) Close() error {
	return d.r.Close()
}

// ExtractPage extracts one page (1-based). Failures are recorded on the
// returned PageExtraction rather than returned as errors, so one bad page
// never aborts the document; only context cancellation is an error.
func (d *PDFDocument) ExtractPage(ctx context.Context, number int) (*PageExtraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page := &PageExtraction{Number: number, Method: model.MethodDigital}

	digital, blockCount, pageImage, err := d.readPage(number)
	if err != nil {
		page.FailureReason = err.Error()
		return page, nil
	}
	page.DigitalText = strings.TrimSpace(digital)
	page.BlockCount = blockCount

	needOCR := len(page.DigitalText) <= d.e.cfg.DigitalMinChars
	forceOCR := number <= d.e.cfg.ForceOCRPages
	if (needOCR || forceOCR) && pageImage != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d.ocrPage(page, pageImage)
	}

	page.Method = d.e.reconcile(page.DigitalText, page.OCRText)
	if page.Text() == "" && page.FailureReason == "" && needOCR {
		page.FailureReason = "no text layer and no usable page image"
	}
	return page, nil
}

// readPage pulls the digital text layer, its layout block count and the
// page's dominant raster image under the reader lock.
func (d *PDFDocument) readPage(number int) (string, int, image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	digital, _, err := tabula.FromReader(d.r).Pages(number).Text()
	if err != nil {
		return "", 0, nil, fmt.Errorf("extract text layer: %w", err)
	}

	// Layout analysis is best effort; a page without recoverable blocks
	// still carries its text layer.
	blockCount := 0
	if blocks, err := tabula.FromReader(d.r).Pages(number).Blocks(); err == nil {
		blockCount = len(blocks)
	}

	pg, err := d.r.GetPage(number - 1)
	if err != nil {
		return digital, blockCount, nil, nil
	}
	images, err := d.r.ExtractPageImages(pg)
	if err != nil || len(images) == 0 {
		return digital, blockCount, nil, nil
	}

	// Scanned PDFs embed one full-page raster; pick the largest image and
	// ignore logos and decorations.
	best := images[0]
	for _, img := range images[1:] {
		if img.Width*img.Height > best.Width*best.Height {
			best = img
		}
	}
	pngData, err := best.ToPNG()
	if err != nil {
		return digital, blockCount, nil, nil
	}
	decoded, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return digital, blockCount, nil, nil
	}
	return digital, blockCount, decoded, nil
}

// ocrPage runs preprocessing and OCR on the page image, filling the OCR
// fields in place. OCR failure becomes the page's failure reason only when
// the digital layer cannot carry the page.
func (d *PDFDocument) ocrPage(page *PageExtraction, img image.Image) {
	res, err := imageproc.Process(img)
	if err != nil {
		page.FailureReason = fmt.Sprintf("preprocess page image: %v", err)
		return
	}
	if d.e.cfg.CaptureSteps {
		page.Steps = res.Steps
	}
	page.SkewAngle = res.SkewAngle

	var buf bytes.Buffer
	if err := png.Encode(&buf, res.Processed); err != nil {
		page.FailureReason = fmt.Sprintf("encode processed image: %v", err)
		return
	}

	ocrRes, err := d.e.recognize(buf.Bytes())
	if err != nil {
		if len(page.DigitalText) <= d.e.cfg.DigitalMinChars {
			page.FailureReason = err.Error()
		}
		return
	}
	page.OCRText = ocrRes.Text
	// Scanned pages have no digital layout; the OCR block count is the
	// only one available.
	if page.BlockCount == 0 {
		page.BlockCount = ocrRes.BlockCount
	}
}
