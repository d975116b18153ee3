package extract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kart-io/docintel/internal/docintel/extract/imageproc"
	"github.com/kart-io/docintel/internal/model"
)

// ExtractImage treats an uploaded image as a single scanned page: there is
// no digital path, so the preprocessed image always goes through OCR.
func (e *Extractor) ExtractImage(ctx context.Context, data []byte) (*PageExtraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page := &PageExtraction{Number: 1, Method: model.MethodOCR}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		page.FailureReason = fmt.Sprintf("decode image: %v", err)
		return page, nil
	}

	res, err := imageproc.Process(src)
	if err != nil {
		page.FailureReason = fmt.Sprintf("preprocess image: %v", err)
		return page, nil
	}
	if e.cfg.CaptureSteps {
		page.Steps = res.Steps
	}
	page.SkewAngle = res.SkewAngle

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, res.Processed); err != nil {
		page.FailureReason = fmt.Sprintf("encode processed image: %v", err)
		return page, nil
	}

	ocrRes, err := e.recognize(buf.Bytes())
	if err != nil {
		page.FailureReason = err.Error()
		return page, nil
	}
	page.OCRText = ocrRes.Text
	page.BlockCount = ocrRes.BlockCount
	if page.OCRText == "" {
		page.FailureReason = "no text recognized in image"
	}
	return page, nil
}
