package biz_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docintel/internal/model"
	apperrors "github.com/kart-io/docintel/pkg/errors"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIngestRejectsUnsupportedContent(t *testing.T) {
	svc, st := newTestService(t)

	_, err := svc.Ingest(context.Background(), "notes.txt", []byte("plain text, not a document"))
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFileType)

	// Nothing was recorded for the rejected upload.
	docs, err := st.Docs().ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestImageWithoutOCRFailsVisibly(t *testing.T) {
	svc, st := newTestService(t)

	// The service under test has no OCR engine, so an image upload cannot
	// yield text; the document row must survive in error state.
	_, err := svc.Ingest(context.Background(), "scan.png", pngBytes(t))
	require.Error(t, err)

	docs, listErr := st.Docs().ListDocuments(context.Background())
	require.NoError(t, listErr)
	require.Len(t, docs, 1)
	assert.Equal(t, model.StatusError, docs[0].Status)
	assert.Equal(t, "scan.png", docs[0].Filename)
	assert.NotEmpty(t, docs[0].Message)
}
