package imageproc_test

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docintel/internal/docintel/extract/imageproc"
)

// textPage draws dark horizontal bands on a white background, a crude
// stand-in for lines of text.
func textPage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(255)
			if y%10 < 3 {
				v = 20
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestToGray(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	gray := imageproc.ToGray(src)
	assert.Equal(t, 4, gray.Bounds().Dx())
	assert.Equal(t, 4, gray.Bounds().Dy())

	// Gray input passes through untouched.
	g := image.NewGray(image.Rect(0, 0, 2, 2))
	assert.Same(t, g, imageproc.ToGray(g))
}

func TestMedianDenoiseRemovesSpeck(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 9, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	img.SetGray(4, 4, color.Gray{Y: 0})

	out := imageproc.MedianDenoise(img)
	assert.Equal(t, uint8(255), out.GrayAt(4, 4).Y)
}

func TestEqualizeHistogramStretchesContrast(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			// Low-contrast band between 100 and 131.
			img.SetGray(x, y, color.Gray{Y: uint8(100 + (x+y)%32)})
		}
	}

	out := imageproc.EqualizeHistogram(img)
	minV, maxV := uint8(255), uint8(0)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := out.GrayAt(x, y).Y
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}
	assert.Less(t, minV, uint8(50))
	assert.Greater(t, maxV, uint8(200))
}

func TestBinarizeTwoLevels(t *testing.T) {
	out := imageproc.Binarize(textPage(40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			v := out.GrayAt(x, y).Y
			assert.True(t, v == 0 || v == 255, "pixel (%d,%d) = %d", x, y, v)
		}
	}
}

func TestRotateZeroIsIdentity(t *testing.T) {
	src := textPage(20, 20)
	out := imageproc.Rotate(src, 0)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestRotatePreservesBounds(t *testing.T) {
	src := textPage(30, 20)
	out := imageproc.Rotate(src, 7.5)
	assert.Equal(t, src.Bounds().Dx(), out.Bounds().Dx())
	assert.Equal(t, src.Bounds().Dy(), out.Bounds().Dy())
}

func TestEstimateSkewAlignedPage(t *testing.T) {
	angle := imageproc.EstimateSkew(textPage(120, 120))
	assert.InDelta(t, 0, angle, 1.0)
}

func TestProcessCapturesSteps(t *testing.T) {
	res, err := imageproc.Process(textPage(60, 60))
	require.NoError(t, err)
	require.NotNil(t, res.Processed)

	names := make([]string, 0, len(res.Steps))
	for _, s := range res.Steps {
		names = append(names, s.Name)
		decoded, err := base64.StdEncoding.DecodeString(s.Image)
		require.NoError(t, err)
		assert.NotEmpty(t, decoded)
	}
	assert.Equal(t, []string{
		imageproc.StepOriginal,
		imageproc.StepGrayscale,
		imageproc.StepDenoised,
		imageproc.StepContrast,
		imageproc.StepDeskewed,
		imageproc.StepBinarized,
	}, names)
}
