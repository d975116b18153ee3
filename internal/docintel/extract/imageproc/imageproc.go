// Package imageproc prepares scanned page images for OCR.
//
// The pipeline runs grayscale conversion, median denoising, histogram
// equalization, projection-profile deskew and Otsu binarization, and
// captures a small JPEG thumbnail after each step so callers can expose
// the intermediate stages for inspection.
package imageproc

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/kart-io/docintel/internal/model"
)

// Step names, in pipeline order.
const (
	StepOriginal  = "original"
	StepGrayscale = "grayscale"
	StepDenoised  = "denoised"
	StepContrast  = "contrast_enhanced"
	StepDeskewed  = "deskewed"
	StepBinarized = "binarized"
)

const (
	thumbnailMaxDim = 400
	thumbnailQual   = 70

	// Deskew is skipped when the estimated angle exceeds this bound; large
	// estimates on real scans are almost always projection artifacts, and
	// rotating by them destroys the page.
	maxSkewDegrees = 15.0

	skewSearchDegrees = 15.0
	skewStepDegrees   = 0.5
	skewEstimateDim   = 600
)

// Result holds the OCR-ready image and the captured intermediate steps.
type Result struct {
	// Processed is the binarized image handed to OCR.
	Processed *image.Gray
	// SkewAngle is the applied correction in degrees (0 when skipped).
	SkewAngle float64
	// Steps are base64 JPEG thumbnails keyed by pipeline order.
	Steps []model.StepSnapshot
}

// Process runs the full preprocessing pipeline on a page image.
func Process(src image.Image) (*Result, error) {
	res := &Result{}
	capture := func(name string, img image.Image) error {
		thumb, err := thumbnail(img)
		if err != nil {
			return err
		}
		res.Steps = append(res.Steps, model.StepSnapshot{Name: name, Image: thumb})
		return nil
	}

	if err := capture(StepOriginal, src); err != nil {
		return nil, err
	}

	gray := ToGray(src)
	if err := capture(StepGrayscale, gray); err != nil {
		return nil, err
	}

	denoised := MedianDenoise(gray)
	if err := capture(StepDenoised, denoised); err != nil {
		return nil, err
	}

	contrasted := EqualizeHistogram(denoised)
	if err := capture(StepContrast, contrasted); err != nil {
		return nil, err
	}

	deskewed := contrasted
	angle := EstimateSkew(contrasted)
	if angle != 0 && math.Abs(angle) <= maxSkewDegrees {
		deskewed = Rotate(contrasted, -angle)
		res.SkewAngle = angle
	}
	if err := capture(StepDeskewed, deskewed); err != nil {
		return nil, err
	}

	binarized := Binarize(deskewed)
	if err := capture(StepBinarized, binarized); err != nil {
		return nil, err
	}

	res.Processed = binarized
	return res, nil
}

// ToGray converts any image to 8-bit grayscale.
func ToGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, b.Min, xdraw.Src)
	return dst
}

// MedianDenoise applies a 3x3 median filter, which removes salt-and-pepper
// speckle typical of scans without blurring character edges.
func MedianDenoise(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	var window [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					window[n] = src.GrayAt(b.Min.X+nx, b.Min.Y+ny).Y
					n++
				}
			}
			dst.SetGray(x, y, color.Gray{Y: median(window[:n])})
		}
	}
	return dst
}

// EqualizeHistogram stretches the intensity distribution to the full range,
// improving contrast on faded scans.
func EqualizeHistogram(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	total := w * h
	if total == 0 {
		return src
	}

	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[src.GrayAt(x, y).Y]++
		}
	}

	var lut [256]uint8
	cum := 0
	for i := 0; i < 256; i++ {
		cum += hist[i]
		lut[i] = uint8(math.Round(255 * float64(cum) / float64(total)))
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetGray(x, y, color.Gray{Y: lut[src.GrayAt(b.Min.X+x, b.Min.Y+y).Y]})
		}
	}
	return dst
}

// EstimateSkew searches for the rotation angle that maximizes the variance
// of horizontal projection profiles, the classic text-line alignment
// heuristic. The search runs on a downscaled copy to bound cost. Returns
// degrees; positive means the page content is rotated counterclockwise.
func EstimateSkew(src *image.Gray) float64 {
	small := downscaleGray(src, skewEstimateDim)
	bin := Binarize(small)

	bestAngle, bestScore := 0.0, -1.0
	for a := -skewSearchDegrees; a <= skewSearchDegrees; a += skewStepDegrees {
		score := projectionVariance(bin, a)
		if score > bestScore {
			bestScore = score
			bestAngle = a
		}
	}
	if math.Abs(bestAngle) < skewStepDegrees {
		return 0
	}
	return bestAngle
}

// Rotate rotates the image by the given angle in degrees around its center,
// filling uncovered areas with white.
func Rotate(src *image.Gray, degrees float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	cx, cy := float64(w)/2, float64(h)/2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Inverse mapping: sample the source pixel that lands here.
			dx, dy := float64(x)-cx, float64(y)-cy
			sx := int(math.Round(cos*dx + sin*dy + cx))
			sy := int(math.Round(-sin*dx + cos*dy + cy))
			if sx < 0 || sy < 0 || sx >= w || sy >= h {
				dst.SetGray(x, y, color.Gray{Y: 255})
				continue
			}
			dst.SetGray(x, y, src.GrayAt(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}

// Binarize applies Otsu global thresholding.
func Binarize(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	threshold := otsuThreshold(src)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if src.GrayAt(b.Min.X+x, b.Min.Y+y).Y > threshold {
				v = 255
			}
			dst.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return dst
}

func otsuThreshold(src *image.Gray) uint8 {
	b := src.Bounds()
	var hist [256]int
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[src.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return 128
	}

	sum := 0.0
	for i, c := range hist {
		sum += float64(i * c)
	}

	sumB, wB := 0.0, 0
	bestVar, best := 0.0, 128
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = t
		}
	}
	return uint8(best)
}

// projectionVariance rotates the binary image and measures the variance of
// per-row dark-pixel counts. Well-aligned text lines give sharp peaks and
// valleys, so higher variance means better alignment.
func projectionVariance(bin *image.Gray, degrees float64) float64 {
	rotated := bin
	if degrees != 0 {
		rotated = Rotate(bin, degrees)
	}
	b := rotated.Bounds()
	w, h := b.Dx(), b.Dy()
	if h == 0 {
		return 0
	}

	rows := make([]float64, h)
	mean := 0.0
	for y := 0; y < h; y++ {
		count := 0
		for x := 0; x < w; x++ {
			if rotated.GrayAt(b.Min.X+x, b.Min.Y+y).Y < 128 {
				count++
			}
		}
		rows[y] = float64(count)
		mean += rows[y]
	}
	mean /= float64(h)

	variance := 0.0
	for _, v := range rows {
		d := v - mean
		variance += d * d
	}
	return variance / float64(h)
}

func downscaleGray(src *image.Gray, maxDim int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}
	scale := float64(maxDim) / float64(max(w, h))
	nw, nh := max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
	dst := image.NewGray(image.Rect(0, 0, nw, nh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// thumbnail renders the image as a base64 JPEG bounded to thumbnailMaxDim
// on the longest side.
func thumbnail(src image.Image) (string, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := src
	if w > thumbnailMaxDim || h > thumbnailMaxDim {
		scale := float64(thumbnailMaxDim) / float64(max(w, h))
		nw, nh := max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
		scaled := image.NewRGBA(image.Rect(0, 0, nw, nh))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, b, xdraw.Src, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQual}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func median(v []uint8) uint8 {
	// Insertion sort; windows are at most 9 elements.
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
	return v[len(v)/2]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
