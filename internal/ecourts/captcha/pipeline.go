package captcha

import (
	"image"

	"github.com/disintegration/imaging"
)

const (
	thresholdRatio = 0.4
	maxIntensity   = 255
	inpaintRadius  = 7
	// gaussian sigma of a 5x5 kernel
	blurSigma = 1.1

	bilateralRadius     = 2
	bilateralSigmaColor = 75
	bilateralSigmaSpace = 75
)

// noise lines are drawn in this exact gray.
var lineColor = [3]uint8{0x70, 0x70, 0x70}

// the glyphs sit in this window of the challenge.
var cropWindow = image.Rect(27, 15, 190, 65)

// Preprocess removes the distractor lines from a challenge and returns the black and
// white glyph window handed to ocr.
func Preprocess(src image.Image) image.Image {
	img := imaging.Clone(src)

	thresholded := threshold(img, uint8(maxIntensity*thresholdRatio))
	lines := dilateMask(colorMask(img, lineColor), img.Rect)

	dst := inpaint(thresholded, lines, inpaintRadius)
	dst = dilate(dst)
	dst = imaging.Blur(dst, blurSigma)
	dst = bilateral(dst, bilateralRadius, bilateralSigmaColor, bilateralSigmaSpace)

	gray := imaging.Grayscale(dst)
	bw := binarize(gray, otsuLevel(gray))

	return imaging.Crop(bw, cropWindow)
}
