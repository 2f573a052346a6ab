package captcha

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// cross is the 3x3 elliptical structuring element.
var cross = []image.Point{{0, 0}, {-1, 0}, {1, 0}, {0, -1}, {0, 1}}

func inBounds(b image.Rectangle, x, y int) bool {
	return x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y
}

// threshold sets every channel above level to 255 and every other channel to 0.
func threshold(src *image.NRGBA, level uint8) *image.NRGBA {
	dst := imaging.Clone(src)
	for i := 0; i < len(dst.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			if dst.Pix[i+c] > level {
				dst.Pix[i+c] = 255
			} else {
				dst.Pix[i+c] = 0
			}
		}
	}
	return dst
}

// colorMask marks the pixels whose color is exactly rgb.
func colorMask(src *image.NRGBA, rgb [3]uint8) []bool {
	mask := make([]bool, src.Rect.Dx()*src.Rect.Dy())
	for i := range mask {
		p := src.Pix[i*4 : i*4+3]
		mask[i] = p[0] == rgb[0] && p[1] == rgb[1] && p[2] == rgb[2]
	}
	return mask
}

func dilateMask(mask []bool, b image.Rectangle) []bool {
	w := b.Dx()
	out := make([]bool, len(mask))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < w; x++ {
			for _, d := range cross {
				nx, ny := x+d.X, y+d.Y
				if nx >= 0 && nx < w && ny >= 0 && ny < b.Dy() && mask[ny*w+nx] {
					out[y*w+x] = true
					break
				}
			}
		}
	}
	return out
}

// dilate replaces every channel by its maximum over the structuring element.
func dilate(src *image.NRGBA) *image.NRGBA {
	b := src.Rect
	dst := imaging.Clone(src)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := dst.PixOffset(x, y)
			for _, d := range cross {
				nx, ny := x+d.X, y+d.Y
				if !inBounds(b, nx, ny) {
					continue
				}
				j := src.PixOffset(nx, ny)
				for c := 0; c < 3; c++ {
					if src.Pix[j+c] > dst.Pix[i+c] {
						dst.Pix[i+c] = src.Pix[j+c]
					}
				}
			}
		}
	}
	return dst
}

// inpaint fills the masked pixels from the outside in, each pixel takes the
// inverse squared distance weighted mean of the known pixels within radius.
func inpaint(src *image.NRGBA, mask []bool, radius int) *image.NRGBA {
	dst := imaging.Clone(src)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	unknown := make([]bool, len(mask))
	copy(unknown, mask)

	for {
		type fill struct {
			idx int
			rgb [3]uint8
		}
		var frontier []fill

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if !unknown[y*w+x] || !hasKnownNeighbor(unknown, w, h, x, y) {
					continue
				}
				var sum [3]float64
				var weights float64
				for dy := -radius; dy <= radius; dy++ {
					for dx := -radius; dx <= radius; dx++ {
						nx, ny := x+dx, y+dy
						if nx < 0 || nx >= w || ny < 0 || ny >= h || unknown[ny*w+nx] {
							continue
						}
						dist := float64(dx*dx + dy*dy)
						if dist > float64(radius*radius) {
							continue
						}
						weight := 1 / dist
						j := (ny*w + nx) * 4
						for c := 0; c < 3; c++ {
							sum[c] += weight * float64(dst.Pix[j+c])
						}
						weights += weight
					}
				}
				f := fill{idx: y*w + x}
				for c := 0; c < 3; c++ {
					f.rgb[c] = uint8(math.Round(sum[c] / weights))
				}
				frontier = append(frontier, f)
			}
		}

		if len(frontier) == 0 {
			return dst
		}
		for _, f := range frontier {
			copy(dst.Pix[f.idx*4:f.idx*4+3], f.rgb[:])
			unknown[f.idx] = false
		}
	}
}

func hasKnownNeighbor(unknown []bool, w, h, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if (dx != 0 || dy != 0) && nx >= 0 && nx < w && ny >= 0 && ny < h && !unknown[ny*w+nx] {
				return true
			}
		}
	}
	return false
}

// bilateral is an edge preserving smoothing filter, the color distance is the sum of
// the absolute channel differences.
func bilateral(src *image.NRGBA, radius int, sigmaColor, sigmaSpace float64) *image.NRGBA {
	b := src.Rect
	dst := imaging.Clone(src)
	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := src.PixOffset(x, y)
			var sum [3]float64
			var weights float64
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					if dx*dx+dy*dy > radius*radius || !inBounds(b, x+dx, y+dy) {
						continue
					}
					j := src.PixOffset(x+dx, y+dy)
					diff := 0.0
					for c := 0; c < 3; c++ {
						diff += math.Abs(float64(src.Pix[i+c]) - float64(src.Pix[j+c]))
					}
					weight := math.Exp(float64(dx*dx+dy*dy)*spaceCoeff + diff*diff*colorCoeff)
					for c := 0; c < 3; c++ {
						sum[c] += weight * float64(src.Pix[j+c])
					}
					weights += weight
				}
			}
			for c := 0; c < 3; c++ {
				dst.Pix[i+c] = uint8(math.Round(sum[c] / weights))
			}
		}
	}
	return dst
}

// otsuLevel picks the threshold that maximizes the between class variance of the
// red channel of a grayscale image.
func otsuLevel(gray *image.NRGBA) uint8 {
	var histogram [256]int
	total := 0
	for i := 0; i < len(gray.Pix); i += 4 {
		histogram[gray.Pix[i]]++
		total++
	}

	sumAll := 0.0
	for v, n := range histogram {
		sumAll += float64(v * n)
	}

	var best uint8
	bestVariance := -1.0
	weightBg, sumBg := 0, 0.0
	for t := 0; t < 256; t++ {
		weightBg += histogram[t]
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBg += float64(t * histogram[t])
		meanBg := sumBg / float64(weightBg)
		meanFg := (sumAll - sumBg) / float64(weightFg)
		variance := float64(weightBg) * float64(weightFg) * (meanBg - meanFg) * (meanBg - meanFg)
		if variance > bestVariance {
			bestVariance = variance
			best = uint8(t)
		}
	}
	return best
}

// binarize maps a grayscale image onto black and white around level.
func binarize(gray *image.NRGBA, level uint8) *image.Gray {
	b := gray.Rect
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i := 0; i < len(dst.Pix); i++ {
		if gray.Pix[i*4] > level {
			dst.Pix[i] = 255
		}
	}
	return dst
}
