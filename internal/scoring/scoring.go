package scoring

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Side is the edge length of the normalized comparison buffer. Both images
// are stretched (non-proportionally) to Side x Side before comparison so the
// score is independent of the original resolutions.
const Side = 256

// DefaultThreshold is the perceptual distance above which a pixel pair counts
// as differing, on a 0..1 scale of the maximum possible delta.
const DefaultThreshold = 0.15

// maxDelta is the largest possible luminance-weighted YIQ distance between
// two opaque pixels.
const maxDelta = 35215.0

var ErrDecode = errors.New("image decode failed")

// Engine computes a 0..100 perceptual similarity between two images.
// It is stateless apart from its threshold and safe for concurrent use.
type Engine struct {
	Threshold float64
}

func NewEngine() *Engine {
	return &Engine{Threshold: DefaultThreshold}
}

// Score decodes both images into Side x Side pixel buffers and returns
// 100 * (1 - differing/total), rounded and clamped to [0,100]. The metric is
// symmetric and deterministic; identical decoded buffers score 100.
func (e *Engine) Score(refBytes, candBytes []byte) (int, error) {
	ref, err := decode(refBytes)
	if err != nil {
		return 0, err
	}
	cand, err := decode(candBytes)
	if err != nil {
		return 0, err
	}

	crit := maxDelta * e.Threshold * e.Threshold
	differing := 0
	for yy := 0; yy < Side; yy++ {
		for xx := 0; xx < Side; xx++ {
			d := colorDelta(ref, cand, xx, yy)
			if d <= crit {
				continue
			}
			// Resampling artifacts on high-contrast edges are not real
			// differences; skip pixels that look anti-aliased in both images.
			if antialiased(ref, xx, yy, cand) || antialiased(cand, xx, yy, ref) {
				continue
			}
			differing++
		}
	}

	total := float64(Side * Side)
	sim := int(math.Round(100 * (1 - float64(differing)/total)))
	if sim < 0 {
		sim = 0
	}
	return sim, nil
}

// decode turns raw bytes into a normalized Side x Side NRGBA buffer,
// stretching without preserving aspect ratio.
func decode(b []byte) (*image.NRGBA, error) {
	src, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-size %s image", ErrDecode, format)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, Side, Side))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)
	return dst, nil
}

// pixel returns the color at (x, y) blended over white, as 0..255 floats.
func pixel(img *image.NRGBA, x, y int) (r, g, b float64) {
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+4 : i+4]
	r, g, b = float64(p[0]), float64(p[1]), float64(p[2])
	if p[3] < 255 {
		a := float64(p[3]) / 255
		r = 255 + (r-255)*a
		g = 255 + (g-255)*a
		b = 255 + (b-255)*a
	}
	return r, g, b
}

func rgb2y(r, g, b float64) float64 { return r*0.29889531 + g*0.58662247 + b*0.11448223 }
func rgb2i(r, g, b float64) float64 { return r*0.59597799 - g*0.27417610 - b*0.32180189 }
func rgb2q(r, g, b float64) float64 { return r*0.21147017 - g*0.52261711 + b*0.31114694 }

// colorDelta is the squared distance between two pixels in YIQ space, with
// the luminance axis weighted heaviest so brightness differences dominate
// over hue noise.
func colorDelta(a, b *image.NRGBA, x, y int) float64 {
	r1, g1, b1 := pixel(a, x, y)
	r2, g2, b2 := pixel(b, x, y)
	dy := rgb2y(r1, g1, b1) - rgb2y(r2, g2, b2)
	di := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	dq := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)
	return 0.5053*dy*dy + 0.299*di*di + 0.1957*dq*dq
}

// brightnessDelta is the signed luminance difference between (x1,y1) and
// (x2,y2) within one image.
func brightnessDelta(img *image.NRGBA, x1, y1, x2, y2 int) float64 {
	r1, g1, b1 := pixel(img, x1, y1)
	r2, g2, b2 := pixel(img, x2, y2)
	return rgb2y(r1, g1, b1) - rgb2y(r2, g2, b2)
}

// antialiased reports whether the pixel at (x, y) in img looks like an
// anti-aliasing artifact: it sits between a darker and a brighter neighbor,
// and the extreme neighbor belongs to a larger flat region in both images.
func antialiased(img *image.NRGBA, x, y int, other *image.NRGBA) bool {
	zeroes := 0
	if x == 0 || y == 0 || x == Side-1 || y == Side-1 {
		zeroes++
	}
	var min, max float64
	var minX, minY, maxX, maxY int

	for ny := y - 1; ny <= y+1; ny++ {
		for nx := x - 1; nx <= x+1; nx++ {
			if nx == x && ny == y {
				continue
			}
			if nx < 0 || ny < 0 || nx >= Side || ny >= Side {
				continue
			}
			delta := brightnessDelta(img, x, y, nx, ny)
			switch {
			case delta == 0:
				zeroes++
				if zeroes > 2 {
					return false
				}
			case delta < min:
				min = delta
				minX, minY = nx, ny
			case delta > max:
				max = delta
				maxX, maxY = nx, ny
			}
		}
	}

	// needs both a darker and a brighter neighbor
	if min == 0 || max == 0 {
		return false
	}
	return (hasManySiblings(img, minX, minY) && hasManySiblings(other, minX, minY)) ||
		(hasManySiblings(img, maxX, maxY) && hasManySiblings(other, maxX, maxY))
}

// hasManySiblings reports whether at least 3 of the pixel's neighbors share
// its exact color, i.e. it belongs to a flat region rather than an edge.
func hasManySiblings(img *image.NRGBA, x, y int) bool {
	zeroes := 0
	if x == 0 || y == 0 || x == Side-1 || y == Side-1 {
		zeroes++
	}
	r, g, b := pixel(img, x, y)
	for ny := y - 1; ny <= y+1; ny++ {
		for nx := x - 1; nx <= x+1; nx++ {
			if nx == x && ny == y {
				continue
			}
			if nx < 0 || ny < 0 || nx >= Side || ny >= Side {
				continue
			}
			nr, ng, nb := pixel(img, nx, ny)
			if nr == r && ng == g && nb == b {
				zeroes++
			}
			if zeroes > 2 {
				return true
			}
		}
	}
	return false
}
