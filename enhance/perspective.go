package enhance

import (
	"image"
	"math"
)

type point struct{ x, y float64 }

// boundaryQuad is a detected document boundary, corners in clockwise order
// starting top-left.
type boundaryQuad struct {
	tl, tr, br, bl point
}

// deviation measures how far the quad departs from its own bounding
// rectangle, as a fraction of the image diagonal. Zero means perfectly
// rectangular.
func (q boundaryQuad) deviation(bounds image.Rectangle) float64 {
	minX := math.Min(q.tl.x, q.bl.x)
	maxX := math.Max(q.tr.x, q.br.x)
	minY := math.Min(q.tl.y, q.tr.y)
	maxY := math.Max(q.bl.y, q.br.y)

	d := 0.0
	for _, pair := range [][2]point{
		{q.tl, {minX, minY}},
		{q.tr, {maxX, minY}},
		{q.br, {maxX, maxY}},
		{q.bl, {minX, maxY}},
	} {
		d = math.Max(d, math.Hypot(pair[0].x-pair[1].x, pair[0].y-pair[1].y))
	}
	diag := math.Hypot(float64(bounds.Dx()), float64(bounds.Dy()))
	return d / diag
}

// detectBoundary binarizes the image with an Otsu threshold, treats the
// bright region as the document, and takes its extreme points as corners.
// Confidence is the bright fill ratio inside the quad; callers skip the
// correction when it is low rather than warp along a guessed boundary.
func detectBoundary(gray *image.Gray) (boundaryQuad, float64, bool) {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	thr := otsu(gray)

	var q boundaryQuad
	minSum, maxSum := math.MaxFloat64, -math.MaxFloat64
	minDiff, maxDiff := math.MaxFloat64, -math.MaxFloat64
	bright := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if gray.GrayAt(x, y).Y < thr {
				continue
			}
			bright++
			fx, fy := float64(x), float64(y)
			if fx+fy < minSum {
				minSum, q.tl = fx+fy, point{fx, fy}
			}
			if fx+fy > maxSum {
				maxSum, q.br = fx+fy, point{fx, fy}
			}
			if fx-fy > maxDiff {
				maxDiff, q.tr = fx-fy, point{fx, fy}
			}
			if fx-fy < minDiff {
				minDiff, q.bl = fx-fy, point{fx, fy}
			}
		}
	}
	if bright == 0 {
		return boundaryQuad{}, 0, false
	}

	area := quadArea(q)
	if area < 0.3*float64(w*h) {
		// The bright region is too small to be the document face.
		return boundaryQuad{}, 0, false
	}
	conf := float64(bright) / area
	if conf > 1 {
		conf = 1
	}
	return q, conf, true
}

func quadArea(q boundaryQuad) float64 {
	// Shoelace over tl, tr, br, bl.
	pts := []point{q.tl, q.tr, q.br, q.bl}
	var s float64
	for i := range pts {
		j := (i + 1) % len(pts)
		s += pts[i].x*pts[j].y - pts[j].x*pts[i].y
	}
	return math.Abs(s) / 2
}

func otsu(gray *image.Gray) uint8 {
	var hist [256]int
	for _, v := range gray.Pix {
		hist[v]++
	}
	total := len(gray.Pix)

	var sumAll float64
	for v, c := range hist {
		sumAll += float64(v) * float64(c)
	}

	var sumB, wB float64
	bestVar, best := -1.0, 127
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar, best = between, t
		}
	}
	return uint8(best)
}

// warpQuad maps the detected quad onto the full canvas with an inverse
// bilinear parametrization, resampling the source bilinearly. Output
// dimensions equal the input's, so the aspect ratio is preserved.
func warpQuad(src *image.RGBA, q boundaryQuad) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		v := (float64(y) + 0.5) / float64(h)
		for x := 0; x < w; x++ {
			u := (float64(x) + 0.5) / float64(w)
			sx := (1-u)*(1-v)*q.tl.x + u*(1-v)*q.tr.x + u*v*q.br.x + (1-u)*v*q.bl.x
			sy := (1-u)*(1-v)*q.tl.y + u*(1-v)*q.tr.y + u*v*q.br.y + (1-u)*v*q.bl.y
			r, g, bl, a := sampleBilinear(src, sx, sy)
			i := dst.PixOffset(x, y)
			dst.Pix[i] = r
			dst.Pix[i+1] = g
			dst.Pix[i+2] = bl
			dst.Pix[i+3] = a
		}
	}
	return dst
}

func sampleBilinear(src *image.RGBA, x, y float64) (r, g, b, a uint8) {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	px := func(xi, yi int) (float64, float64, float64, float64) {
		if xi < 0 {
			xi = 0
		}
		if yi < 0 {
			yi = 0
		}
		if xi >= w {
			xi = w - 1
		}
		if yi >= h {
			yi = h - 1
		}
		i := src.PixOffset(xi, yi)
		return float64(src.Pix[i]), float64(src.Pix[i+1]), float64(src.Pix[i+2]), float64(src.Pix[i+3])
	}
	r00, g00, b00, a00 := px(x0, y0)
	r10, g10, b10, a10 := px(x0+1, y0)
	r01, g01, b01, a01 := px(x0, y0+1)
	r11, g11, b11, a11 := px(x0+1, y0+1)

	lerp2 := func(v00, v10, v01, v11 float64) uint8 {
		top := v00*(1-fx) + v10*fx
		bot := v01*(1-fx) + v11*fx
		return clamp8(top*(1-fy) + bot*fy)
	}
	return lerp2(r00, r10, r01, r11), lerp2(g00, g10, g01, g11), lerp2(b00, b10, b01, b11), lerp2(a00, a10, a01, a11)
}
