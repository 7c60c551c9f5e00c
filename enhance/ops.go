package enhance

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// rotate turns the image by angle degrees about its center, keeping the
// canvas size and filling uncovered corners with white.
func rotate(src *image.RGBA, angleDeg float64) *image.RGBA {
	rad := angleDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	b := src.Bounds()
	cx, cy := float64(b.Dx())/2, float64(b.Dy())/2

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)

	// Rotation about the center: translate, rotate, translate back.
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	xdraw.BiLinear.Transform(dst, m, src, b, xdraw.Over, nil)
	return dst
}

// normalizeBrightness rescales luminance toward the 8-bit midpoint.
func normalizeBrightness(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	var sum float64
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := src.PixOffset(x, y)
			sum += 0.299*float64(src.Pix[i]) + 0.587*float64(src.Pix[i+1]) + 0.114*float64(src.Pix[i+2])
			n++
		}
	}
	mean := sum / float64(n)
	if mean <= 0 {
		return src
	}
	factor := 127.5 / mean

	dst := image.NewRGBA(b)
	for i := 0; i < len(src.Pix); i += 4 {
		dst.Pix[i] = clamp8(float64(src.Pix[i]) * factor)
		dst.Pix[i+1] = clamp8(float64(src.Pix[i+1]) * factor)
		dst.Pix[i+2] = clamp8(float64(src.Pix[i+2]) * factor)
		dst.Pix[i+3] = src.Pix[i+3]
	}
	return dst
}

// denoise runs a light edge-preserving pass: each pixel is averaged with the
// 8-neighbors whose luminance lies within a small delta, so noise in flat
// regions is smoothed while edges stay untouched.
func denoise(src *image.RGBA) *image.RGBA {
	const delta = 24
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	lum := func(i int) int {
		return (299*int(src.Pix[i]) + 587*int(src.Pix[i+1]) + 114*int(src.Pix[i+2])) / 1000
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ci := src.PixOffset(x, y)
			cl := lum(ci)
			var r, g, bl, n int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					ni := src.PixOffset(nx, ny)
					if d := lum(ni) - cl; d < -delta || d > delta {
						continue
					}
					r += int(src.Pix[ni])
					g += int(src.Pix[ni+1])
					bl += int(src.Pix[ni+2])
					n++
				}
			}
			di := dst.PixOffset(x, y)
			dst.Pix[di] = uint8(r / n)
			dst.Pix[di+1] = uint8(g / n)
			dst.Pix[di+2] = uint8(bl / n)
			dst.Pix[di+3] = src.Pix[ci+3]
		}
	}
	return dst
}

const (
	claheTiles = 8
	// claheClip caps any histogram bin at this multiple of the uniform
	// bin height; the excess is redistributed, which bounds local
	// contrast amplification.
	claheClip = 4.0
)

// equalizeContrast performs tile-based adaptive histogram equalization on
// the luminance channel and applies the resulting per-pixel gain to all
// color channels. Tile mappings are bilinearly interpolated, the standard
// CLAHE construction.
func equalizeContrast(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	lum := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(x, y)
			lum[y*w+x] = uint8((299*int(src.Pix[i]) + 587*int(src.Pix[i+1]) + 114*int(src.Pix[i+2])) / 1000)
		}
	}

	// Per-tile clipped CDF lookup tables.
	maps := make([][claheTiles][256]uint8, claheTiles)
	for ty := 0; ty < claheTiles; ty++ {
		for tx := 0; tx < claheTiles; tx++ {
			maps[ty][tx] = tileMapping(lum, w, h, tx, ty)
		}
	}

	tileW := float64(w) / claheTiles
	tileH := float64(h) / claheTiles
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := lum[y*w+x]

			// Position relative to tile centers.
			fx := (float64(x)+0.5)/tileW - 0.5
			fy := (float64(y)+0.5)/tileH - 0.5
			tx0 := int(math.Floor(fx))
			ty0 := int(math.Floor(fy))
			wx := fx - float64(tx0)
			wy := fy - float64(ty0)
			tx1, ty1 := tx0+1, ty0+1
			tx0, ty0 = clampTile(tx0), clampTile(ty0)
			tx1, ty1 = clampTile(tx1), clampTile(ty1)

			mapped := (1-wy)*((1-wx)*float64(maps[ty0][tx0][v])+wx*float64(maps[ty0][tx1][v])) +
				wy*((1-wx)*float64(maps[ty1][tx0][v])+wx*float64(maps[ty1][tx1][v]))

			gain := 1.0
			if v > 0 {
				gain = mapped / float64(v)
			}
			si := src.PixOffset(x, y)
			di := dst.PixOffset(x, y)
			dst.Pix[di] = clamp8(float64(src.Pix[si]) * gain)
			dst.Pix[di+1] = clamp8(float64(src.Pix[si+1]) * gain)
			dst.Pix[di+2] = clamp8(float64(src.Pix[si+2]) * gain)
			dst.Pix[di+3] = src.Pix[si+3]
		}
	}
	return dst
}

func clampTile(t int) int {
	if t < 0 {
		return 0
	}
	if t >= claheTiles {
		return claheTiles - 1
	}
	return t
}

func tileMapping(lum []uint8, w, h, tx, ty int) [256]uint8 {
	x0, x1 := tx*w/claheTiles, (tx+1)*w/claheTiles
	y0, y1 := ty*h/claheTiles, (ty+1)*h/claheTiles

	var hist [256]float64
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[lum[y*w+x]]++
			n++
		}
	}
	if n == 0 {
		var identity [256]uint8
		for i := range identity {
			identity[i] = uint8(i)
		}
		return identity
	}

	// Clip and redistribute.
	limit := claheClip * float64(n) / 256
	var excess float64
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}
	share := excess / 256
	for i := range hist {
		hist[i] += share
	}

	var mapping [256]uint8
	var cdf float64
	for i := range hist {
		cdf += hist[i]
		mapping[i] = clamp8(cdf / float64(n) * 255)
	}
	return mapping
}
