package quality

import (
	"image"
	"math"
)

// Blur is measured by three independent estimators, each normalized to
// 0..100, combined by taking the minimum: a document is only as sharp as its
// weakest measurement, so one method cannot mask blur another detects.
//
//   - Laplacian variance: spatial-domain second-derivative spread.
//   - Gradient energy: mean squared Sobel magnitude.
//   - High-frequency ratio: share of spectral energy above a radius cutoff
//     in a downsampled frequency transform.
//
// The frequency estimator needs a freqWindow-wide sampling window; on images
// smaller than that it is skipped and the metric is flagged as degraded.
func (a *Assessor) blur(gray *image.Gray) (Metric, bool) {
	scores := []float64{
		laplacianVarianceScore(gray),
		gradientEnergyScore(gray),
	}
	degraded := false
	if gray.Bounds().Dx() >= freqWindow && gray.Bounds().Dy() >= freqWindow {
		scores = append(scores, highFrequencyScore(gray))
	} else {
		degraded = true
	}

	score := 100.0
	for _, s := range scores {
		if s < score {
			score = s
		}
	}
	sev := SeverityRed
	switch {
	case score >= a.cfg.BlurGreen:
		sev = SeverityGreen
	case score >= a.cfg.BlurYellow:
		sev = SeverityYellow
	}
	return Metric{Name: MetricBlur, Value: score, Score: clampScore(score), Severity: sev}, degraded
}

// laplacianVarianceScore computes the variance of the 4-neighbor Laplacian
// response, mapped onto 0..100 by a saturating curve calibrated so crisp
// scans land well above the GREEN line and smooth gradients near zero.
func laplacianVarianceScore(gray *image.Gray) float64 {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := int(gray.GrayAt(x, y).Y)
			resp := float64(int(gray.GrayAt(x-1, y).Y) + int(gray.GrayAt(x+1, y).Y) +
				int(gray.GrayAt(x, y-1).Y) + int(gray.GrayAt(x, y+1).Y) - 4*c)
			sum += resp
			sumSq += resp * resp
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	return saturate(variance, 250)
}

// gradientEnergyScore computes the mean squared Sobel gradient magnitude.
func gradientEnergyScore(gray *image.Gray) float64 {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	var sum float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := float64(int(gray.GrayAt(x+1, y-1).Y) + 2*int(gray.GrayAt(x+1, y).Y) + int(gray.GrayAt(x+1, y+1).Y) -
				int(gray.GrayAt(x-1, y-1).Y) - 2*int(gray.GrayAt(x-1, y).Y) - int(gray.GrayAt(x-1, y+1).Y))
			gy := float64(int(gray.GrayAt(x-1, y+1).Y) + 2*int(gray.GrayAt(x, y+1).Y) + int(gray.GrayAt(x+1, y+1).Y) -
				int(gray.GrayAt(x-1, y-1).Y) - 2*int(gray.GrayAt(x, y-1).Y) - int(gray.GrayAt(x+1, y-1).Y))
			sum += gx*gx + gy*gy
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return saturate(sum/float64(n), 1500)
}

const (
	freqWindow = 64
	// freqCutoff separates "low" from "high" spatial frequencies in the
	// downsampled spectrum.
	freqCutoff = 8
	// freqKnee is the half-score point of the ratio-to-score curve. The
	// curve must stay strictly monotonic over the whole [0,1] ratio range
	// so moderate blur still ranks below sharp input.
	freqKnee = 0.08
)

// highFrequencyScore downsamples the image to a freqWindow square, runs a
// separable DFT and measures the fraction of non-DC energy beyond the
// cutoff radius, mapped through the same saturating curve as the spatial
// estimators.
func highFrequencyScore(gray *image.Gray) float64 {
	patch := downsample(gray, freqWindow)
	re, im := dft2(patch)

	var high, total float64
	for v := 0; v < freqWindow; v++ {
		for u := 0; u < freqWindow; u++ {
			if u == 0 && v == 0 {
				continue // DC
			}
			// Frequencies are symmetric about the window midpoint.
			fu := min(u, freqWindow-u)
			fv := min(v, freqWindow-v)
			e := re[v][u]*re[v][u] + im[v][u]*im[v][u]
			total += e
			if fu*fu+fv*fv > freqCutoff*freqCutoff {
				high += e
			}
		}
	}
	if total == 0 {
		return 0
	}
	return saturate(high/total, freqKnee)
}

// downsample box-averages the plane onto a size x size grid.
func downsample(gray *image.Gray, size int) [][]float64 {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	out := make([][]float64, size)
	for j := 0; j < size; j++ {
		out[j] = make([]float64, size)
		y0, y1 := j*h/size, (j+1)*h/size
		for i := 0; i < size; i++ {
			x0, x1 := i*w/size, (i+1)*w/size
			var sum float64
			n := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sum += float64(gray.GrayAt(x, y).Y)
					n++
				}
			}
			if n > 0 {
				out[j][i] = sum / float64(n)
			}
		}
	}
	return out
}

// dft2 runs a straightforward separable discrete Fourier transform over a
// square plane. The window is small enough that the O(n^3) cost is
// negligible next to the per-pixel metrics.
func dft2(plane [][]float64) (re, im [][]float64) {
	n := len(plane)
	cos := make([][]float64, n)
	sin := make([][]float64, n)
	for k := 0; k < n; k++ {
		cos[k] = make([]float64, n)
		sin[k] = make([]float64, n)
		for t := 0; t < n; t++ {
			arg := -2 * math.Pi * float64(k) * float64(t) / float64(n)
			cos[k][t] = math.Cos(arg)
			sin[k][t] = math.Sin(arg)
		}
	}

	// Rows first.
	rowRe := make([][]float64, n)
	rowIm := make([][]float64, n)
	for y := 0; y < n; y++ {
		rowRe[y] = make([]float64, n)
		rowIm[y] = make([]float64, n)
		for u := 0; u < n; u++ {
			var r, i float64
			for x := 0; x < n; x++ {
				r += plane[y][x] * cos[u][x]
				i += plane[y][x] * sin[u][x]
			}
			rowRe[y][u], rowIm[y][u] = r, i
		}
	}

	// Then columns.
	re = make([][]float64, n)
	im = make([][]float64, n)
	for v := 0; v < n; v++ {
		re[v] = make([]float64, n)
		im[v] = make([]float64, n)
	}
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			var r, i float64
			for y := 0; y < n; y++ {
				r += rowRe[y][u]*cos[v][y] - rowIm[y][u]*sin[v][y]
				i += rowRe[y][u]*sin[v][y] + rowIm[y][u]*cos[v][y]
			}
			re[v][u], im[v][u] = r, i
		}
	}
	return re, im
}

// saturate maps a non-negative measurement onto 0..100 with half-score at
// the knee.
func saturate(v, knee float64) float64 {
	if v <= 0 {
		return 0
	}
	return 100 * v / (v + knee)
}
