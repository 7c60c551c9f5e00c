package quality

import (
	"image"
	"math"
)

// dpi estimates resolution from the observed pixel width against the
// configured physical page width. There is no EXIF cross-check; the estimate
// is an approximation and is documented as such.
func (a *Assessor) dpi(widthPx int) Metric {
	value := float64(widthPx) / a.cfg.PageWidthInches
	sev := SeverityRed
	switch {
	case value >= a.cfg.DPIGreen:
		sev = SeverityGreen
	case value >= a.cfg.DPIYellow:
		sev = SeverityYellow
	}
	// 300 dpi is treated as a full-score scan.
	return Metric{Name: MetricDPI, Value: value, Score: clampScore(value / 300 * 100), Severity: sev}
}

// contrast measures the luminance spread between the 5th and 95th
// percentiles, expressed as a percentage of the full 8-bit range.
func (a *Assessor) contrast(gray *image.Gray) Metric {
	hist := histogram(gray)
	total := gray.Bounds().Dx() * gray.Bounds().Dy()
	p5 := percentile(hist, total, 0.05)
	p95 := percentile(hist, total, 0.95)
	value := float64(p95-p5) / 255 * 100
	sev := SeverityRed
	switch {
	case value >= a.cfg.ContrastGreen:
		sev = SeverityGreen
	case value >= a.cfg.ContrastYellow:
		sev = SeverityYellow
	}
	return Metric{Name: MetricContrast, Value: value, Score: clampScore(value), Severity: sev}
}

// brightness measures mean luminance. The score peaks at the 8-bit midpoint
// and falls off linearly toward either extreme.
func (a *Assessor) brightness(gray *image.Gray) Metric {
	var sum uint64
	for _, v := range gray.Pix {
		sum += uint64(v)
	}
	value := float64(sum) / float64(len(gray.Pix))
	sev := SeverityRed
	switch {
	case value >= a.cfg.BrightnessLow && value <= a.cfg.BrightnessHigh:
		sev = SeverityGreen
	case value >= a.cfg.BrightnessMin && value <= a.cfg.BrightnessMax:
		sev = SeverityYellow
	}
	score := clampScore(100 - math.Abs(value-127.5)/127.5*100)
	return Metric{Name: MetricBrightness, Value: value, Score: score, Severity: sev}
}

// rotation estimates the skew angle in degrees via a projection-profile
// search: the text baseline orientation is the rotation that maximizes the
// variance of the row-sum profile of ink pixels.
func (a *Assessor) rotation(gray *image.Gray) Metric {
	return a.rotationMetric(math.Abs(estimateSkew(gray)))
}

func (a *Assessor) rotationMetric(value float64) Metric {
	sev := SeverityGreen
	switch {
	case value >= a.cfg.RotationRed:
		sev = SeverityRed
	case value >= a.cfg.RotationYellow:
		sev = SeverityYellow
	}
	return Metric{Name: MetricRotation, Value: value, Score: clampScore(100 - value*20), Severity: sev}
}

// EstimateSkew exposes the skew estimate so the enhancer can rotate by its
// negation.
func EstimateSkew(gray *image.Gray) float64 { return estimateSkew(gray) }

const (
	skewSearchRange  = 10.0 // degrees either side
	skewCoarseStep   = 0.5
	skewFineStep     = 0.1
	skewSampleBudget = 50000 // ink pixels considered
)

func estimateSkew(gray *image.Gray) float64 {
	xs, ys := inkPixels(gray)
	if len(xs) < 16 {
		return 0
	}
	best := bestAngle(xs, ys, gray.Bounds().Dy(), -skewSearchRange, skewSearchRange, skewCoarseStep)
	return bestAngle(xs, ys, gray.Bounds().Dy(), best-skewCoarseStep, best+skewCoarseStep, skewFineStep)
}

// inkPixels samples dark pixels (below the mean luminance) with a stride
// keeping the total within the sample budget.
func inkPixels(gray *image.Gray) (xs, ys []int) {
	var sum uint64
	for _, v := range gray.Pix {
		sum += uint64(v)
	}
	mean := uint8(sum / uint64(len(gray.Pix)))

	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	stride := 1
	for (w/stride)*(h/stride) > skewSampleBudget*4 {
		stride++
	}
	for y := 0; y < h; y += stride {
		for x := 0; x < w; x += stride {
			if gray.GrayAt(x, y).Y < mean {
				xs = append(xs, x)
				ys = append(ys, y)
				if len(xs) >= skewSampleBudget {
					return
				}
			}
		}
	}
	return
}

func bestAngle(xs, ys []int, height int, lo, hi, step float64) float64 {
	best, bestScore := 0.0, -1.0
	for angle := lo; angle <= hi+1e-9; angle += step {
		s := profileVariance(xs, ys, height, angle)
		if s > bestScore {
			bestScore, best = s, angle
		}
	}
	return best
}

// profileVariance rotates the sampled ink coordinates by angle and measures
// the variance of the resulting row-occupancy histogram. Aligned text rows
// concentrate ink into few bins, maximizing variance.
func profileVariance(xs, ys []int, height int, angleDeg float64) float64 {
	rad := angleDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	bins := make([]int, 2*height+1)
	for i := range xs {
		yr := float64(ys[i])*cos - float64(xs[i])*sin
		idx := int(math.Round(yr)) + height
		if idx >= 0 && idx < len(bins) {
			bins[idx]++
		}
	}
	var sum, sumSq float64
	for _, c := range bins {
		sum += float64(c)
		sumSq += float64(c) * float64(c)
	}
	n := float64(len(bins))
	mean := sum / n
	return sumSq/n - mean*mean
}

func histogram(gray *image.Gray) [256]int {
	var hist [256]int
	for _, v := range gray.Pix {
		hist[v]++
	}
	return hist
}

func percentile(hist [256]int, total int, p float64) int {
	target := int(p * float64(total))
	acc := 0
	for v := 0; v < 256; v++ {
		acc += hist[v]
		if acc >= target {
			return v
		}
	}
	return 255
}
