package quality_test

import (
	"image"
	"testing"

	"docverify/config"
	"docverify/imageio"
	"docverify/quality"
)

// blurImage box-blurs a luminance plane with the given radius, repeated
// passes approximating a Gaussian.
func blurImage(src *image.Gray, radius, passes int) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	cur := src
	for p := 0; p < passes; p++ {
		dst := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var sum, n int
				for dy := -radius; dy <= radius; dy++ {
					for dx := -radius; dx <= radius; dx++ {
						nx, ny := x+dx, y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						sum += int(cur.GrayAt(nx, ny).Y)
						n++
					}
				}
				dst.Pix[y*w+x] = uint8(sum / n)
			}
		}
		cur = dst
	}
	return cur
}

// sharpFixture mixes coarse blocks with a fine checker so the spectrum has
// both low- and high-frequency content, the way text on a page does.
func sharpFixture() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			if ((x/4+y/4)+(x/32+y/32))%2 == 0 {
				g.Pix[y*256+x] = 255
			}
		}
	}
	return g
}

func TestBlurEstimatorsRankSharpAboveBlurred(t *testing.T) {
	sharp := sharpFixture()
	blurred := blurImage(sharp, 3, 3)

	estimators := []struct {
		name string
		fn   func(*image.Gray) float64
	}{
		{"laplacian", quality.LaplacianVarianceScore},
		{"gradient", quality.GradientEnergyScore},
		{"frequency", quality.HighFrequencyScore},
	}
	for _, e := range estimators {
		t.Run(e.name, func(t *testing.T) {
			s, b := e.fn(sharp), e.fn(blurred)
			if s < 0 || s > 100 || b < 0 || b > 100 {
				t.Fatalf("scores out of bounds: sharp=%.2f blurred=%.2f", s, b)
			}
			if s <= b {
				t.Fatalf("sharp score %.2f not above blurred score %.2f", s, b)
			}
		})
	}
}

func TestHighFrequencyScoreDiscriminatesModerateBlur(t *testing.T) {
	// The score must keep separating sharpness levels across the whole
	// range: a moderately blurred copy may not tie with the sharp
	// original, and heavier blur must rank below moderate blur.
	sharp := sharpFixture()
	moderate := blurImage(sharp, 3, 3)
	heavy := blurImage(sharp, 5, 4)

	s := quality.HighFrequencyScore(sharp)
	m := quality.HighFrequencyScore(moderate)
	h := quality.HighFrequencyScore(heavy)
	if s >= 100 {
		t.Fatalf("sharp score %.2f pinned to the ceiling", s)
	}
	if s <= m || m <= h {
		t.Fatalf("scores not strictly ordered by blur: sharp=%.2f moderate=%.2f heavy=%.2f", s, m, h)
	}
}

func TestBlurCombinationTakesWorstCase(t *testing.T) {
	// Heavy synthetic blur must floor the metric even though individual
	// estimators degrade at different rates: the combined score is the
	// minimum, so the weakest one decides.
	a := quality.NewAssessor(config.Default().Quality)
	blurred := blurImage(sharpFixture(), 4, 4)
	doc, err := imageio.FromImage("blurred", blurred)
	if err != nil {
		t.Fatalf("FromImage() error = %v", err)
	}
	report, err := a.Assess(doc)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	blur, _ := report.Metric(quality.MetricBlur)
	if blur.Severity != quality.SeverityRed {
		t.Fatalf("blur severity = %s (score %.2f), want RED", blur.Severity, blur.Score)
	}
	if report.Level != quality.LevelPoor {
		t.Fatalf("level = %s, want POOR for heavy blur", report.Level)
	}

	worst := 101.0
	for _, s := range []float64{
		quality.LaplacianVarianceScore(blurred),
		quality.GradientEnergyScore(blurred),
		quality.HighFrequencyScore(blurred),
	} {
		if s < worst {
			worst = s
		}
	}
	if blur.Score != worst {
		t.Fatalf("combined score %.2f != worst estimator %.2f", blur.Score, worst)
	}
}

func TestBlurDegradesWithoutFrequencyWindow(t *testing.T) {
	// Images narrower than the frequency sampling window still get a
	// blur score from the two spatial estimators, flagged as degraded.
	g := image.NewGray(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			if (x/4+y/4)%2 == 0 {
				g.Pix[y*50+x] = 255
			}
		}
	}
	doc, err := imageio.FromImage("small", g)
	if err != nil {
		t.Fatalf("FromImage() error = %v", err)
	}
	a := quality.NewAssessor(config.Default().Quality)
	report, err := a.Assess(doc)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	if !report.Degraded {
		t.Fatal("expected degraded report for sub-window image")
	}
	if _, ok := report.Metric(quality.MetricBlur); !ok {
		t.Fatal("blur metric missing from degraded report")
	}
}
