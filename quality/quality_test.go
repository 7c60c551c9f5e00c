package quality_test

import (
	"image"
	"image/color"
	"testing"

	"docverify/config"
	"docverify/imageio"
	"docverify/quality"
)

func newAssessor(t *testing.T, mutate func(*config.QualityThresholds)) *quality.Assessor {
	t.Helper()
	cfg := config.Default().Quality
	if mutate != nil {
		mutate(&cfg)
	}
	return quality.NewAssessor(cfg)
}

func TestDPISeverityBoundaries(t *testing.T) {
	// A one-inch page width makes the pixel width the dpi value.
	a := newAssessor(t, func(c *config.QualityThresholds) { c.PageWidthInches = 1 })
	cases := []struct {
		width int
		want  quality.Severity
	}{
		{200, quality.SeverityGreen},
		{199, quality.SeverityYellow},
		{100, quality.SeverityYellow},
		{99, quality.SeverityRed},
	}
	for _, tc := range cases {
		if got := a.DPIMetric(tc.width).Severity; got != tc.want {
			t.Fatalf("dpi %d: severity = %s, want %s", tc.width, got, tc.want)
		}
	}
}

func TestRotationSeverityBoundaries(t *testing.T) {
	a := newAssessor(t, nil)
	cases := []struct {
		angle float64
		want  quality.Severity
	}{
		{0.99, quality.SeverityGreen},
		{1.0, quality.SeverityYellow},
		{4.99, quality.SeverityYellow},
		{5.0, quality.SeverityRed},
	}
	for _, tc := range cases {
		m := a.RotationMetricFor(tc.angle)
		if m.Severity != tc.want {
			t.Fatalf("rotation %.2f: severity = %s, want %s", tc.angle, m.Severity, tc.want)
		}
		if m.Score < 0 || m.Score > 100 {
			t.Fatalf("rotation %.2f: score %.1f out of bounds", tc.angle, m.Score)
		}
	}
}

func TestBrightnessSeverityBands(t *testing.T) {
	a := newAssessor(t, nil)
	cases := []struct {
		value uint8
		want  quality.Severity
	}{
		{150, quality.SeverityGreen},
		{50, quality.SeverityGreen},
		{200, quality.SeverityGreen},
		{40, quality.SeverityYellow},
		{210, quality.SeverityYellow},
		{20, quality.SeverityRed},
		{240, quality.SeverityRed},
	}
	for _, tc := range cases {
		if got := a.BrightnessMetric(flatGray(tc.value)).Severity; got != tc.want {
			t.Fatalf("brightness %d: severity = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestAssessIsDeterministic(t *testing.T) {
	a := newAssessor(t, func(c *config.QualityThresholds) { c.PageWidthInches = 1 })
	doc := mustDocument(t, linePattern(256, 256))

	first, err := a.Assess(doc)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := a.Assess(doc)
		if err != nil {
			t.Fatalf("Assess() error = %v", err)
		}
		if first.Score != again.Score || first.Level != again.Level {
			t.Fatalf("run %d: report changed: %.4f/%s vs %.4f/%s", i, first.Score, first.Level, again.Score, again.Level)
		}
		for j, m := range again.Metrics {
			if m != first.Metrics[j] {
				t.Fatalf("run %d: metric %s changed: %+v vs %+v", i, m.Name, m, first.Metrics[j])
			}
		}
	}
}

func TestAssessCleanDocumentIsGreen(t *testing.T) {
	a := newAssessor(t, func(c *config.QualityThresholds) { c.PageWidthInches = 1 })
	doc := mustDocument(t, linePattern(256, 256))

	report, err := a.Assess(doc)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	for _, m := range report.Metrics {
		if m.Score < 0 || m.Score > 100 {
			t.Fatalf("metric %s score %.2f out of bounds", m.Name, m.Score)
		}
		if m.Severity != quality.SeverityGreen {
			t.Fatalf("metric %s = %s (value %.2f), want GREEN", m.Name, m.Severity, m.Value)
		}
	}
	if report.Level != quality.LevelExcellent && report.Level != quality.LevelGood {
		t.Fatalf("level = %s, want EXCELLENT or GOOD", report.Level)
	}
}

func TestAssessFlatImageIsPoor(t *testing.T) {
	// A featureless gray field has no contrast and no sharpness: both
	// metrics bottom out and the RED floor drags the aggregate to POOR
	// regardless of the healthy brightness.
	a := newAssessor(t, func(c *config.QualityThresholds) { c.PageWidthInches = 1 })
	doc := mustDocument(t, flatImage(256, 256, 128))

	report, err := a.Assess(doc)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	blur, ok := report.Metric(quality.MetricBlur)
	if !ok {
		t.Fatal("missing blur metric")
	}
	if blur.Severity != quality.SeverityRed {
		t.Fatalf("blur severity = %s, want RED", blur.Severity)
	}
	if report.Level != quality.LevelPoor {
		t.Fatalf("level = %s (score %.1f), want POOR", report.Level, report.Score)
	}
}

func TestAssessRejectsDegenerateImage(t *testing.T) {
	a := newAssessor(t, nil)
	tiny := &imageio.DocumentImage{ID: "tiny", Image: flatImage(10, 10, 128), Width: 10, Height: 10}
	if _, err := a.Assess(tiny); err == nil {
		t.Fatal("expected degenerate image error")
	} else if _, ok := err.(*imageio.DegenerateError); !ok {
		t.Fatalf("error = %T, want *imageio.DegenerateError", err)
	}
}

func TestAggregateFloorsOnRed(t *testing.T) {
	// The flat image scores near zero on contrast and blur; the mean of
	// the five metrics would be far higher than min+slack without the
	// floor.
	a := newAssessor(t, func(c *config.QualityThresholds) { c.PageWidthInches = 1 })
	doc := mustDocument(t, flatImage(256, 256, 128))
	report, err := a.Assess(doc)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	min := 101.0
	for _, m := range report.Metrics {
		if m.Score < min {
			min = m.Score
		}
	}
	if report.Score > min+config.Default().Quality.AggregateSlack {
		t.Fatalf("aggregate %.2f exceeds min metric %.2f plus slack", report.Score, min)
	}
}

// flatGray builds a uniform luminance plane.
func flatGray(v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// flatImage builds a uniform RGBA image.
func flatImage(w, h int, v uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// linePattern builds a document-like fixture: white page with crisp black
// rules every eight rows, aligned with the raster (zero skew).
func linePattern(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := color.RGBA{255, 255, 255, 255}
		if y%8 < 2 {
			c = color.RGBA{0, 0, 0, 255}
		}
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func mustDocument(t *testing.T, img image.Image) *imageio.DocumentImage {
	t.Helper()
	doc, err := imageio.FromImage("fixture", img)
	if err != nil {
		t.Fatalf("FromImage() error = %v", err)
	}
	return doc
}
