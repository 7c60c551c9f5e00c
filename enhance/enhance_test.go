package enhance_test

import (
	"image"
	"image/color"
	"math"
	"testing"

	"docverify/config"
	"docverify/enhance"
	"docverify/imageio"
	"docverify/observability"
	"docverify/quality"
)

func fixtureConfig() config.Thresholds {
	cfg := config.Default()
	// One-inch page width so pixel width stands in for dpi on small
	// fixtures.
	cfg.Quality.PageWidthInches = 1
	return cfg
}

// linePattern is a white page with crisp black rules every eight rows,
// optionally sheared by skewDeg to simulate a rotated scan.
func linePattern(w, h int, skewDeg float64) image.Image {
	slope := math.Tan(skewDeg * math.Pi / 180)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{255, 255, 255, 255}
			ly := y - int(math.Round(float64(x)*slope))
			if ((ly%8)+8)%8 < 2 {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func flatImage(w, h int, v uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func assessed(t *testing.T, cfg config.Thresholds, img image.Image) (*imageio.DocumentImage, quality.Report) {
	t.Helper()
	doc, err := imageio.FromImage("fixture", img)
	if err != nil {
		t.Fatalf("FromImage() error = %v", err)
	}
	report, err := quality.NewAssessor(cfg.Quality).Assess(doc)
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}
	return doc, report
}

func hasOp(ops []enhance.Operation, op enhance.Operation) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func TestEnhanceCleanImageOnlyDenoises(t *testing.T) {
	cfg := fixtureConfig()
	doc, report := assessed(t, cfg, linePattern(256, 256, 0))
	for _, m := range report.Metrics {
		if m.Severity != quality.SeverityGreen {
			t.Fatalf("fixture metric %s = %s, fixture must start GREEN", m.Name, m.Severity)
		}
	}

	res, err := enhance.NewEnhancer(cfg).Enhance(doc, report)
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if len(res.Operations) != 1 || res.Operations[0] != enhance.OpDenoise {
		t.Fatalf("operations = %v, want only denoise on a clean image", res.Operations)
	}
	if res.Image.Width != doc.Width || res.Image.Height != doc.Height {
		t.Fatalf("dimensions changed: %dx%d -> %dx%d", doc.Width, doc.Height, res.Image.Width, res.Image.Height)
	}
	// The light smoothing pass must not meaningfully move the score on an
	// already-clean page.
	if delta := math.Abs(res.Report.Score - report.Score); delta > 2 {
		t.Fatalf("score moved by %.2f on a clean image (%.2f -> %.2f)", delta, report.Score, res.Report.Score)
	}
}

func TestEnhanceCorrectsRotation(t *testing.T) {
	cfg := fixtureConfig()
	doc, report := assessed(t, cfg, linePattern(256, 256, 2))

	rot, ok := report.Metric(quality.MetricRotation)
	if !ok || rot.Severity == quality.SeverityGreen {
		t.Fatalf("fixture rotation = %+v, must start non-GREEN", rot)
	}

	res, err := enhance.NewEnhancer(cfg).Enhance(doc, report)
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if !hasOp(res.Operations, enhance.OpRotationCorrect) {
		t.Fatalf("operations = %v, want rotation-correct", res.Operations)
	}
	after, ok := res.Report.Metric(quality.MetricRotation)
	if !ok {
		t.Fatal("rotation metric missing from re-assessment")
	}
	if after.Value >= rot.Value {
		t.Fatalf("skew not reduced: %.2f -> %.2f degrees", rot.Value, after.Value)
	}
}

func TestEnhanceDarkImageNormalizesBrightness(t *testing.T) {
	cfg := fixtureConfig()
	doc, report := assessed(t, cfg, flatImage(256, 256, 40))

	res, err := enhance.NewEnhancer(cfg).Enhance(doc, report)
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if !hasOp(res.Operations, enhance.OpBrightnessNormalize) {
		t.Fatalf("operations = %v, want brightness-normalize", res.Operations)
	}
	if !hasOp(res.Operations, enhance.OpContrastEnhance) {
		t.Fatalf("operations = %v, want contrast-enhance for a flat field", res.Operations)
	}
	before, _ := report.Metric(quality.MetricBrightness)
	after, ok := res.Report.Metric(quality.MetricBrightness)
	if !ok {
		t.Fatal("brightness metric missing from re-assessment")
	}
	if math.Abs(after.Value-127.5) >= math.Abs(before.Value-127.5) {
		t.Fatalf("mean luminance not moved toward midpoint: %.1f -> %.1f", before.Value, after.Value)
	}
}

func TestEnhanceDoesNotMutateInput(t *testing.T) {
	cfg := fixtureConfig()
	doc, report := assessed(t, cfg, linePattern(256, 256, 2))

	before := imageio.Luminance(doc.Image)
	snapshot := append([]uint8(nil), before.Pix...)

	if _, err := enhance.NewEnhancer(cfg).Enhance(doc, report); err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	after := imageio.Luminance(doc.Image)
	for i := range snapshot {
		if after.Pix[i] != snapshot[i] {
			t.Fatalf("input image mutated at offset %d", i)
		}
	}
}

// spyLogger records message strings for assertions.
type spyLogger struct{ msgs []string }

func (l *spyLogger) Debug(msg string, _ ...observability.Field) { l.msgs = append(l.msgs, msg) }
func (l *spyLogger) Info(msg string, _ ...observability.Field)  { l.msgs = append(l.msgs, msg) }
func (l *spyLogger) Warn(msg string, _ ...observability.Field)  { l.msgs = append(l.msgs, msg) }
func (l *spyLogger) Error(msg string, _ ...observability.Field) { l.msgs = append(l.msgs, msg) }
func (l *spyLogger) With(...observability.Field) observability.Logger {
	return l
}

func TestEnhanceLogsReassessmentThroughConfiguredLogger(t *testing.T) {
	cfg := fixtureConfig()
	doc, report := assessed(t, cfg, linePattern(256, 256, 0))

	spy := &spyLogger{}
	if _, err := enhance.NewEnhancer(cfg, enhance.WithLogger(spy)).Enhance(doc, report); err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	found := false
	for _, m := range spy.msgs {
		if m == "quality assessed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("re-assessment bypassed the configured logger, saw %v", spy.msgs)
	}
}

func TestEnhanceOperationOrderIsStable(t *testing.T) {
	// Operations always apply (and report) in the fixed correction order.
	cfg := fixtureConfig()
	doc, report := assessed(t, cfg, flatImage(256, 256, 40))

	res, err := enhance.NewEnhancer(cfg).Enhance(doc, report)
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	order := map[enhance.Operation]int{
		enhance.OpRotationCorrect:     0,
		enhance.OpPerspectiveCorrect:  1,
		enhance.OpContrastEnhance:     2,
		enhance.OpDenoise:             3,
		enhance.OpBrightnessNormalize: 4,
	}
	for i := 1; i < len(res.Operations); i++ {
		if order[res.Operations[i-1]] >= order[res.Operations[i]] {
			t.Fatalf("operations out of order: %v", res.Operations)
		}
	}
}
