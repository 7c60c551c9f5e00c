// Package enhance applies corrective transforms to a scanned document,
// driven by its quality report: only metrics below GREEN trigger their
// corresponding operation, in a fixed order, and the result is re-assessed
// so callers see the achieved (not assumed) quality.
package enhance

import (
	"image"
	"image/color"
	"image/draw"

	"docverify/config"
	"docverify/imageio"
	"docverify/observability"
	"docverify/quality"
)

// Operation names a corrective transform, in application order.
type Operation string

const (
	OpRotationCorrect     Operation = "rotation-correct"
	OpPerspectiveCorrect  Operation = "perspective-correct"
	OpContrastEnhance     Operation = "contrast-enhance"
	OpDenoise             Operation = "denoise"
	OpBrightnessNormalize Operation = "brightness-normalize"
)

// Result references the enhanced image, the operations applied in order, and
// the quality report recomputed on the enhanced image.
type Result struct {
	Image      *imageio.DocumentImage
	Operations []Operation
	Report     quality.Report
}

// Enhancer applies defect-targeted corrections. Stateless; safe for
// concurrent use.
type Enhancer struct {
	cfg      config.Thresholds
	assessor *quality.Assessor
	log      observability.Logger
}

// Option configures an Enhancer.
type Option func(*Enhancer)

// WithLogger attaches a structured logger.
func WithLogger(l observability.Logger) Option {
	return func(e *Enhancer) { e.log = l }
}

// NewEnhancer builds an enhancer. The quality thresholds inside cfg drive
// the re-assessment of the corrected image.
func NewEnhancer(cfg config.Thresholds, opts ...Option) *Enhancer {
	e := &Enhancer{cfg: cfg, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	// Built after the options so the re-assessment logs through the
	// configured logger.
	e.assessor = quality.NewAssessor(cfg.Quality, quality.WithLogger(e.log))
	return e
}

// Enhance corrects the defects recorded in report and returns the enhanced
// image with its recomputed quality report. On an already fully GREEN image
// only the light denoise pass runs, which keeps the operation idempotent
// within a small tolerance.
func (e *Enhancer) Enhance(doc *imageio.DocumentImage, report quality.Report) (Result, error) {
	img := cloneRGBA(doc.Image)
	var ops []Operation

	if sev, ok := severityOf(report, quality.MetricRotation); ok && sev != quality.SeverityGreen {
		angle := quality.EstimateSkew(imageio.Luminance(img))
		img = rotate(img, -angle)
		ops = append(ops, OpRotationCorrect)
	}

	if quad, conf, ok := detectBoundary(imageio.Luminance(img)); ok {
		switch {
		case conf < e.cfg.Enhance.BoundaryConfidence:
			// Fail open: a guessed boundary is worse than none.
			e.log.Debug("perspective correction skipped",
				observability.String("document", doc.ID),
				observability.Float64("boundary_confidence", conf))
		case quad.deviation(img.Bounds()) > e.cfg.Enhance.PerspectiveTolerance:
			img = warpQuad(img, quad)
			ops = append(ops, OpPerspectiveCorrect)
		}
	}

	if sev, ok := severityOf(report, quality.MetricContrast); ok && sev != quality.SeverityGreen {
		img = equalizeContrast(img)
		ops = append(ops, OpContrastEnhance)
	}

	// Light edge-preserving smoothing is always applied.
	img = denoise(img)
	ops = append(ops, OpDenoise)

	if sev, ok := severityOf(report, quality.MetricBrightness); ok && sev != quality.SeverityGreen {
		img = normalizeBrightness(img)
		ops = append(ops, OpBrightnessNormalize)
	}

	enhanced, err := imageio.FromImage(doc.ID, img)
	if err != nil {
		return Result{}, err
	}
	after, err := e.assessor.Assess(enhanced)
	if err != nil {
		return Result{}, err
	}

	e.log.Info("document enhanced",
		observability.String("document", doc.ID),
		observability.Int("operations", len(ops)),
		observability.Float64("score_before", report.Score),
		observability.Float64("score_after", after.Score))
	return Result{Image: enhanced, Operations: ops, Report: after}, nil
}

func severityOf(report quality.Report, name string) (quality.Severity, bool) {
	m, ok := report.Metric(name)
	if !ok {
		return "", false
	}
	return m.Severity, true
}

// cloneRGBA copies the source pixels into a fresh RGBA buffer with a
// zero-based origin. The caller's image is never written to.
func cloneRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
