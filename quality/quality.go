// Package quality scores document scans along five dimensions (dpi,
// contrast, rotation, blur, brightness) and rolls them into a single report.
// Every metric is a pure function of the pixels and the threshold tables, so
// identical input always yields an identical report.
package quality

import (
	"docverify/config"
	"docverify/imageio"
	"docverify/observability"
)

// Severity classifies a single measured quantity against its thresholds.
type Severity string

const (
	SeverityGreen  Severity = "GREEN"
	SeverityYellow Severity = "YELLOW"
	SeverityRed    Severity = "RED"
)

// Level classifies the aggregate score.
type Level string

const (
	LevelExcellent  Level = "EXCELLENT"
	LevelGood       Level = "GOOD"
	LevelAcceptable Level = "ACCEPTABLE"
	LevelPoor       Level = "POOR"
)

// Metric names, in report order.
const (
	MetricDPI        = "dpi"
	MetricContrast   = "contrast"
	MetricRotation   = "rotation"
	MetricBlur       = "blur"
	MetricBrightness = "brightness"
)

// Metric is one measured quality dimension.
type Metric struct {
	Name string
	// Value is the raw measurement (dpi, percent, degrees, ...).
	Value float64
	// Score is the measurement normalized to 0..100, higher is better.
	Score    float64
	Severity Severity
}

// Report is the ordered set of metrics plus the aggregate classification.
// It is immutable once produced; one report exists per image version.
type Report struct {
	Metrics []Metric
	Score   float64
	Level   Level
	// Degraded is set when a metric had to be computed from a partial set
	// of estimators (for example the frequency-domain blur measure is
	// skipped on images narrower than its sampling window).
	Degraded bool
}

// Metric returns the named metric.
func (r Report) Metric(name string) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// AllGreen reports whether every metric passed at GREEN.
func (r Report) AllGreen() bool {
	for _, m := range r.Metrics {
		if m.Severity != SeverityGreen {
			return false
		}
	}
	return true
}

// Assessor computes quality reports. It is stateless and safe for
// concurrent use.
type Assessor struct {
	cfg config.QualityThresholds
	log observability.Logger
}

// Option configures an Assessor.
type Option func(*Assessor)

// WithLogger attaches a structured logger.
func WithLogger(l observability.Logger) Option {
	return func(a *Assessor) { a.log = l }
}

// NewAssessor builds an assessor over an immutable threshold table.
func NewAssessor(cfg config.QualityThresholds, opts ...Option) *Assessor {
	a := &Assessor{cfg: cfg, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assess measures the document and produces its quality report. It never
// fails on a well-formed image; undersized images yield a DegenerateError.
func (a *Assessor) Assess(doc *imageio.DocumentImage) (Report, error) {
	if doc.Width < imageio.MinDimension || doc.Height < imageio.MinDimension {
		return Report{}, &imageio.DegenerateError{ID: doc.ID, Width: doc.Width, Height: doc.Height}
	}
	gray := imageio.Luminance(doc.Image)

	blurMetric, degraded := a.blur(gray)
	metrics := []Metric{
		a.dpi(doc.Width),
		a.contrast(gray),
		a.rotation(gray),
		blurMetric,
		a.brightness(gray),
	}

	report := Report{Metrics: metrics, Degraded: degraded}
	report.Score, report.Level = a.aggregate(metrics)

	a.log.Debug("quality assessed",
		observability.String("document", doc.ID),
		observability.Float64("score", report.Score),
		observability.String("level", string(report.Level)))
	return report, nil
}

// aggregate combines metric scores with equal weight, then floors the result
// near the worst metric whenever any metric is RED so that a single
// catastrophic defect cannot be averaged away.
func (a *Assessor) aggregate(metrics []Metric) (float64, Level) {
	var sum, min float64
	min = 101
	anyRed := false
	for _, m := range metrics {
		sum += m.Score
		if m.Score < min {
			min = m.Score
		}
		if m.Severity == SeverityRed {
			anyRed = true
		}
	}
	score := sum / float64(len(metrics))
	if anyRed && score > min+a.cfg.AggregateSlack {
		score = min + a.cfg.AggregateSlack
	}
	return score, levelOf(score)
}

func levelOf(score float64) Level {
	switch {
	case score >= 90:
		return LevelExcellent
	case score >= 75:
		return LevelGood
	case score >= 60:
		return LevelAcceptable
	default:
		return LevelPoor
	}
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
