// Package config holds the static threshold tables driving quality
// assessment, enhancement, mismatch detection and risk scoring. A Thresholds
// value is loaded once and treated as immutable for the lifetime of the
// process; components receive it by value and never write to it.
package config

// QualityThresholds holds the per-metric severity cut lines.
//
// For dpi, contrast and blur the scale is "higher is better": values at or
// above Green are GREEN, values at or above Yellow are YELLOW, anything
// lower is RED. Rotation is "lower is better" (degrees of skew).
type QualityThresholds struct {
	DPIGreen  float64 `mapstructure:"dpi_green"`
	DPIYellow float64 `mapstructure:"dpi_yellow"`

	ContrastGreen  float64 `mapstructure:"contrast_green"`
	ContrastYellow float64 `mapstructure:"contrast_yellow"`

	RotationYellow float64 `mapstructure:"rotation_yellow"`
	RotationRed    float64 `mapstructure:"rotation_red"`

	BlurGreen  float64 `mapstructure:"blur_green"`
	BlurYellow float64 `mapstructure:"blur_yellow"`

	// Brightness is banded: RED outside [Min,Max], YELLOW in
	// [Min,Low) or (High,Max], GREEN in [Low,High].
	BrightnessMin  float64 `mapstructure:"brightness_min"`
	BrightnessLow  float64 `mapstructure:"brightness_low"`
	BrightnessHigh float64 `mapstructure:"brightness_high"`
	BrightnessMax  float64 `mapstructure:"brightness_max"`

	// PageWidthInches is the assumed physical page width used to estimate
	// DPI from the observed pixel width. There is no EXIF cross-check, so
	// the estimate is an approximation, not ground truth.
	PageWidthInches float64 `mapstructure:"page_width_inches"`

	// AggregateSlack bounds how far the aggregate score may sit above the
	// worst RED metric.
	AggregateSlack float64 `mapstructure:"aggregate_slack"`
}

// EnhanceThresholds controls the corrective passes.
type EnhanceThresholds struct {
	// BoundaryConfidence is the minimum document-boundary detection
	// confidence below which perspective correction is skipped.
	BoundaryConfidence float64 `mapstructure:"boundary_confidence"`
	// PerspectiveTolerance is the maximum corner deviation (fraction of
	// the image diagonal) still considered rectangular.
	PerspectiveTolerance float64 `mapstructure:"perspective_tolerance"`
}

// FieldThresholds holds the similarity cut lines for one field: similarity
// at or above Green is NONE, at or above Yellow is YELLOW, below is RED.
type FieldThresholds struct {
	Green  float64 `mapstructure:"green"`
	Yellow float64 `mapstructure:"yellow"`
}

// MatchThresholds maps field names to their similarity cut lines. Fields
// without an entry use Default.
type MatchThresholds struct {
	Fields  map[string]FieldThresholds `mapstructure:"fields"`
	Default FieldThresholds            `mapstructure:"default"`
}

// Field returns the thresholds for a field name.
func (m MatchThresholds) Field(name string) FieldThresholds {
	if t, ok := m.Fields[name]; ok {
		return t
	}
	return m.Default
}

// RiskThresholds holds the OCR-confidence cut lines of the decision table.
type RiskThresholds struct {
	// RejectConfidence: a document below this aggregate OCR confidence
	// forces tier 3.
	RejectConfidence float64 `mapstructure:"reject_confidence"`
	// EscalateConfidence: below this (but at or above RejectConfidence)
	// forces at least tier 2.
	EscalateConfidence float64 `mapstructure:"escalate_confidence"`
}

// Thresholds aggregates all static tables.
type Thresholds struct {
	Quality QualityThresholds `mapstructure:"quality"`
	Enhance EnhanceThresholds `mapstructure:"enhance"`
	Match   MatchThresholds   `mapstructure:"match"`
	Risk    RiskThresholds    `mapstructure:"risk"`
}

// Default returns the calibrated default threshold tables.
func Default() Thresholds {
	return Thresholds{
		Quality: QualityThresholds{
			DPIGreen:        200,
			DPIYellow:       100,
			ContrastGreen:   75,
			ContrastYellow:  60,
			RotationYellow:  1,
			RotationRed:     5,
			BlurGreen:       70,
			BlurYellow:      40,
			BrightnessMin:   30,
			BrightnessLow:   50,
			BrightnessHigh:  200,
			BrightnessMax:   225,
			PageWidthInches: 8.5,
			AggregateSlack:  5,
		},
		Enhance: EnhanceThresholds{
			BoundaryConfidence:   0.5,
			PerspectiveTolerance: 0.02,
		},
		Match: MatchThresholds{
			Default: FieldThresholds{Green: 0.85, Yellow: 0.60},
			Fields: map[string]FieldThresholds{
				"name":    {Green: 0.85, Yellow: 0.60},
				"address": {Green: 0.85, Yellow: 0.60},
				// Exact-match fields: any inequality lands below
				// Yellow and is therefore RED.
				"date_of_birth": {Green: 1.0, Yellow: 1.0},
				"postcode":      {Green: 1.0, Yellow: 1.0},
				"abn":           {Green: 1.0, Yellow: 1.0},
				"acn":           {Green: 1.0, Yellow: 1.0},
			},
		},
		Risk: RiskThresholds{
			RejectConfidence:   50,
			EscalateConfidence: 75,
		},
	}
}
