package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads threshold overrides from an optional YAML file and DOCVERIFY_*
// environment variables, layered over Default(). Passing an empty path loads
// defaults plus environment overrides only.
func Load(path string) (Thresholds, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DOCVERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Thresholds{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var t Thresholds
	if err := v.Unmarshal(&t); err != nil {
		return Thresholds{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

func setDefaults(v *viper.Viper, t Thresholds) {
	v.SetDefault("quality.dpi_green", t.Quality.DPIGreen)
	v.SetDefault("quality.dpi_yellow", t.Quality.DPIYellow)
	v.SetDefault("quality.contrast_green", t.Quality.ContrastGreen)
	v.SetDefault("quality.contrast_yellow", t.Quality.ContrastYellow)
	v.SetDefault("quality.rotation_yellow", t.Quality.RotationYellow)
	v.SetDefault("quality.rotation_red", t.Quality.RotationRed)
	v.SetDefault("quality.blur_green", t.Quality.BlurGreen)
	v.SetDefault("quality.blur_yellow", t.Quality.BlurYellow)
	v.SetDefault("quality.brightness_min", t.Quality.BrightnessMin)
	v.SetDefault("quality.brightness_low", t.Quality.BrightnessLow)
	v.SetDefault("quality.brightness_high", t.Quality.BrightnessHigh)
	v.SetDefault("quality.brightness_max", t.Quality.BrightnessMax)
	v.SetDefault("quality.page_width_inches", t.Quality.PageWidthInches)
	v.SetDefault("quality.aggregate_slack", t.Quality.AggregateSlack)
	v.SetDefault("enhance.boundary_confidence", t.Enhance.BoundaryConfidence)
	v.SetDefault("enhance.perspective_tolerance", t.Enhance.PerspectiveTolerance)
	v.SetDefault("match.default.green", t.Match.Default.Green)
	v.SetDefault("match.default.yellow", t.Match.Default.Yellow)
	v.SetDefault("match.fields", t.Match.Fields)
	v.SetDefault("risk.reject_confidence", t.Risk.RejectConfidence)
	v.SetDefault("risk.escalate_confidence", t.Risk.EscalateConfidence)
}

// Validate rejects threshold tables that would make severity classification
// ambiguous.
func (t Thresholds) Validate() error {
	q := t.Quality
	switch {
	case q.DPIYellow <= 0 || q.DPIGreen < q.DPIYellow:
		return fmt.Errorf("config: dpi thresholds out of order (yellow=%v green=%v)", q.DPIYellow, q.DPIGreen)
	case q.ContrastGreen < q.ContrastYellow:
		return fmt.Errorf("config: contrast thresholds out of order")
	case q.RotationRed < q.RotationYellow:
		return fmt.Errorf("config: rotation thresholds out of order")
	case q.BlurGreen < q.BlurYellow:
		return fmt.Errorf("config: blur thresholds out of order")
	case !(q.BrightnessMin <= q.BrightnessLow && q.BrightnessLow <= q.BrightnessHigh && q.BrightnessHigh <= q.BrightnessMax):
		return fmt.Errorf("config: brightness bands out of order")
	case q.PageWidthInches <= 0:
		return fmt.Errorf("config: page width must be positive")
	}
	if t.Risk.EscalateConfidence < t.Risk.RejectConfidence {
		return fmt.Errorf("config: risk confidence thresholds out of order")
	}
	for name, f := range t.Match.Fields {
		if f.Green < f.Yellow {
			return fmt.Errorf("config: match thresholds for %q out of order", name)
		}
	}
	return nil
}
