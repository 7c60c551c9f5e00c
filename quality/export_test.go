package quality

import "image"

func (a *Assessor) DPIMetric(widthPx int) Metric           { return a.dpi(widthPx) }
func (a *Assessor) RotationMetricFor(value float64) Metric { return a.rotationMetric(value) }
func (a *Assessor) BrightnessMetric(g *image.Gray) Metric  { return a.brightness(g) }
func (a *Assessor) ContrastMetric(g *image.Gray) Metric    { return a.contrast(g) }

func LaplacianVarianceScore(g *image.Gray) float64 { return laplacianVarianceScore(g) }
func GradientEnergyScore(g *image.Gray) float64    { return gradientEnergyScore(g) }
func HighFrequencyScore(g *image.Gray) float64     { return highFrequencyScore(g) }
