package pipeline

import (
	"math"

	"docverify/quality"
)

// The record types mirror the wire shapes consumed by the report and audit
// collaborators. The core only produces them; it never reads them back.

// MetricRecord is one quality metric on the wire.
type MetricRecord struct {
	Value    float64 `json:"value"`
	Severity string  `json:"severity"`
}

// QualityRecord is a quality report on the wire.
type QualityRecord struct {
	Score   int                     `json:"score"`
	Level   string                  `json:"level"`
	Metrics map[string]MetricRecord `json:"metrics"`
}

// EnhancementRecord lists the applied operations and the re-assessed
// quality of the enhanced image.
type EnhancementRecord struct {
	OperationsApplied []string      `json:"operations_applied"`
	EnhancedQuality   QualityRecord `json:"enhanced_quality"`
}

// FieldRecord is one extracted field on the wire.
type FieldRecord struct {
	Value      string `json:"value"`
	Confidence int    `json:"confidence"`
	Valid      bool   `json:"valid"`
}

// DocumentRecord is the full per-document result on the wire.
type DocumentRecord struct {
	Fingerprint   string                 `json:"fingerprint"`
	Quality       QualityRecord          `json:"quality"`
	Enhancement   EnhancementRecord      `json:"enhancement"`
	Fields        map[string]FieldRecord `json:"fields"`
	OCRConfidence int                    `json:"ocr_confidence"`
}

// MismatchEntry is one field comparison on the wire.
type MismatchEntry struct {
	Field      string  `json:"field"`
	ValueA     string  `json:"value_a"`
	ValueB     string  `json:"value_b"`
	Similarity float64 `json:"similarity"`
	Severity   string  `json:"severity"`
	Note       string  `json:"note,omitempty"`
}

// RiskRecord is the decision on the wire.
type RiskRecord struct {
	Tier     int      `json:"tier"`
	Decision string   `json:"decision"`
	Factors  []string `json:"factors"`
}

// ComparisonRecord is the pairwise result on the wire.
type ComparisonRecord struct {
	A          DocumentRecord  `json:"document_a"`
	B          DocumentRecord  `json:"document_b"`
	Mismatches []MismatchEntry `json:"mismatches"`
	Risk       RiskRecord      `json:"risk"`
}

// Record renders the result in its wire shape.
func (r *DocumentResult) Record() DocumentRecord {
	ops := make([]string, len(r.Enhancement.Operations))
	for i, op := range r.Enhancement.Operations {
		ops[i] = string(op)
	}
	fields := make(map[string]FieldRecord, len(r.Fields.ByName))
	for name, f := range r.Fields.ByName {
		fields[name] = FieldRecord{
			Value:      f.Value,
			Confidence: roundScore(f.Confidence),
			Valid:      f.Valid,
		}
	}
	return DocumentRecord{
		Fingerprint: r.Fingerprint,
		Quality:     qualityRecord(r.Quality),
		Enhancement: EnhancementRecord{
			OperationsApplied: ops,
			EnhancedQuality:   qualityRecord(r.Enhancement.Report),
		},
		Fields:        fields,
		OCRConfidence: roundScore(r.Fields.Confidence),
	}
}

// Record renders the comparison in its wire shape.
func (c *ComparisonResult) Record() ComparisonRecord {
	entries := make([]MismatchEntry, len(c.Mismatches))
	for i, m := range c.Mismatches {
		entries[i] = MismatchEntry{
			Field:      m.Field,
			ValueA:     m.ValueA,
			ValueB:     m.ValueB,
			Similarity: m.Similarity,
			Severity:   string(m.Severity),
			Note:       m.Note,
		}
	}
	return ComparisonRecord{
		A:          c.A.Record(),
		B:          c.B.Record(),
		Mismatches: entries,
		Risk: RiskRecord{
			Tier:     c.Risk.Tier,
			Decision: string(c.Risk.Decision),
			Factors:  c.Risk.Factors,
		},
	}
}

func qualityRecord(r quality.Report) QualityRecord {
	metrics := make(map[string]MetricRecord, len(r.Metrics))
	for _, m := range r.Metrics {
		metrics[m.Name] = MetricRecord{Value: m.Value, Severity: string(m.Severity)}
	}
	return QualityRecord{
		Score:   roundScore(r.Score),
		Level:   string(r.Level),
		Metrics: metrics,
	}
}

func roundScore(v float64) int {
	i := int(math.Round(v))
	if i < 0 {
		return 0
	}
	if i > 100 {
		return 100
	}
	return i
}
