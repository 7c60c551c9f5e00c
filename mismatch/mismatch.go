// Package mismatch compares the extracted fields of two documents and
// classifies every discrepancy. Comparison is symmetric: swapping the two
// documents flips the value columns but never the similarity or severity.
package mismatch

import (
	"fmt"
	"sort"

	"docverify/config"
	"docverify/extract"
)

// Severity classifies one field comparison.
type Severity string

const (
	SeverityNone   Severity = "NONE"
	SeverityYellow Severity = "YELLOW"
	SeverityRed    Severity = "RED"
)

// Record is the comparison outcome for one field name present on at least
// one side.
type Record struct {
	Field      string
	ValueA     string
	ValueB     string
	Similarity float64
	Severity   Severity
	// Note carries supplementary context, e.g. which side a one-sided
	// field was missing from.
	Note string
}

// InputError reports malformed field maps; it is fatal for the comparison
// only, never for the batch.
type InputError struct {
	Side string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("mismatch: field map for document %s is nil", e.Side)
}

// Detector compares extraction results. Stateless; safe for concurrent use.
type Detector struct {
	cfg config.MatchThresholds
}

// NewDetector builds a detector over an immutable threshold table.
func NewDetector(cfg config.MatchThresholds) *Detector {
	return &Detector{cfg: cfg}
}

// Compare produces one record per field name present in at least one input,
// in canonical field order (known fields first, any extras alphabetically).
// Fields present on only one side are RED: an unverifiable field is a
// discrepancy, not a pass.
func (d *Detector) Compare(a, b extract.Fields) ([]Record, error) {
	if a.ByName == nil {
		return nil, &InputError{Side: "A"}
	}
	if b.ByName == nil {
		return nil, &InputError{Side: "B"}
	}

	var records []Record
	for _, name := range fieldOrder(a, b) {
		fa, okA := a.Get(name)
		fb, okB := b.Get(name)
		switch {
		case okA && okB:
			sim := Similarity(name, fa.Value, fb.Value)
			records = append(records, Record{
				Field:      name,
				ValueA:     fa.Value,
				ValueB:     fb.Value,
				Similarity: sim,
				Severity:   d.severity(name, sim),
			})
		case okA:
			records = append(records, Record{
				Field:    name,
				ValueA:   fa.Value,
				Severity: SeverityRed,
				Note:     "absent from document B",
			})
		default:
			records = append(records, Record{
				Field:    name,
				ValueB:   fb.Value,
				Severity: SeverityRed,
				Note:     "absent from document A",
			})
		}
	}
	return records, nil
}

func (d *Detector) severity(field string, sim float64) Severity {
	t := d.cfg.Field(field)
	switch {
	case sim >= t.Green:
		return SeverityNone
	case sim >= t.Yellow:
		return SeverityYellow
	default:
		return SeverityRed
	}
}

func fieldOrder(a, b extract.Fields) []string {
	seen := make(map[string]bool)
	var order []string
	for _, name := range extract.FieldNames {
		if _, okA := a.Get(name); okA {
			seen[name] = true
			order = append(order, name)
			continue
		}
		if _, okB := b.Get(name); okB {
			seen[name] = true
			order = append(order, name)
		}
	}
	var extras []string
	for name := range a.ByName {
		if !seen[name] {
			seen[name] = true
			extras = append(extras, name)
		}
	}
	for name := range b.ByName {
		if !seen[name] {
			seen[name] = true
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return append(order, extras...)
}
