// Package risk turns mismatch records and per-document OCR confidence into
// the final tiered decision. The rule table is evaluated top-down and the
// first matching rule wins; every factor that made the rule fire is listed
// in examination order for downstream explainability.
package risk

import (
	"fmt"

	"docverify/config"
	"docverify/extract"
	"docverify/mismatch"
)

// Decision is the verification outcome.
type Decision string

const (
	DecisionApprove  Decision = "APPROVE"
	DecisionEscalate Decision = "ESCALATE"
	DecisionReject   Decision = "REJECT"
)

// Assessment is the final risk classification. Produced once per
// verification session and not mutated afterwards.
type Assessment struct {
	// Tier is 1 (low), 2 (moderate) or 3 (high).
	Tier     int
	Decision Decision
	// Factors lists every mismatch or confidence shortfall that caused
	// the winning rule to fire, in rule-examination order.
	Factors []string
}

// criticalFields are the fields whose RED mismatch forces rejection.
var criticalFields = map[string]bool{
	extract.FieldDateOfBirth: true,
	extract.FieldABN:         true,
	extract.FieldACN:         true,
	extract.FieldPostcode:    true,
}

// Assessor evaluates the rule table. Stateless; safe for concurrent use.
type Assessor struct {
	cfg config.RiskThresholds
}

// NewAssessor builds an assessor over an immutable threshold table.
func NewAssessor(cfg config.RiskThresholds) *Assessor {
	return &Assessor{cfg: cfg}
}

// Assess applies the rule table to the comparison outcome. confA and confB
// are the aggregate OCR confidences of the two documents.
func (a *Assessor) Assess(records []mismatch.Record, confA, confB float64) Assessment {
	minConf := confA
	if confB < minConf {
		minConf = confB
	}

	// Rule 1: critical RED mismatch or unusable OCR -> reject.
	var factors []string
	for _, r := range records {
		if r.Severity == mismatch.SeverityRed && criticalFields[r.Field] {
			factors = append(factors, redFactor(r))
		}
	}
	if minConf < a.cfg.RejectConfidence {
		factors = append(factors, fmt.Sprintf("minimum OCR confidence %.0f below %.0f", minConf, a.cfg.RejectConfidence))
	}
	if len(factors) > 0 {
		return Assessment{Tier: 3, Decision: DecisionReject, Factors: factors}
	}

	// Rule 2: any non-critical RED, any YELLOW, or marginal OCR ->
	// escalate.
	for _, r := range records {
		switch r.Severity {
		case mismatch.SeverityRed:
			factors = append(factors, redFactor(r))
		case mismatch.SeverityYellow:
			factors = append(factors, fmt.Sprintf("field %s similarity %.2f below target", r.Field, r.Similarity))
		}
	}
	if minConf < a.cfg.EscalateConfidence {
		factors = append(factors, fmt.Sprintf("minimum OCR confidence %.0f below %.0f", minConf, a.cfg.EscalateConfidence))
	}
	if len(factors) > 0 {
		return Assessment{Tier: 2, Decision: DecisionEscalate, Factors: factors}
	}

	// Rule 3: clean comparison, confident OCR on both sides.
	return Assessment{Tier: 1, Decision: DecisionApprove, Factors: nil}
}

func redFactor(r mismatch.Record) string {
	if r.Note != "" {
		return fmt.Sprintf("field %s %s", r.Field, r.Note)
	}
	return fmt.Sprintf("field %s mismatch (similarity %.2f)", r.Field, r.Similarity)
}
