package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/config"
	"docverify/extract"
	"docverify/ocr"
	"docverify/pipeline"
	"docverify/quality"
)

func TestComparisonRecordWireShape(t *testing.T) {
	engine := &scriptedEngine{tokens: map[string][]ocr.Token{
		"a": cardTokens("Harbour", "2000"),
		"b": cardTokens("Harbour", "2001"),
	}}
	p := pipeline.New(engine, config.Default())

	res, err := p.Compare(context.Background(), document(t, "a"), document(t, "b"))
	require.NoError(t, err)

	data, err := json.Marshal(res.Record())
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &wire))
	for _, key := range []string{"document_a", "document_b", "mismatches", "risk"} {
		assert.Contains(t, wire, key)
	}

	var riskWire struct {
		Tier     int      `json:"tier"`
		Decision string   `json:"decision"`
		Factors  []string `json:"factors"`
	}
	require.NoError(t, json.Unmarshal(wire["risk"], &riskWire))
	assert.Equal(t, 3, riskWire.Tier)
	assert.Equal(t, "REJECT", riskWire.Decision)
	assert.NotEmpty(t, riskWire.Factors)
}

func TestDocumentRecordRoundsAndClamps(t *testing.T) {
	engine := &scriptedEngine{tokens: map[string][]ocr.Token{
		"a": cardTokens("Harbour", "2000"),
	}}
	p := pipeline.New(engine, config.Default())

	res, err := p.ProcessDocument(context.Background(), document(t, "a"))
	require.NoError(t, err)

	rec := res.Record()
	assert.Len(t, rec.Fingerprint, 64)
	assert.Equal(t, res.Fingerprint, rec.Fingerprint)
	assert.GreaterOrEqual(t, rec.Quality.Score, 0)
	assert.LessOrEqual(t, rec.Quality.Score, 100)
	assert.Len(t, rec.Quality.Metrics, len(res.Quality.Metrics))
	for _, name := range []string{
		quality.MetricDPI, quality.MetricContrast, quality.MetricBrightness,
		quality.MetricRotation, quality.MetricBlur,
	} {
		assert.Contains(t, rec.Quality.Metrics, name)
	}

	abn, ok := rec.Fields[extract.FieldABN]
	require.True(t, ok)
	assert.Equal(t, "51824753556", abn.Value)
	assert.True(t, abn.Valid)
	assert.GreaterOrEqual(t, abn.Confidence, 1)
	assert.LessOrEqual(t, abn.Confidence, 100)

	assert.Len(t, rec.Enhancement.OperationsApplied, len(res.Enhancement.Operations))
}
