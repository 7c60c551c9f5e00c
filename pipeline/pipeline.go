// Package pipeline composes the verification stages: quality assessment,
// enhancement, field extraction, mismatch detection and risk scoring. Each
// stage is a pure function of its inputs; the pipeline only sequences them
// and manages concurrency across documents.
package pipeline

import (
	"context"
	"time"

	"docverify/config"
	"docverify/enhance"
	"docverify/extract"
	"docverify/imageio"
	"docverify/mismatch"
	"docverify/observability"
	"docverify/ocr"
	"docverify/quality"
	"docverify/risk"
)

// DocumentResult is the per-document output record.
type DocumentResult struct {
	ID string
	// Fingerprint is the content digest of the source image, so audit
	// consumers can correlate resubmissions of the same scan under
	// different file names.
	Fingerprint string
	Quality     quality.Report
	Enhancement enhance.Result
	Fields      extract.Fields
}

// OCRConfidence is the document's aggregate extraction confidence, 0..100.
func (r *DocumentResult) OCRConfidence() float64 { return r.Fields.Confidence }

// ComparisonResult is the pairwise output record for two documents.
type ComparisonResult struct {
	A, B       *DocumentResult
	Mismatches []mismatch.Record
	Risk       risk.Assessment
}

// Pipeline wires the stages over one OCR engine and one immutable threshold
// table. Safe for concurrent use.
type Pipeline struct {
	engine     ocr.Engine
	cfg        config.Thresholds
	assessor   *quality.Assessor
	enhancer   *enhance.Enhancer
	extractor  *extract.Extractor
	detector   *mismatch.Detector
	risk       *risk.Assessor
	log        observability.Logger
	tracer     observability.Tracer
	ocrTimeout time.Duration
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	log        observability.Logger
	tracer     observability.Tracer
	ocrTimeout time.Duration
	inputOpts  []ocr.InputOption
}

// WithLogger attaches a structured logger to every stage.
func WithLogger(l observability.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTracer attaches a tracer for span instrumentation.
func WithTracer(t observability.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithOCRTimeout bounds each OCR call. On timeout the document is reported
// with a zero-confidence extraction instead of stalling the batch.
func WithOCRTimeout(d time.Duration) Option {
	return func(o *options) { o.ocrTimeout = d }
}

// WithInputOptions forwards OCR input options (languages, DPI, engine
// knobs) to every recognition call.
func WithInputOptions(opts ...ocr.InputOption) Option {
	return func(o *options) { o.inputOpts = opts }
}

// New builds a pipeline over the engine and threshold table.
func New(engine ocr.Engine, cfg config.Thresholds, opts ...Option) *Pipeline {
	o := options{log: observability.NopLogger{}, tracer: observability.NopTracer()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline{
		engine:     engine,
		cfg:        cfg,
		assessor:   quality.NewAssessor(cfg.Quality, quality.WithLogger(o.log)),
		enhancer:   enhance.NewEnhancer(cfg, enhance.WithLogger(o.log)),
		extractor:  extract.NewExtractor(engine, extract.WithLogger(o.log), extract.WithInputOptions(o.inputOpts...)),
		detector:   mismatch.NewDetector(cfg.Match),
		risk:       risk.NewAssessor(cfg.Risk),
		log:        o.log,
		tracer:     o.tracer,
		ocrTimeout: o.ocrTimeout,
	}
}

// ProcessDocument runs the sequential per-document stages: assess, enhance,
// extract. Field extraction runs on the enhanced image.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *imageio.DocumentImage) (*DocumentResult, error) {
	ctx, span := p.tracer.StartSpan(ctx, "pipeline.document")
	defer span.Finish()
	span.SetTag("document", doc.ID)

	report, err := p.assessor.Assess(doc)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	enhanced, err := p.enhancer.Enhance(doc, report)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	extractCtx := ctx
	if p.ocrTimeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, p.ocrTimeout)
		defer cancel()
	}
	fields, err := p.extractor.Extract(extractCtx, enhanced.Image)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &DocumentResult{
		ID:          doc.ID,
		Fingerprint: doc.Fingerprint(),
		Quality:     report,
		Enhancement: enhanced,
		Fields:      fields,
	}, nil
}

// Compare verifies two documents against each other. The two per-document
// pipelines have no data dependency and run concurrently; mismatch
// detection waits for both. The OCR engine is probed first so a missing
// engine fails before any pixel work.
func (p *Pipeline) Compare(ctx context.Context, a, b *imageio.DocumentImage) (*ComparisonResult, error) {
	if err := ocr.Probe(ctx, p.engine); err != nil {
		return nil, err
	}
	ctx, span := p.tracer.StartSpan(ctx, "pipeline.compare")
	defer span.Finish()

	type side struct {
		res *DocumentResult
		err error
	}
	chA := make(chan side, 1)
	chB := make(chan side, 1)
	go func() {
		res, err := p.ProcessDocument(ctx, a)
		chA <- side{res, err}
	}()
	go func() {
		res, err := p.ProcessDocument(ctx, b)
		chB <- side{res, err}
	}()
	sa, sb := <-chA, <-chB
	if sa.err != nil {
		span.SetError(sa.err)
		return nil, sa.err
	}
	if sb.err != nil {
		span.SetError(sb.err)
		return nil, sb.err
	}

	records, err := p.detector.Compare(sa.res.Fields, sb.res.Fields)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	assessment := p.risk.Assess(records, sa.res.OCRConfidence(), sb.res.OCRConfidence())

	p.log.Info("documents compared",
		observability.String("document_a", a.ID),
		observability.String("document_b", b.ID),
		observability.Int("tier", assessment.Tier),
		observability.String("decision", string(assessment.Decision)))
	return &ComparisonResult{A: sa.res, B: sb.res, Mismatches: records, Risk: assessment}, nil
}
