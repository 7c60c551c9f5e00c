package extract

import (
	"context"
	"errors"
	"sort"
	"strings"

	"docverify/imageio"
	"docverify/observability"
	"docverify/ocr"
)

// Extractor drives the external OCR capability and aggregates its tokens
// into semantic fields. Stateless; safe for concurrent use with an engine
// that is.
type Extractor struct {
	engine ocr.Engine
	opts   []ocr.InputOption
	log    observability.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger attaches a structured logger.
func WithLogger(l observability.Logger) Option {
	return func(x *Extractor) { x.log = l }
}

// WithInputOptions forwards options (languages, DPI, engine knobs) to every
// OCR input.
func WithInputOptions(opts ...ocr.InputOption) Option {
	return func(x *Extractor) { x.opts = opts }
}

// NewExtractor builds an extractor over the given OCR engine.
func NewExtractor(engine ocr.Engine, opts ...Option) *Extractor {
	x := &Extractor{engine: engine, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract recognizes the document and aggregates tokens into fields. A
// caller-supplied deadline on ctx bounds the OCR call; on timeout the
// document is reported with a zero-confidence empty extraction instead of
// blocking the batch.
func (x *Extractor) Extract(ctx context.Context, doc *imageio.DocumentImage) (Fields, error) {
	in, err := ocr.InputFromDocument(doc, x.opts...)
	if err != nil {
		return Fields{}, err
	}

	res, err := x.recognize(ctx, in)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			x.log.Warn("ocr timed out, reporting zero-confidence extraction",
				observability.String("document", doc.ID))
			return buildFields(nil), nil
		}
		return Fields{}, err
	}

	fields := aggregate(res.Tokens)
	x.log.Debug("fields extracted",
		observability.String("document", doc.ID),
		observability.Int("fields", len(fields)),
		observability.Int("tokens", len(res.Tokens)))
	return buildFields(fields), nil
}

// recognize runs the engine call on its own goroutine so a blocking
// provider cannot outlive the caller's deadline.
func (x *Extractor) recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	type outcome struct {
		res ocr.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := x.engine.Recognize(ctx, in)
		ch <- outcome{res, err}
	}()
	select {
	case <-ctx.Done():
		return ocr.Result{}, ctx.Err()
	case o := <-ch:
		return o.res, o.err
	}
}

// line is a group of tokens sharing a baseline, in reading order.
type line struct {
	tokens []ocr.Token
}

func (l line) text() string {
	parts := make([]string, len(l.tokens))
	for i, t := range l.tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

// groupLines buckets tokens into lines by vertical-center proximity and
// orders each line left to right.
func groupLines(tokens []ocr.Token) []line {
	sorted := append([]ocr.Token(nil), tokens...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Bounds.Y+sorted[i].Bounds.Height/2 < sorted[j].Bounds.Y+sorted[j].Bounds.Height/2
	})

	var lines []line
	for _, t := range sorted {
		cy := t.Bounds.Y + t.Bounds.Height/2
		placed := false
		if n := len(lines); n > 0 {
			last := lines[n-1].tokens[0]
			lcy := last.Bounds.Y + last.Bounds.Height/2
			tol := last.Bounds.Height / 2
			if tol < 4 {
				tol = 4
			}
			if cy-lcy <= tol {
				lines[n-1].tokens = append(lines[n-1].tokens, t)
				placed = true
			}
		}
		if !placed {
			lines = append(lines, line{tokens: []ocr.Token{t}})
		}
	}
	for i := range lines {
		sort.SliceStable(lines[i].tokens, func(a, b int) bool {
			return lines[i].tokens[a].Bounds.X < lines[i].tokens[b].Bounds.X
		})
	}
	return lines
}

// aggregate applies the field heuristics over the token lines. Fields that
// cannot be located are omitted; fields located but failing validation are
// kept with Valid false.
func aggregate(tokens []ocr.Token) []Field {
	if len(tokens) == 0 {
		return nil
	}
	lines := groupLines(tokens)

	var fields []Field
	if f, ok := labelAnchored(lines, FieldName, "name"); ok {
		f.Valid = f.Value != ""
		fields = append(fields, f)
	}
	if f, ok := dateOfBirth(lines); ok {
		fields = append(fields, f)
	}
	if f, ok := labelAnchored(lines, FieldAddress, "address", "addr"); ok {
		f.Valid = f.Value != ""
		fields = append(fields, f)
	}
	if f, ok := numericField(lines, FieldABN, 11, ValidABN, "abn"); ok {
		fields = append(fields, f)
	}
	if f, ok := numericField(lines, FieldACN, 9, ValidACN, "acn"); ok {
		fields = append(fields, f)
	}
	if f, ok := postcode(lines); ok {
		fields = append(fields, f)
	}
	return fields
}

// labelAnchored finds a line starting with one of the labels and takes the
// remainder of the line as the value.
func labelAnchored(lines []line, field string, labels ...string) (Field, bool) {
	for _, l := range lines {
		idx := labelIndex(l, labels)
		if idx < 0 || idx+1 >= len(l.tokens) {
			continue
		}
		value := l.tokens[idx+1:]
		return Field{
			Name:       field,
			Value:      tokensText(value),
			Confidence: weightedConfidence(value),
		}, true
	}
	return Field{}, false
}

func labelIndex(l line, labels []string) int {
	for i, t := range l.tokens {
		norm := strings.ToLower(strings.Trim(t.Text, ":.,"))
		for _, lbl := range labels {
			if norm == lbl {
				return i
			}
		}
	}
	return -1
}

// dateOfBirth looks for a parseable date, preferring lines carrying a DOB
// label. The value is normalized to ISO 8601; an unparseable labeled value
// is reported raw with Valid false.
func dateOfBirth(lines []line) (Field, bool) {
	var fallback *Field
	for _, l := range lines {
		labeled := strings.Contains(strings.ToLower(l.text()), "birth") ||
			labelIndex(l, []string{"dob"}) >= 0
		for _, t := range l.tokens {
			norm, ok := NormalizeDate(strings.Trim(t.Text, ":.,"))
			if ok {
				f := Field{Name: FieldDateOfBirth, Value: norm, Confidence: weightedConfidence([]ocr.Token{t}), Valid: true}
				if labeled {
					return f, true
				}
				if fallback == nil {
					fallback = &f
				}
			}
		}
		if labeled && fallback == nil {
			// A DOB label with no parseable date still reports the
			// raw trailing token.
			if idx := labelIndex(l, []string{"dob", "birth"}); idx >= 0 && idx+1 < len(l.tokens) {
				value := l.tokens[idx+1:]
				f := Field{Name: FieldDateOfBirth, Value: tokensText(value), Confidence: weightedConfidence(value)}
				fallback = &f
			}
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Field{}, false
}

// numericField finds a digit run of the expected length, preferring
// label-anchored candidates, then checksum-valid unlabeled ones. A labeled
// candidate failing its checksum is still reported with Valid false.
func numericField(lines []line, field string, length int, valid func(string) bool, label string) (Field, bool) {
	var best *Field
	for _, l := range lines {
		labeled := labelIndex(l, []string{label}) >= 0
		for _, r := range digitRuns(l) {
			if len(r.digits) != length {
				continue
			}
			f := Field{Name: field, Value: r.digits, Confidence: r.conf, Valid: valid(r.digits)}
			switch {
			case labeled:
				return f, true
			case f.Valid && (best == nil || !best.Valid):
				best = &f
			case best == nil:
				best = &f
			}
		}
	}
	if best != nil {
		return *best, true
	}
	return Field{}, false
}

// postcode matches exactly-four-digit tokens, preferring the last candidate
// on address-bearing lines (Australian addresses end with the postcode).
func postcode(lines []line) (Field, bool) {
	var fallback *Field
	for _, l := range lines {
		onAddress := labelIndex(l, []string{"address", "addr"}) >= 0
		var lineLast *Field
		for _, t := range l.tokens {
			trimmed := strings.Trim(t.Text, ":.,")
			if len(trimmed) != 4 || digitsOnly(trimmed) != trimmed {
				continue
			}
			f := Field{Name: FieldPostcode, Value: trimmed, Confidence: weightedConfidence([]ocr.Token{t}), Valid: ValidPostcode(trimmed)}
			if onAddress {
				lineLast = &f // addresses end with the postcode
			} else if fallback == nil {
				fallback = &f
			}
		}
		if lineLast != nil {
			return *lineLast, true
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Field{}, false
}

type digitRun struct {
	digits string
	conf   float64
}

// digitRuns joins adjacent digit-bearing tokens on a line into contiguous
// digit strings, in reading order.
func digitRuns(l line) []digitRun {
	var runs []digitRun
	var cur []ocr.Token
	flush := func() {
		if len(cur) == 0 {
			return
		}
		var b strings.Builder
		for _, t := range cur {
			b.WriteString(digitsOnly(t.Text))
		}
		if b.Len() > 0 {
			runs = append(runs, digitRun{digits: b.String(), conf: weightedConfidence(cur)})
		}
		cur = nil
	}
	for _, t := range l.tokens {
		d := digitsOnly(t.Text)
		if d == "" || len(d) < len(strings.Trim(t.Text, ":.,"))/2 {
			flush()
			continue
		}
		cur = append(cur, t)
	}
	flush()
	return runs
}

func tokensText(tokens []ocr.Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = strings.Trim(t.Text, ",")
	}
	return strings.Join(parts, " ")
}

// weightedConfidence is the length-weighted mean token confidence. Tokens
// of one or two characters carry half weight: an isolated high-confidence
// "a" should not dominate a field's score.
func weightedConfidence(tokens []ocr.Token) float64 {
	var num, den float64
	for _, t := range tokens {
		w := float64(len([]rune(t.Text)))
		if w == 0 {
			continue
		}
		if w <= 2 {
			w /= 2
		}
		num += w * t.Confidence
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}
