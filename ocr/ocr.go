// Package ocr defines the abstraction layer for plugging third-party OCR
// engines (for example, Tesseract or cloud services) into the verification
// pipeline. The interfaces are intentionally small and transport-agnostic so
// engines can be backed by local binaries, native libraries, or remote APIs
// without leaking provider-specific concerns into callers.
package ocr

import (
	"context"
	"errors"
	"fmt"

	"docverify/imageio"
)

// ErrEngineUnavailable reports an engine that is missing or misconfigured.
// It is fatal at batch start: no document can be extracted without one.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
	ImageFormatTIFF ImageFormat = "image/tiff"
)

// Region describes a rectangular area in pixel coordinates with the origin
// in the upper-left corner of the image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input encapsulates a single image submitted for recognition.
type Input struct {
	// ID is an optional caller-provided identifier that is echoed back in
	// the corresponding Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image []byte
	// Format declares the image content type (e.g., image/png).
	Format ImageFormat
	// DPI carries the effective dots-per-inch for the image. Providers
	// such as Tesseract use this for scaling heuristics; zero means
	// unknown.
	DPI int
	// Languages is a list of language hints (e.g., "eng") that providers
	// can use to select trained data.
	Languages []string
	// Metadata allows callers to pass through engine-specific knobs (e.g.,
	// "psm" for Tesseract) without hard-coding them into the API surface.
	Metadata map[string]string
}

// Token is a single recognized text token.
type Token struct {
	Text   string
	Bounds Region
	// Confidence is the engine's per-token confidence on a 0..100 scale.
	Confidence float64
}

// Result captures OCR output for a single input image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// PlainText contains the linearized text extracted from the image.
	PlainText string
	// Tokens carries the recognized tokens in reading order.
	Tokens []Token
	// Confidence is the mean token confidence, 0..100.
	Confidence float64
}

// Engine is the OCR provider contract: one image in, one result out. Calls
// are stateless; implementations must be safe for sequential reuse across a
// batch.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// Prober is implemented by engines that can verify their own availability
// up front. The batch pipeline probes once before processing any document
// so a missing engine fails fast instead of mid-batch.
type Prober interface {
	Available(ctx context.Context) error
}

// Probe checks engine availability if the engine supports it. Engines
// without a probe are assumed available.
func Probe(ctx context.Context, engine Engine) error {
	p, ok := engine.(Prober)
	if !ok {
		return nil
	}
	if err := p.Available(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

// InputOption mutates an OCR input generated from a document image.
type InputOption func(*Input)

// WithLanguages sets language hints on the OCR input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithDPI overrides the DPI value on the OCR input.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithMetadata sets provider-specific metadata for the input.
func WithMetadata(metadata map[string]string) InputOption {
	return func(in *Input) {
		if len(metadata) == 0 {
			in.Metadata = nil
			return
		}
		in.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			in.Metadata[k] = v
		}
	}
}

// InputFromDocument converts a decoded document image into an OCR input
// using PNG encoding. The input ID mirrors the document ID to simplify
// correlation with downstream results.
func InputFromDocument(doc *imageio.DocumentImage, opts ...InputOption) (Input, error) {
	data, err := doc.ToPNG()
	if err != nil {
		return Input{}, fmt.Errorf("encode document: %w", err)
	}
	in := Input{
		ID:     doc.ID,
		Image:  data,
		Format: ImageFormatPNG,
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}

// NopEngine recognizes nothing. It stands in where recognition output is
// not needed, mirroring the zero-value semantics of an empty scan.
type NopEngine struct{}

func (NopEngine) Name() string { return "nop" }

func (NopEngine) Recognize(_ context.Context, input Input) (Result, error) {
	return Result{InputID: input.ID}, nil
}
