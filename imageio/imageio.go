// Package imageio loads document scans into immutable in-memory images.
// Supported formats are JPEG, PNG, BMP and TIFF. The package owns decoding
// and the typed errors distinguishing corrupt files from degenerate (too
// small to measure) images; everything downstream only reads pixels.
package imageio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// MinDimension is the smallest usable width or height in pixels. Smaller
// images cannot support the quality metrics (several divide by
// dimension-derived quantities).
const MinDimension = 50

// DocumentImage is a decoded document scan. The pixel data is owned by the
// caller and treated as read-only by every component in this module.
type DocumentImage struct {
	// ID identifies the document across results and batch error lists.
	ID string
	// Image is the decoded pixel buffer. Never mutated by this module.
	Image image.Image
	// Width and Height are the observed pixel dimensions.
	Width  int
	Height int
}

// DecodeError reports a corrupt or unsupported image file.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DegenerateError reports an image too small to measure.
type DegenerateError struct {
	ID            string
	Width, Height int
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("image %s is %dx%d px, below the %d px minimum", e.ID, e.Width, e.Height, MinDimension)
}

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tiff": true,
}

// SupportedExtension reports whether the file extension names an accepted
// input format.
func SupportedExtension(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Open reads and decodes an image file. The document ID defaults to the file
// name without extension.
func Open(path string) (*DocumentImage, error) {
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if !SupportedExtension(path) {
		return nil, &DecodeError{ID: id, Err: fmt.Errorf("unsupported extension %q", filepath.Ext(path))}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{ID: id, Err: err}
	}
	defer f.Close()
	return Decode(id, f)
}

// Decode decodes an image stream into a DocumentImage.
func Decode(id string, r io.Reader) (*DocumentImage, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, &DecodeError{ID: id, Err: err}
	}
	return FromImage(id, img)
}

// FromImage wraps an already-decoded image, enforcing the minimum usable
// size.
func FromImage(id string, img image.Image) (*DocumentImage, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < MinDimension || h < MinDimension {
		return nil, &DegenerateError{ID: id, Width: w, Height: h}
	}
	return &DocumentImage{ID: id, Image: img, Width: w, Height: h}, nil
}

// ToPNG encodes the pixel buffer as PNG, the interchange format handed to
// OCR engines.
func (d *DocumentImage) ToPNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, d.Image); err != nil {
		return nil, fmt.Errorf("encode %s as png: %w", d.ID, err)
	}
	return buf.Bytes(), nil
}

// Fingerprint returns a stable hex digest of the pixel content. Two images
// with identical pixels fingerprint identically regardless of source
// encoding.
func (d *DocumentImage) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	b := d.Image.Bounds()
	var px [8]byte
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := d.Image.At(x, y).RGBA()
			binary.BigEndian.PutUint16(px[0:], uint16(r))
			binary.BigEndian.PutUint16(px[2:], uint16(g))
			binary.BigEndian.PutUint16(px[4:], uint16(bl))
			binary.BigEndian.PutUint16(px[6:], uint16(a))
			h.Write(px[:])
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Luminance converts the image to an 8-bit grayscale plane using the
// standard Rec. 601 weights. The result is a fresh buffer.
func Luminance(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// 16-bit channel values scaled back to 8 bits.
			lum := (299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: uint8(lum)})
		}
	}
	return gray
}
