// Package media decodes, crops and re-encodes the bitmaps carried in
// project documents as data URIs.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"regexp"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/geometry"
)

// Output formats
const (
	FormatWebP = "webp"
	FormatPNG  = "png"
)

var (
	// ErrUnsupportedData is returned when bytes cannot be decoded as an image.
	ErrUnsupportedData = errors.New("unsupported image data")
	// ErrEmptyCrop is returned when the crop rectangle has no pixels inside the image.
	ErrEmptyCrop = errors.New("crop rectangle is empty")
)

var dataURIPattern = regexp.MustCompile(`^data:image/([\w.+-]+);base64,`)

// ImageProcessor crops and re-encodes bitmaps.
type ImageProcessor struct {
	format  string
	quality float32
}

// NewImageProcessor creates a processor that encodes to format ("webp" or
// "png") with the given webp quality (1-100).
func NewImageProcessor(format string, quality int) *ImageProcessor {
	if format != FormatPNG {
		format = FormatWebP
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	return &ImageProcessor{format: format, quality: float32(quality)}
}

// Format returns the output format.
func (p *ImageProcessor) Format() string { return p.format }

// DecodeDataURI strips the data URI prefix and returns the raw bytes and the
// declared subtype (png, jpeg, webp...).
func DecodeDataURI(data string) ([]byte, string, error) {
	if data == "" {
		return nil, "", fmt.Errorf("empty data uri: %w", ErrUnsupportedData)
	}
	match := dataURIPattern.FindStringSubmatch(data)
	if match == nil {
		return nil, "", fmt.Errorf("invalid image data uri: %w", ErrUnsupportedData)
	}
	decoded, err := base64.StdEncoding.DecodeString(data[len(match[0]):])
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %v: %w", err, ErrUnsupportedData)
	}
	return decoded, strings.ToLower(match[1]), nil
}

// EncodeDataURI wraps raw bytes in a data URI of the given subtype.
func EncodeDataURI(raw []byte, subtype string) string {
	return fmt.Sprintf("data:image/%s;base64,%s", subtype, base64.StdEncoding.EncodeToString(raw))
}

// DecodeImage decodes PNG, JPEG, GIF, BMP, TIFF or WebP bytes.
func DecodeImage(raw []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	if img, webpErr := webp.Decode(bytes.NewReader(raw)); webpErr == nil {
		return img, nil
	}
	return nil, fmt.Errorf("failed to decode image: %v: %w", err, ErrUnsupportedData)
}

// Encode encodes img in the processor's format and returns a data URI.
func (p *ImageProcessor) Encode(img image.Image) (string, error) {
	var buf bytes.Buffer
	switch p.format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("failed to encode png: %w", err)
		}
	default:
		if err := webp.Encode(&buf, img, &webp.Options{Quality: p.quality}); err != nil {
			return "", fmt.Errorf("failed to encode webp: %w", err)
		}
	}
	return EncodeDataURI(buf.Bytes(), p.format), nil
}

// Resave decodes a data URI, re-encodes it and reports its natural size.
func (p *ImageProcessor) Resave(data string) (string, int, int, error) {
	raw, _, err := DecodeDataURI(data)
	if err != nil {
		return "", 0, 0, err
	}
	return p.EncodeBytes(raw)
}

// EncodeBytes decodes raw image bytes, re-encodes them and reports their
// natural size.
func (p *ImageProcessor) EncodeBytes(raw []byte) (string, int, int, error) {
	img, err := DecodeImage(raw)
	if err != nil {
		return "", 0, 0, err
	}
	uri, err := p.Encode(img)
	if err != nil {
		return "", 0, 0, err
	}
	bounds := img.Bounds()
	return uri, bounds.Dx(), bounds.Dy(), nil
}

// Crop cuts the pixel box out of the bitmap in data and encodes the result.
// The box is rounded to whole pixels and clipped to the image.
func (p *ImageProcessor) Crop(data string, box geometry.Box) (string, error) {
	raw, _, err := DecodeDataURI(data)
	if err != nil {
		return "", err
	}
	img, err := DecodeImage(raw)
	if err != nil {
		return "", err
	}

	bounds := img.Bounds()
	rect := box.Rectangle().Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return "", fmt.Errorf("box %v on %dx%d image: %w", box, bounds.Dx(), bounds.Dy(), ErrEmptyCrop)
	}

	return p.Encode(imaging.Crop(img, rect))
}
