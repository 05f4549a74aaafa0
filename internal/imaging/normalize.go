// Package imaging turns kiosk camera captures into model input tensors.
//
// The conversion is lossy but deterministic: the payload is base64 decoded,
// decoded as JPEG, PNG, GIF, BMP or WebP, flattened to three color channels
// by dropping alpha (never compositing), resized with nearest-neighbour
// sampling and scaled to [0,1].
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Channels is the number of color channels in every tensor.
const Channels = 3

// DefaultMaxPayloadBytes bounds the decoded payload size.
const DefaultMaxPayloadBytes = 10 << 20

// DefaultMaxPixels bounds the source image area, checked from the header before decoding.
const DefaultMaxPixels = 4096 * 4096

var (
	// ErrDecode marks payloads that are not valid base64 or not a recognised image container.
	ErrDecode = errors.New("image decode failed")
	// ErrImageTooLarge marks images whose header declares more than the allowed pixel count.
	ErrImageTooLarge = errors.New("image dimensions too large")
)

// ProcessingError wraps every normalizer failure.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string {
	return "image processing: " + e.Err.Error()
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Size is a target width and height in pixels.
type Size struct {
	Width  int
	Height int
}

// Tensor is a single-image batch in NHWC layout: Shape is [1, height, width, 3].
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// At returns the value at row y, column x, channel c of the only image in the batch.
func (t *Tensor) At(y, x, c int) float32 {
	return t.Data[(y*t.Shape[2]+x)*Channels+c]
}

// Width returns the tensor's image width.
func (t *Tensor) Width() int { return t.Shape[2] }

// Height returns the tensor's image height.
func (t *Tensor) Height() int { return t.Shape[1] }

// Normalizer converts encoded images into tensors.
type Normalizer struct {
	maxPayloadBytes int
	maxPixels       int64
}

// NewNormalizer creates a Normalizer. Non-positive limits use
// DefaultMaxPayloadBytes and DefaultMaxPixels.
func NewNormalizer(maxPayloadBytes, maxPixels int) *Normalizer {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = DefaultMaxPayloadBytes
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Normalizer{maxPayloadBytes: maxPayloadBytes, maxPixels: int64(maxPixels)}
}

// Normalize decodes encoded and produces a tensor of the given size.
// Everything up to and including the first comma is treated as a data-URI prefix.
func (n *Normalizer) Normalize(encoded string, size Size) (*Tensor, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, &ProcessingError{Err: fmt.Errorf("invalid target size %dx%d", size.Width, size.Height)}
	}

	payload := encoded
	if idx := strings.IndexByte(payload, ','); idx >= 0 {
		payload = payload[idx+1:]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, &ProcessingError{Err: fmt.Errorf("%w: empty payload", ErrDecode)}
	}

	// Reject before allocating for obviously oversized input.
	if base64.StdEncoding.DecodedLen(len(payload)) > n.maxPayloadBytes+2 {
		return nil, &ProcessingError{Err: fmt.Errorf("payload exceeds %d bytes", n.maxPayloadBytes)}
	}

	raw, err := decodeBase64(payload)
	if err != nil {
		return nil, &ProcessingError{Err: fmt.Errorf("%w: base64: %v", ErrDecode, err)}
	}
	if len(raw) > n.maxPayloadBytes {
		return nil, &ProcessingError{Err: fmt.Errorf("payload exceeds %d bytes", n.maxPayloadBytes)}
	}

	// A small compressed payload can declare a huge bitmap; check the header first.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, &ProcessingError{Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &ProcessingError{Err: fmt.Errorf("%w: empty image %dx%d", ErrDecode, cfg.Width, cfg.Height)}
	}
	if int64(cfg.Width)*int64(cfg.Height) > n.maxPixels {
		return nil, &ProcessingError{Err: fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, n.maxPixels)}
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &ProcessingError{Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}

	rgb := toOpaqueRGB(src)

	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), rgb, rgb.Bounds(), draw.Src, nil)

	return toTensor(dst), nil
}

func decodeBase64(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return raw, nil
	}
	// Some capture libraries strip the padding.
	if rawNoPad, errNoPad := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); errNoPad == nil {
		return rawNoPad, nil
	}
	return nil, err
}

// toOpaqueRGB copies src into an opaque RGBA image. Each pixel's straight
// (non-premultiplied) RGB is kept and alpha is forced to 255.
func toOpaqueRGB(src image.Image) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			i := out.PixOffset(x-b.Min.X, y-b.Min.Y)
			out.Pix[i+0] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			out.Pix[i+3] = 0xff
		}
	}
	return out
}

func toTensor(img *image.RGBA) *Tensor {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	data := make([]float32, 0, w*h*Channels)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			data = append(data, float32(p[0])/255, float32(p[1])/255, float32(p[2])/255)
		}
	}
	return &Tensor{Shape: [4]int{1, h, w, Channels}, Data: data}
}
