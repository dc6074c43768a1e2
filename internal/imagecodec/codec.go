// Package imagecodec turns base64 image payloads into RGB images ready for a
// vision model and back into the PNG bytes runtimes accept.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PNGPreamble is the data URI header browsers put in front of PNG payloads.
const PNGPreamble = "data:image/png;base64,"

// MaxPixels bounds the size an image header may declare. It is checked
// before any pixel buffer is allocated.
const MaxPixels = 64 << 20

var (
	ErrInvalidBase64 = errors.New("invalid base64 image data")
	ErrInvalidImage  = errors.New("invalid image data")
)

// StripDataURI removes a leading data URI header such as PNGPreamble.
// Input without a header is returned unchanged apart from surrounding space.
func StripDataURI(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, PNGPreamble) {
		return s[len(PNGPreamble):]
	}
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
		return s
	}
	return s[comma+1:]
}

// DecodeBase64 decodes standard base64, with or without padding. Line breaks
// and other whitespace inside the payload are ignored.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	enc := base64.StdEncoding
	if len(s)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	out, err := enc.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return out, nil
}

// Decode parses encoded image bytes. JPEG EXIF orientation is applied so the
// returned image is upright.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: unsupported size %dx%d (limit %d pixels)", ErrInvalidImage, cfg.Width, cfg.Height, MaxPixels)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if format == "jpeg" {
		if o := Orientation(data); o != 1 {
			img = Orient(img, o)
		}
	}
	return img, format, nil
}

// DecodeRGB runs the full input path: data URI removal, base64 decoding,
// image decoding and conversion to three opaque channels.
func DecodeRGB(payload string) (*image.NRGBA, error) {
	raw, err := DecodeBase64(StripDataURI(payload))
	if err != nil {
		return nil, err
	}
	img, _, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return ToRGB(img), nil
}

// ToRGB copies img into a zero-origin NRGBA image with every pixel opaque.
// Colour values are kept and the alpha channel is discarded, not composited.
func ToRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xff
			dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return dst
}

// Fit downscales img so neither side exceeds maxEdge, keeping the aspect
// ratio. maxEdge <= 0 disables scaling.
func Fit(img *image.NRGBA, maxEdge int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}
	scale := float64(maxEdge) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
