package figure

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/gompdf/pagedit/internal/res"
)

// Payload is an acquired image ready to place in a figure.
type Payload struct {
	// Src is a data URI.
	Src      string
	MimeType string
	// Width and Height are the natural size in px.
	Width  float64
	Height float64
}

// Source yields an image payload, for example from a file picker or the
// clipboard.
type Source interface {
	Acquire(ctx context.Context) (Payload, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Payload, error)

// Acquire implements Source.
func (f SourceFunc) Acquire(ctx context.Context) (Payload, error) { return f(ctx) }

// Acquired is the outcome of an asynchronous acquisition.
type Acquired struct {
	Payload Payload
	Err     error
}

// Acquire runs src in the background. The channel receives exactly one
// value and is then closed.
func Acquire(ctx context.Context, src Source) <-chan Acquired {
	ch := make(chan Acquired, 1)
	go func() {
		defer close(ch)
		p, err := src.Acquire(ctx)
		ch <- Acquired{Payload: p, Err: err}
	}()
	return ch
}

// LoaderSource acquires an image by URL, file path or data URL.
type LoaderSource struct {
	Loader *res.Loader
	URL    string
}

// Acquire implements Source.
func (s LoaderSource) Acquire(ctx context.Context) (Payload, error) {
	r, err := s.Loader.LoadImage(ctx, s.URL)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to load image %q: %w", s.URL, err)
	}
	return Decode(r.Data, r.MimeType)
}

// svgRasterWidth is the width SVG figures are rasterized at when their
// view box gives no usable size.
const svgRasterWidth = 600

// Decode reads the natural size of raster data and wraps it in a data URI.
// SVG input is rasterized to PNG.
func Decode(data []byte, mime string) (Payload, error) {
	if len(data) == 0 {
		return Payload{}, ErrEmptyPayload
	}
	if mime == "image/svg+xml" || (mime == "" && bytes.Contains(data[:min(len(data), 512)], []byte("<svg"))) {
		return rasterizeSVG(data)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Payload{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = "image/" + format
	}
	return Payload{
		Src:      res.DataURL(mime, data),
		MimeType: mime,
		Width:    float64(cfg.Width),
		Height:   float64(cfg.Height),
	}, nil
}

func rasterizeSVG(data []byte) (Payload, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return Payload{}, fmt.Errorf("failed to parse SVG: %w", err)
	}
	w, h := int(icon.ViewBox.W), int(icon.ViewBox.H)
	if w <= 0 || h <= 0 {
		w, h = svgRasterWidth, int(svgRasterWidth*0.75)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Payload{}, fmt.Errorf("failed to encode SVG raster: %w", err)
	}
	return Payload{
		Src:      res.DataURL("image/png", buf.Bytes()),
		MimeType: "image/png",
		Width:    float64(w),
		Height:   float64(h),
	}, nil
}
