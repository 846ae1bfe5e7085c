package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"github.com/gompdf/pagedit/internal/layout"

	// Formats fpdf cannot embed directly are decoded and re-encoded as PNG.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// renderImage draws a figure image. Images that cannot be loaded are
// outlined instead.
func (e *Exporter) renderImage(st *page, box *layout.ImageBox) {
	x, y := box.X*pxToPt, box.Y*pxToPt
	w, h := box.Width*pxToPt, box.Height*pxToPt

	name, err := e.registerImage(st, box.Src)
	if err != nil {
		e.logger.Warn("Skipping image", "err", err)
		st.pdf.SetDrawColor(180, 180, 180)
		st.pdf.SetLineWidth(0.5)
		st.pdf.Rect(x, y, w, h, "D")
		return
	}
	st.pdf.ImageOptions(name, x, y, w, h, false, fpdf.ImageOptions{}, 0, "")
}

// registerImage loads src once per export and returns its fpdf name.
func (e *Exporter) registerImage(st *page, src string) (string, error) {
	if name, ok := st.images[src]; ok {
		return name, nil
	}
	if src == "" {
		return "", fmt.Errorf("image without source")
	}
	r, err := e.loader.LoadImage(st.ctx, src)
	if err != nil {
		return "", err
	}

	data, kind, err := embeddable(r.Data, r.MimeType)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("img%d", len(st.images))
	st.pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: kind}, bytes.NewReader(data))
	if err := st.pdf.Error(); err != nil {
		st.pdf.ClearError()
		return "", fmt.Errorf("failed to embed image: %w", err)
	}
	st.images[src] = name
	return name, nil
}

// embeddable returns data in a format fpdf embeds, with its type name.
func embeddable(data []byte, mime string) ([]byte, string, error) {
	switch strings.ToLower(mime) {
	case "image/png":
		return data, "PNG", nil
	case "image/jpeg", "image/jpg":
		return data, "JPG", nil
	case "image/gif":
		return data, "GIF", nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s image: %w", mime, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to convert image: %w", err)
	}
	return buf.Bytes(), "PNG", nil
}
