package content

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedType = errors.New("unsupported file type")

// MaxImageSide bounds the longer edge of images sent to the model.
const MaxImageSide = 3072

type Kind int

const (
	KindOther Kind = iota
	KindPDF
	KindImage
)

// Detect classifies an upload by its leading bytes, falling back to the
// client supplied content type when sniffing is inconclusive.
func Detect(head []byte, declared string) (Kind, string) {
	m := mimetype.Detect(head)
	switch {
	case m.Is("application/pdf"):
		return KindPDF, m.String()
	case isImageMIME(m):
		return KindImage, m.String()
	case declared == "application/pdf" && m.Is("application/octet-stream"):
		return KindPDF, declared
	}
	return KindOther, m.String()
}

func isImageMIME(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

// ImageFragments turns an uploaded image into an Image fragment followed by
// its source marker. PNG and JPEG pass through; other raster formats are
// re-encoded to PNG.
func ImageFragments(name string, data []byte) ([]Fragment, error) {
	img, err := normalizeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return []Fragment{img, Text(fmt.Sprintf("[Image Source: %s]", name))}, nil
}

func normalizeImage(data []byte) (Image, error) {
	mt := mimetype.Detect(data).String()
	switch mt {
	case "image/png", "image/jpeg":
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return Image{}, fmt.Errorf("decode %s: %w", mt, err)
		}
		if cfg.Width <= MaxImageSide && cfg.Height <= MaxImageSide {
			return Image{MIMEType: mt, Data: data}, nil
		}
	case "image/gif", "image/bmp", "image/x-ms-bmp", "image/tiff", "image/webp":
	default:
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mt)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("decode %s: %w", mt, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, fit(src, MaxImageSide)); err != nil {
		return Image{}, fmt.Errorf("encode png: %w", err)
	}
	return Image{MIMEType: "image/png", Data: buf.Bytes()}, nil
}

// fit scales src down so neither edge exceeds side.
func fit(src image.Image, side int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= side && h <= side {
		return src
	}
	if w >= h {
		h = max(1, h*side/w)
		w = side
	} else {
		w = max(1, w*side/h)
		h = side
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
