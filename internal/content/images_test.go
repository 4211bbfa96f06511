package content

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"
)

func encode(t *testing.T, w, h int, enc func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pngEnc(b *bytes.Buffer, i image.Image) error { return png.Encode(b, i) }
func gifEnc(b *bytes.Buffer, i image.Image) error { return gif.Encode(b, i, nil) }

func TestImageFragmentsPassesPNGThrough(t *testing.T) {
	data := encode(t, 4, 4, pngEnc)
	frags, err := ImageFragments("diagram.png", data)
	if err != nil {
		t.Fatal(err)
	}
	img := frags[0].(Image)
	if img.MIMEType != "image/png" || !bytes.Equal(img.Data, data) {
		t.Fatalf("png should pass through unchanged")
	}
	if frags[1] != Text("[Image Source: diagram.png]") {
		t.Fatalf("marker = %q", frags[1])
	}
}

func TestImageFragmentsReencodesGIF(t *testing.T) {
	frags, err := ImageFragments("anim.gif", encode(t, 4, 4, gifEnc))
	if err != nil {
		t.Fatal(err)
	}
	img := frags[0].(Image)
	if img.MIMEType != "image/png" {
		t.Fatalf("mime = %s", img.MIMEType)
	}
	if _, err := png.Decode(bytes.NewReader(img.Data)); err != nil {
		t.Fatalf("not a png: %v", err)
	}
}

func TestImageFragmentsDownscalesLargeImages(t *testing.T) {
	frags, err := ImageFragments("wide.png", encode(t, MaxImageSide*2, 10, pngEnc))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(frags[0].(Image).Data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != MaxImageSide || cfg.Height != 5 {
		t.Fatalf("got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestImageFragmentsRejectsNonImages(t *testing.T) {
	_, err := ImageFragments("notes.txt", []byte("just some text"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("want ErrUnsupportedType, got %v", err)
	}
}

func TestDetect(t *testing.T) {
	if k, _ := Detect([]byte("%PDF-1.7\n%âãÏÓ\n"), ""); k != KindPDF {
		t.Fatalf("pdf detected as %v", k)
	}
	if k, _ := Detect(encode(t, 2, 2, pngEnc), "application/octet-stream"); k != KindImage {
		t.Fatalf("png detected as %v", k)
	}
	if k, _ := Detect([]byte("hello"), "text/plain"); k != KindOther {
		t.Fatalf("text detected as %v", k)
	}
}
