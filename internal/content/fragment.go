package content

import "fmt"

// Fragment is one unit of content submitted to the model, in document order.
// The only implementations are Text and Image.
type Fragment interface {
	isFragment()
}

// Text is plain text, including page boundary markers.
type Text string

// Image is an encoded raster (PNG or JPEG, occasionally WebP).
type Image struct {
	MIMEType string
	Data     []byte
}

func (Text) isFragment()  {}
func (Image) isFragment() {}

// PageGroup holds the fragments emitted for one page.
type PageGroup struct {
	Page      int // 1-based
	Scanned   bool
	Fragments []Fragment
}

func pageMarker(n int) Text    { return Text(fmt.Sprintf("--- Page %d ---", n)) }
func endPageMarker(n int) Text { return Text(fmt.Sprintf("--- End of Page %d ---", n)) }
