package content

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeSource struct {
	texts     []string
	countErr  error
	renders   int
	textCalls int
	closed    bool
}

func (f *fakeSource) PageCount(context.Context) (int, error) { return len(f.texts), f.countErr }

func (f *fakeSource) PageText(_ context.Context, page int) (string, error) {
	f.textCalls++
	return f.texts[page-1], nil
}

func (f *fakeSource) RenderPage(_ context.Context, page int) (Image, error) {
	f.renders++
	return Image{MIMEType: "image/png", Data: []byte{byte(page)}}, nil
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type fakeOpener struct {
	src *fakeSource
	err error
}

func (o fakeOpener) Open(context.Context, string) (PageSource, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.src, nil
}

var longText = strings.Repeat("photosynthesis converts light ", 4)

func TestPagesStopsAtCeiling(t *testing.T) {
	src := &fakeSource{texts: []string{longText, longText, longText, longText, longText}}
	doc, err := NewExtractor(fakeOpener{src: src}, nil).Open(context.Background(), "x.pdf", 3)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for g, err := range doc.Pages(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		n++
		if g.Page != n {
			t.Fatalf("page %d out of order at %d", g.Page, n)
		}
	}
	if n != 3 || doc.PageCount() != 3 || doc.TotalPages() != 5 {
		t.Fatalf("got %d groups, count=%d total=%d", n, doc.PageCount(), doc.TotalPages())
	}
	if src.textCalls != 3 {
		t.Fatalf("read %d pages, want 3", src.textCalls)
	}
}

func TestThresholdBoundary(t *testing.T) {
	fifty := strings.Repeat("a", 50)
	fiftyOne := strings.Repeat("é", 51)
	src := &fakeSource{texts: []string{"  " + fifty + "\n", fiftyOne}}
	doc, err := NewExtractor(fakeOpener{src: src}, nil).Open(context.Background(), "x.pdf", 20)
	if err != nil {
		t.Fatal(err)
	}
	var groups []PageGroup
	for g, err := range doc.Pages(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		groups = append(groups, g)
	}
	if !groups[0].Scanned || len(groups[0].Fragments) != 3 {
		t.Fatalf("50 chars should render, got %+v", groups[0])
	}
	if groups[1].Scanned || len(groups[1].Fragments) != 1 {
		t.Fatalf("51 runes should stay text, got %+v", groups[1])
	}
	if got := groups[1].Fragments[0].(Text); got != Text("--- Page 2 ---\n"+fiftyOne) {
		t.Fatalf("text fragment = %q", got)
	}
}

func TestScannedPageFlankedByMarkers(t *testing.T) {
	src := &fakeSource{texts: []string{longText, "Fig. 2 map", longText}}
	frags, err := NewExtractor(fakeOpener{src: src}, nil).ExtractFile(context.Background(), "x.pdf", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 5 {
		t.Fatalf("want 5 fragments, got %d", len(frags))
	}
	if frags[1] != Text("--- Page 2 ---") || frags[3] != Text("--- End of Page 2 ---") {
		t.Fatalf("markers wrong: %v %v", frags[1], frags[3])
	}
	img, ok := frags[2].(Image)
	if !ok || img.MIMEType != "image/png" || img.Data[0] != 2 {
		t.Fatalf("want page 2 image, got %#v", frags[2])
	}
	if !strings.HasPrefix(string(frags[4].(Text)), "--- Page 3 ---\n") {
		t.Fatalf("page 3 fragment = %q", frags[4])
	}
	if src.renders != 1 || !src.closed {
		t.Fatalf("renders=%d closed=%v", src.renders, src.closed)
	}
}

func TestPagesRestartable(t *testing.T) {
	src := &fakeSource{texts: []string{longText, longText}}
	doc, err := NewExtractor(fakeOpener{src: src}, nil).Open(context.Background(), "x.pdf", 20)
	if err != nil {
		t.Fatal(err)
	}
	first, err := Collect(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Collect(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 || len(second) != 2 || first[0] != second[0] {
		t.Fatalf("second pass differs: %v vs %v", first, second)
	}
}

func TestEarlyBreakStopsReading(t *testing.T) {
	src := &fakeSource{texts: []string{longText, longText, longText}}
	doc, _ := NewExtractor(fakeOpener{src: src}, nil).Open(context.Background(), "x.pdf", 20)
	for range doc.Pages(context.Background()) {
		break
	}
	if src.textCalls != 1 {
		t.Fatalf("read %d pages after break", src.textCalls)
	}
}

func TestOpenFailures(t *testing.T) {
	boom := errors.New("boom")
	ex := NewExtractor(fakeOpener{err: boom}, nil)
	if doc, err := ex.Open(context.Background(), "x.pdf", 20); !errors.Is(err, boom) || doc != nil {
		t.Fatalf("open: doc=%v err=%v", doc, err)
	}
	src := &fakeSource{countErr: boom}
	ex = NewExtractor(fakeOpener{src: src}, nil)
	if _, err := ex.ExtractFile(context.Background(), "x.pdf", 20); !errors.Is(err, boom) {
		t.Fatalf("count: %v", err)
	}
	if !src.closed {
		t.Fatal("source left open after count failure")
	}
}

func TestCancelledContextStops(t *testing.T) {
	src := &fakeSource{texts: []string{longText}}
	doc, _ := NewExtractor(fakeOpener{src: src}, nil).Open(context.Background(), "x.pdf", 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if frags, err := Collect(ctx, doc); err == nil || frags != nil {
		t.Fatalf("want error and no fragments, got %v %v", frags, err)
	}
}

func TestParsePageCount(t *testing.T) {
	out := "Title:          Cells\nProducer:       x\nPages:          12\nEncrypted:      no\n"
	n, err := parsePageCount(out)
	if err != nil || n != 12 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if _, err := parsePageCount("Title: nothing\n"); err == nil {
		t.Fatal("expected error without Pages line")
	}
}
