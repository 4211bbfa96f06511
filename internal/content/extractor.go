package content

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/mind-engage/formquiz/internal/logger"
)

// MinTextRunes is the trimmed text length a page needs to be sent as text.
// Pages at or below it are treated as scanned and rendered to an image.
const MinTextRunes = 50

// PageSource reads pages of an opened document. Pages are 1-based.
type PageSource interface {
	PageCount(ctx context.Context) (int, error)
	PageText(ctx context.Context, page int) (string, error)
	RenderPage(ctx context.Context, page int) (Image, error)
	Close() error
}

// Opener opens a document on disk.
type Opener interface {
	Open(ctx context.Context, path string) (PageSource, error)
}

type Extractor struct {
	opener Opener
	log    *logger.Logger
}

func NewExtractor(o Opener, log *logger.Logger) *Extractor {
	return &Extractor{opener: o, log: logger.OrNop(log).With("component", "extractor")}
}

// Document is an opened source limited to its first maxPages pages.
type Document struct {
	src   PageSource
	pages int
	total int
	log   *logger.Logger
}

// Open opens path and reads its page count. Any failure here is fatal for
// the caller; nothing is returned alongside an error.
func (e *Extractor) Open(ctx context.Context, path string, maxPages int) (*Document, error) {
	if maxPages <= 0 {
		return nil, fmt.Errorf("max pages must be positive, got %d", maxPages)
	}
	src, err := e.opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	total, err := src.PageCount(ctx)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("count pages: %w", err)
	}
	n := min(total, maxPages)
	if total > maxPages {
		e.log.Info("document truncated to page ceiling", "pages", total, "ceiling", maxPages)
	}
	return &Document{src: src, pages: n, total: total, log: e.log}, nil
}

// PageCount is the number of pages Pages will yield.
func (d *Document) PageCount() int { return d.pages }

// TotalPages is the page count of the underlying document.
func (d *Document) TotalPages() int { return d.total }

func (d *Document) Close() error { return d.src.Close() }

// Pages yields one group per page in increasing page order and stops at the
// page ceiling. Each range over the sequence starts again at page 1.
func (d *Document) Pages(ctx context.Context) iter.Seq2[PageGroup, error] {
	return func(yield func(PageGroup, error) bool) {
		for p := 1; p <= d.pages; p++ {
			if err := ctx.Err(); err != nil {
				yield(PageGroup{}, err)
				return
			}
			g, err := d.page(ctx, p)
			if !yield(g, err) || err != nil {
				return
			}
		}
	}
}

func (d *Document) page(ctx context.Context, p int) (PageGroup, error) {
	text, err := d.src.PageText(ctx, p)
	if err != nil {
		return PageGroup{}, fmt.Errorf("page %d text: %w", p, err)
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) > MinTextRunes {
		return PageGroup{
			Page:      p,
			Fragments: []Fragment{Text(fmt.Sprintf("%s\n%s", pageMarker(p), text))},
		}, nil
	}
	d.log.Debug("page has little text, rendering image", "page", p)
	img, err := d.src.RenderPage(ctx, p)
	if err != nil {
		return PageGroup{}, fmt.Errorf("page %d render: %w", p, err)
	}
	return PageGroup{
		Page:      p,
		Scanned:   true,
		Fragments: []Fragment{pageMarker(p), img, endPageMarker(p)},
	}, nil
}

// Collect drains the document into a flat fragment list. On error nothing
// is returned.
func Collect(ctx context.Context, d *Document) ([]Fragment, error) {
	var out []Fragment
	for g, err := range d.Pages(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, g.Fragments...)
	}
	return out, nil
}

// ExtractFile opens path, collects its fragments and closes it.
func (e *Extractor) ExtractFile(ctx context.Context, path string, maxPages int) ([]Fragment, error) {
	doc, err := e.Open(ctx, path, maxPages)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return Collect(ctx, doc)
}
