package content

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Poppler reads PDFs with the poppler-utils binaries.
//
// Required in PATH: pdfinfo, pdftotext, pdftoppm.
type Poppler struct {
	PdfInfo   string
	PdfToText string
	PdfToPPM  string
	DPI       int
	WorkDir   string        // parent for per-document render dirs
	Timeout   time.Duration // per binary invocation
}

func NewPoppler(workDir string, dpi int) *Poppler {
	if dpi <= 0 {
		dpi = 110
	}
	return &Poppler{
		PdfInfo:   "pdfinfo",
		PdfToText: "pdftotext",
		PdfToPPM:  "pdftoppm",
		DPI:       dpi,
		WorkDir:   workDir,
		Timeout:   60 * time.Second,
	}
}

// AssertReady checks that every binary is on PATH.
func (p *Poppler) AssertReady() error {
	for _, bin := range []string{p.PdfInfo, p.PdfToText, p.PdfToPPM} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

func (p *Poppler) Open(ctx context.Context, path string) (PageSource, error) {
	if path == "" {
		return nil, fmt.Errorf("path required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(p.WorkDir, "pages-*")
	if err != nil {
		return nil, fmt.Errorf("render dir: %w", err)
	}
	return &popplerDoc{p: p, path: path, dir: dir}, nil
}

type popplerDoc struct {
	p    *Poppler
	path string
	dir  string
}

func (d *popplerDoc) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.p.Timeout)
	defer cancel()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w; out=%s", filepath.Base(bin), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (d *popplerDoc) PageCount(ctx context.Context) (int, error) {
	out, err := d.run(ctx, d.p.PdfInfo, d.path)
	if err != nil {
		return 0, err
	}
	return parsePageCount(string(out))
}

func parsePageCount(out string) (int, error) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		n, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || n < 0 {
			continue
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo output missing Pages field")
}

func (d *popplerDoc) PageText(ctx context.Context, page int) (string, error) {
	n := strconv.Itoa(page)
	out, err := d.run(ctx, d.p.PdfToText, "-q", "-enc", "UTF-8", "-f", n, "-l", n, d.path, "-")
	if err != nil {
		return "", err
	}
	// pdftotext ends every page with a form feed.
	return strings.TrimRight(string(out), "\f"), nil
}

func (d *popplerDoc) RenderPage(ctx context.Context, page int) (Image, error) {
	n := strconv.Itoa(page)
	prefix := filepath.Join(d.dir, fmt.Sprintf("page_%04d", page))
	args := []string{"-q", "-r", strconv.Itoa(d.p.DPI), "-png", "-singlefile", "-f", n, "-l", n, d.path, prefix}
	if _, err := d.run(ctx, d.p.PdfToPPM, args...); err != nil {
		return Image{}, err
	}
	out := prefix + ".png"
	b, err := os.ReadFile(out)
	if err != nil {
		return Image{}, fmt.Errorf("read rendered page: %w", err)
	}
	_ = os.Remove(out)
	return Image{MIMEType: "image/png", Data: b}, nil
}

func (d *popplerDoc) Close() error {
	return os.RemoveAll(d.dir)
}
