package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirPutAndCleanup(t *testing.T) {
	s, err := NewScratch(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	d, err := s.NewDir()
	if err != nil {
		t.Fatal(err)
	}
	p, err := d.Put("../../etc/notes.pdf", strings.NewReader("%PDF-1.4"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(p) != d.Path() || filepath.Base(p) != "notes.pdf" {
		t.Fatalf("file escaped scratch dir: %s", p)
	}
	if err := d.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(d.Path()); !os.IsNotExist(err) {
		t.Fatalf("scratch dir still present: %v", err)
	}
}

func TestDirPutEnforcesLimit(t *testing.T) {
	s, _ := NewScratch(t.TempDir())
	d, _ := s.NewDir()
	defer d.Cleanup()
	if _, err := d.Put("big.png", strings.NewReader("0123456789"), 4); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
	if _, err := d.Put("ok.png", strings.NewReader("0123"), 4); err != nil {
		t.Fatalf("at limit: %v", err)
	}
}

func TestCleanName(t *testing.T) {
	cases := map[string]string{
		"a.pdf":            "a.pdf",
		`C:\Users\x\b.png`: "b.png",
		"/":                "",
		"":                 "",
	}
	for in, want := range cases {
		if got := cleanName(in); got != want {
			t.Errorf("cleanName(%q) = %q, want %q", in, got, want)
		}
	}
}
