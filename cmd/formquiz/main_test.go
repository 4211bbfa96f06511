package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUnknownCommand(t *testing.T) {
	var out, errb bytes.Buffer
	if code := run([]string{"frobnicate"}, &out, &errb); code != exitUsage {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(errb.String(), "unknown command") {
		t.Fatalf("stderr = %q", errb.String())
	}
}

func TestHelp(t *testing.T) {
	var out, errb bytes.Buffer
	if code := run([]string{"help"}, &out, &errb); code != exitOK {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(out.String(), "formquiz generate") {
		t.Fatalf("stdout = %q", out.String())
	}
}

func TestGenerateRequiresFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	var out, errb bytes.Buffer
	if code := run([]string{"generate"}, &out, &errb); code != exitUsage {
		t.Fatalf("code = %d", code)
	}
}

func TestGenerateRejectsQuestionCount(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	var out, errb bytes.Buffer
	code := run([]string{"generate", "-file", "x.pdf", "-n", "0"}, &out, &errb)
	if code != exitUsage || !strings.Contains(errb.String(), "-n must be") {
		t.Fatalf("code = %d stderr = %q", code, errb.String())
	}
}

func TestGenerateRejectsUnsupportedFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text notes"), 0o600); err != nil {
		t.Fatal(err)
	}
	var out, errb bytes.Buffer
	code := run([]string{"generate", "-file", path}, &out, &errb)
	if code != exitError || !strings.Contains(errb.String(), "unsupported file type") {
		t.Fatalf("code = %d stderr = %q", code, errb.String())
	}
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	var out, errb bytes.Buffer
	if code := run(nil, &out, &errb); code != exitError {
		t.Fatalf("code = %d", code)
	}
	if !strings.Contains(errb.String(), "GEMINI_API_KEY") {
		t.Fatalf("stderr = %q", errb.String())
	}
}
