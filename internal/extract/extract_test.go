package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestTextPlain(t *testing.T) {
	got, err := Text([]byte("plain content"), "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "plain content" {
		t.Errorf("got %q", got)
	}
}

func TestTextPlainWithCharsetParam(t *testing.T) {
	got, err := Text([]byte("data"), "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "data" {
		t.Errorf("got %q", got)
	}
}

func TestTextCSV(t *testing.T) {
	got, err := Text([]byte("a,b\n1,2\n"), "text/csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "1,2") {
		t.Errorf("csv content lost: %q", got)
	}
}

func TestTextMarkdownStripsFormatting(t *testing.T) {
	got, err := Text([]byte("# Title\n\nSome **bold** text."), "text/markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "#") || strings.Contains(got, "**") || strings.Contains(got, "<") {
		t.Errorf("formatting not stripped: %q", got)
	}
	if !strings.Contains(got, "Title") || !strings.Contains(got, "bold") {
		t.Errorf("content lost: %q", got)
	}
}

func TestTextUnsupported(t *testing.T) {
	_, err := Text([]byte("x"), "application/octet-stream")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestDetectMime(t *testing.T) {
	cases := map[string]string{
		"notes.pdf":   MimePDF,
		"slides.PPTX": MimePPTX,
		"doc.docx":    MimeDOCX,
		"sheet.xlsx":  MimeXLSX,
		"data.csv":    MimeCSV,
		"readme.md":   MimeMarkdown,
		"scan.png":    "image/png",
		"photo.JPG":   "image/jpeg",
		"notes.txt":   MimeText,
		"unknown":     MimeText,
	}
	for name, want := range cases {
		if got := DetectMime(name); got != want {
			t.Errorf("DetectMime(%q) = %q, want %q", name, got, want)
		}
	}
}
