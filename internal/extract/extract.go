// Package extract turns uploaded document bytes into plain text. Image
// formats are not handled here; those go through the AI provider's OCR path.
package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupported is returned for MIME types this package cannot parse.
var ErrUnsupported = errors.New("unsupported document format")

const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePPTX     = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MimeXLSX     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeODS      = "application/vnd.oasis.opendocument.spreadsheet"
	MimeText     = "text/plain"
	MimeCSV      = "text/csv"
	MimeMarkdown = "text/markdown"
)

// Text extracts plain text from document bytes based on the MIME type.
func Text(data []byte, mimeType string) (string, error) {
	switch normalizeMime(mimeType) {
	case MimePDF:
		return parsePDF(data)
	case MimeDOCX:
		return parseDOCX(data)
	case MimePPTX:
		return parsePPTX(data)
	case MimeXLSX:
		return parseXLSX(data)
	case MimeODS:
		return parseODS(data)
	case MimeText, MimeCSV:
		return string(data), nil
	case MimeMarkdown:
		return markdownToPlain(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
}

// DetectMime guesses a MIME type from a file name, for callers that only have
// a path (the CLI upload flow).
func DetectMime(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".pptx":
		return MimePPTX
	case ".xlsx":
		return MimeXLSX
	case ".ods":
		return MimeODS
	case ".csv":
		return MimeCSV
	case ".md", ".markdown":
		return MimeMarkdown
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return MimeText
	}
}

func normalizeMime(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func parsePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var text strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	doc := r.Editable()
	var text strings.Builder
	for _, p := range strings.Split(doc.GetContent(), "\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		text.WriteString(p)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func parsePPTX(data []byte) (string, error) {
	f, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slideText := extractTextFromXML(string(raw))
		if strings.TrimSpace(slideText) != "" {
			text.WriteString(slideText)
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

func parseXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

func parseODS(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, "</a:t>")
		if endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}
