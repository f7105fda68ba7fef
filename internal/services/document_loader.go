package services

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

type DocumentLoader interface {
	ExtractText(ctx context.Context, data []byte, filename string) (*DocumentContent, error)
}

type DocumentContent struct {
	Text      string
	PageCount int
	MIMEType  string
}

type documentLoader struct{}

func NewDocumentLoader() DocumentLoader {
	return &documentLoader{}
}

// ExtractText implements DocumentLoader.
func (l *documentLoader) ExtractText(ctx context.Context, data []byte, filename string) (*DocumentContent, error) {
	if len(data) == 0 {
		return nil, &ExtractionError{Filename: filename, Reason: "file is empty"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mime := mimetype.Detect(data)

	var (
		content *DocumentContent
		err     error
	)
	switch {
	case mime.Is(mimePDF):
		content, err = extractPDF(data)
	case mime.Is(mimeDOCX):
		content, err = extractDOCX(data)
	case mime.Is(mimeText):
		content = &DocumentContent{Text: string(data), PageCount: 1}
	default:
		return nil, &ExtractionError{
			Filename: filename,
			Reason:   fmt.Sprintf("unsupported file type %s", mime.String()),
		}
	}
	if err != nil {
		return nil, &ExtractionError{Filename: filename, Reason: "could not read document", Err: err}
	}

	content.MIMEType = mime.String()
	content.Text = CleanText(content.Text)
	if content.Text == "" {
		reason := "no text content found"
		if mime.Is(mimePDF) {
			reason = "no text content found, PDF might be image-based"
		}
		return nil, &ExtractionError{Filename: filename, Reason: reason}
	}

	return content, nil
}

func extractPDF(data []byte) (content *DocumentContent, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			content = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages, keep the rest
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return &DocumentContent{
		Text:      textBuilder.String(),
		PageCount: totalPage,
	}, nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

func extractDOCX(data []byte) (*DocumentContent, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	// GetContent returns the raw document.xml body
	raw := doc.Editable().GetContent()
	raw = docxParagraphEnd.ReplaceAllString(raw, "\n")
	text := xmlTag.ReplaceAllString(raw, "")
	text = xmlUnescaper.Replace(text)

	return &DocumentContent{Text: text, PageCount: 1}, nil
}

var xmlUnescaper = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

// CleanText repairs invalid UTF-8, trims every line and drops blank ones.
func CleanText(text string) string {
	text = strings.ToValidUTF8(text, "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
