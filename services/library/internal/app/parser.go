package app

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// page is extracted text with an optional 1-based page number. EPUB and
// plain-text sources carry no page numbers.
type page struct {
	number int
	text   string
}

func extractPages(filename string, data []byte) ([]page, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".epub":
		return extractEPUB(data)
	case ".txt", ".md", "":
		return []page{{text: string(data)}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(filename))
	}
}

func extractPDF(data []byte) ([]page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	totalPages := reader.NumPage()
	var pages []page
	for i := 1; i <= totalPages; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// Skip problematic pages instead of failing entirely.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, page{number: i, text: text})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no text extracted from pdf")
	}
	return pages, nil
}

func extractEPUB(data []byte) ([]page, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	var pages []page
	for _, file := range reader.File {
		name := strings.ToLower(file.Name)
		if !(strings.HasSuffix(name, ".xhtml") || strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm")) {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("read epub entry: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read epub content: %w", err)
		}
		doc, err := html.Parse(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("parse epub html: %w", err)
		}
		text := htmlText(doc)
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, page{text: text})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no text extracted from epub")
	}
	return pages, nil
}

// htmlText flattens a parsed document, emitting blank lines after
// block-level elements so paragraph structure survives into the chunker.
func htmlText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode {
			switch node.Data {
			case "p", "div", "li", "h1", "h2", "h3", "h4", "br":
				buf.WriteString("\n\n")
			}
		}
	}
	walk(n)
	return buf.String()
}
