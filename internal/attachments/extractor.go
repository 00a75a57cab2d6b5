package attachments

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor turns uploaded file bytes into plain text by extension. Unknown
// extensions are treated as plain text when the bytes look textual.
type Extractor struct {
	cache *Cache
}

// NewExtractor builds an extractor. A nil cache disables caching.
func NewExtractor(cache *Cache) *Extractor {
	return &Extractor{cache: cache}
}

// Extract returns the text content of one uploaded file.
func (e *Extractor) Extract(filename string, data []byte) (string, error) {
	if e.cache != nil {
		if text, ok := e.cache.Get(data); ok {
			return text, nil
		}
	}

	text, err := extract(filename, data)
	if err != nil {
		return "", err
	}
	if e.cache != nil {
		e.cache.Put(data, text)
	}
	return text, nil
}

func extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return extractDOCX(data)
	case ".pdf":
		return extractPDF(data)
	default:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("file %s: not valid text", filename)
		}
		return string(data), nil
	}
}

// extractDOCX pulls the text runs out of word/document.xml. Formatting is
// discarded; paragraphs become newlines.
func extractDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	var doc *zip.File
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx missing word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	var out strings.Builder
	decoder := xml.NewDecoder(rc)
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// extractPDF scans uncompressed content streams for text-show operators. It
// is best effort: compressed streams yield little or nothing, and the caller
// treats an empty result as "no extractable text".
func extractPDF(data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", fmt.Errorf("not a pdf file")
	}

	var out strings.Builder
	for i := 0; i < len(data); i++ {
		if data[i] != '(' {
			continue
		}
		end, literal, ok := scanPDFString(data, i)
		if !ok {
			continue
		}
		// Only keep strings followed by a text-show operator.
		if op := nextOperator(data, end); op == "Tj" || op == "TJ" || op == "'" || op == "\"" {
			out.WriteString(literal)
			out.WriteByte('\n')
		}
		i = end
	}
	return strings.TrimSpace(out.String()), nil
}

// scanPDFString reads a parenthesized PDF string literal starting at open.
func scanPDFString(data []byte, open int) (end int, literal string, ok bool) {
	var out strings.Builder
	depth := 0
	for i := open; i < len(data); i++ {
		c := data[i]
		switch c {
		case '\\':
			if i+1 < len(data) {
				next := data[i+1]
				switch next {
				case 'n':
					out.WriteByte('\n')
				case 't':
					out.WriteByte('\t')
				case '(', ')', '\\':
					out.WriteByte(next)
				}
				i++
			}
		case '(':
			depth++
			if depth > 1 {
				out.WriteByte(c)
			}
		case ')':
			depth--
			if depth == 0 {
				text := out.String()
				if !utf8.ValidString(text) {
					return i, "", false
				}
				return i, text, true
			}
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}
	return len(data), "", false
}

// nextOperator reads the next non-whitespace token after pos, skipping array
// close brackets so TJ arrays are recognized.
func nextOperator(data []byte, pos int) string {
	i := pos + 1
	for i < len(data) && (data[i] == ' ' || data[i] == '\n' || data[i] == '\r' || data[i] == '\t' || data[i] == ']') {
		i++
	}
	start := i
	for i < len(data) && i-start < 2 && data[i] != ' ' && data[i] != '\n' && data[i] != '\r' && data[i] != '\t' {
		i++
	}
	return string(data[start:i])
}
