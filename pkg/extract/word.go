package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xhad/tutor/internal/models"
)

// wordExtractor reads .docx (OPC zip) documents directly from
// word/document.xml. Body paragraphs come first in document order,
// table-cell text follows.
type wordExtractor struct{}

func (e *wordExtractor) Extract(_ context.Context, content []byte, _ string) (string, models.Metadata, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", nil, fmt.Errorf("open docx container: %w", err)
	}

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", nil, fmt.Errorf("open word/document.xml: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", nil, fmt.Errorf("word/document.xml missing from container")
	}
	defer docXML.Close()

	paragraphs, tableCells, tableCount, err := parseWordXML(docXML)
	if err != nil {
		return "", nil, fmt.Errorf("parse word document: %w", err)
	}

	var sb strings.Builder
	for _, p := range paragraphs {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	for _, c := range tableCells {
		sb.WriteString(c)
		sb.WriteString("\n")
	}

	meta := models.Metadata{
		"paragraph_count": len(paragraphs),
		"table_count":     tableCount,
		"format_details":  "Word Document",
	}
	return strings.TrimSpace(sb.String()), meta, nil
}

// parseWordXML walks the WordprocessingML token stream, separating body
// paragraphs from text inside w:tbl subtrees.
func parseWordXML(r io.Reader) (paragraphs, tableCells []string, tableCount int, err error) {
	dec := xml.NewDecoder(r)

	var (
		tableDepth int
		inText     bool
		para       strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, 0, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					tableCount++
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "br", "cr":
				para.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			case "p":
				text := strings.TrimSpace(para.String())
				if text != "" {
					if tableDepth > 0 {
						tableCells = append(tableCells, text)
					} else {
						paragraphs = append(paragraphs, text)
					}
				}
				para.Reset()
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return paragraphs, tableCells, tableCount, nil
}
