package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xhad/tutor/internal/models"
)

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// presentationExtractor reads .pptx (OPC zip) decks. Slides are emitted
// in numeric order with a per-slide marker, one line per text
// paragraph in shape order.
type presentationExtractor struct{}

func (e *presentationExtractor) Extract(_ context.Context, content []byte, _ string) (string, models.Metadata, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", nil, fmt.Errorf("open pptx container: %w", err)
	}

	type slideFile struct {
		num  int
		file *zip.File
	}
	var slides []slideFile
	for _, f := range zr.File {
		m := slidePattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{num: num, file: f})
	}
	if len(slides) == 0 {
		return "", nil, fmt.Errorf("presentation contains no slides")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var sb strings.Builder
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", nil, fmt.Errorf("open slide %d: %w", s.num, err)
		}
		paragraphs, err := parseSlideXML(rc)
		rc.Close()
		if err != nil {
			return "", nil, fmt.Errorf("parse slide %d: %w", s.num, err)
		}

		fmt.Fprintf(&sb, "\n--- Slide %d ---\n", s.num)
		for _, p := range paragraphs {
			sb.WriteString(p)
			sb.WriteString("\n")
		}
	}

	meta := models.Metadata{
		"slide_count":    len(slides),
		"format_details": "PowerPoint Presentation",
	}
	return strings.TrimSpace(sb.String()), meta, nil
}

// parseSlideXML collects DrawingML text: runs (a:t) grouped into
// paragraphs (a:p), in the order shapes appear on the slide.
func parseSlideXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		para       strings.Builder
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if text := strings.TrimSpace(para.String()); text != "" {
					paragraphs = append(paragraphs, text)
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

	return paragraphs, nil
}
