package detect

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"
)

// Family is the closed classification driving extractor dispatch.
type Family string

const (
	PDF          Family = "pdf"
	Word         Family = "word"
	Spreadsheet  Family = "spreadsheet"
	Presentation Family = "presentation"
	Text         Family = "text"
	Image        Family = "image"
	Audio        Family = "audio"
	Web          Family = "web"
)

// extensionTable maps lowercase filename extensions to families. The
// table is consulted before any content sniffing, so a renamed file is
// classified by its name, not its bytes.
var extensionTable = map[string]Family{
	".pdf":      PDF,
	".docx":     Word,
	".doc":      Word,
	".xlsx":     Spreadsheet,
	".xls":      Spreadsheet,
	".csv":      Spreadsheet,
	".pptx":     Presentation,
	".ppt":      Presentation,
	".txt":      Text,
	".md":       Text,
	".markdown": Text,
	".json":     Text,
	".png":      Image,
	".jpg":      Image,
	".jpeg":     Image,
	".tiff":     Image,
	".bmp":      Image,
	".gif":      Image,
	".wav":      Audio,
	".mp3":      Audio,
	".m4a":      Audio,
	".flac":     Audio,
	".aac":      Audio,
	".html":     Web,
	".htm":      Web,
}

var pdfSignature = []byte("%PDF-")

// Detect classifies a filename plus optional byte sample into a content
// family: extension first, content sniff second, text as the last
// resort. It never fails.
func Detect(filename string, content []byte) Family {
	ext := strings.ToLower(filepath.Ext(filename))
	if family, ok := extensionTable[ext]; ok {
		return family
	}

	if len(content) > 0 {
		if bytes.HasPrefix(content, pdfSignature) {
			return PDF
		}
		mime := http.DetectContentType(content)
		switch {
		case strings.HasPrefix(mime, "text/"):
			return Text
		case strings.HasPrefix(mime, "image/"):
			return Image
		case strings.HasPrefix(mime, "audio/"):
			return Audio
		case strings.Contains(mime, "pdf"):
			return PDF
		}
	}

	return Text
}

// IsSupported reports whether the filename's extension maps to a known
// family. Used at the upload boundary to reject before any processing.
func IsSupported(filename string) bool {
	_, ok := extensionTable[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// SupportedExtensions returns the allow-list grouped by family, for the
// formats endpoint.
func SupportedExtensions() map[Family][]string {
	out := make(map[Family][]string)
	for ext, family := range extensionTable {
		out[family] = append(out[family], ext)
	}
	return out
}
