package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"
)

// decodeText heuristically detects the character encoding of raw bytes
// and decodes them to UTF-8. Unknown or unmappable charsets fall back
// to interpreting the bytes as UTF-8 directly.
func decodeText(content []byte) (string, string) {
	if utf8.Valid(content) {
		return string(content), "UTF-8"
	}

	det := chardet.NewTextDetector()
	res, err := det.DetectBest(content)
	if err != nil || res == nil || res.Charset == "" {
		return string(content), "UTF-8"
	}

	enc, err := ianaindex.IANA.Encoding(res.Charset)
	if err != nil || enc == nil {
		return string(content), res.Charset
	}
	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return string(content), res.Charset
	}
	return string(decoded), res.Charset
}

// normalizeLines trims every line and drops runs of blank lines so
// extracted text stays compact.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
