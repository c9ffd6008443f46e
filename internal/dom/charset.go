package dom

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// sniffLength is the number of bytes inspected when guessing an encoding.
const sniffLength = 4096

// DecodeUTF8 converts data to UTF-8.
//
// The declared content type and any meta charset in the document are
// honored first. When neither is conclusive and the bytes are not valid
// UTF-8, the encoding is guessed with a statistical detector. The returned name is the encoding that was used.
func DecodeUTF8(data []byte, contentType string) ([]byte, string) {
	enc, name, certain := charset.DetermineEncoding(data, contentType)
	if !certain && !utf8.Valid(data) {
		if guessed := detectCharset(data); guessed != "" {
			if e, n := charset.Lookup(guessed); e != nil {
				enc, name = e, n
			}
		}
	}

	if name == "utf-8" || enc == nil {
		return data, "utf-8"
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return data, "utf-8"
	}
	return decoded, name
}

// detectCharset returns the most likely charset of data, or "" if the
// detector has no opinion.
func detectCharset(data []byte) string {
	sample := data
	if len(sample) > sniffLength {
		sample = sample[:sniffLength]
	}

	detector := chardet.NewHtmlDetector()
	result, err := detector.DetectBest(sample)
	if err != nil || result == nil {
		return ""
	}
	return strings.ToLower(result.Charset)
}
