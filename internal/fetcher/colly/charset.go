package collyfetcher

import (
	"bytes"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const metaPrescanLimit = 1024

// decodeHTML converts body to UTF-8 and reports the encoding it used.
//
// A charset in the Content-Type header has already been applied by colly, so
// the body is returned untouched. Otherwise a BOM or a <meta> declaration
// wins; without either the encoding is guessed from the bytes.
func decodeHTML(body []byte, contentType string) ([]byte, string) {
	if name := headerCharset(contentType); name != "" {
		return body, name
	}
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && !declaresMetaCharset(body) && !utf8.Valid(body) {
		if guessed, guessedName, ok := apparentEncoding(body); ok {
			enc, name = guessed, guessedName
		}
	}
	if name == "utf-8" && utf8.Valid(body) {
		return body, name
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body, "utf-8"
	}
	return decoded, name
}

func headerCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}

func declaresMetaCharset(body []byte) bool {
	head := body
	if len(head) > metaPrescanLimit {
		head = head[:metaPrescanLimit]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("charset"))
}

func apparentEncoding(body []byte) (encoding.Encoding, string, bool) {
	result, err := chardet.NewHtmlDetector().DetectBest(body)
	if err != nil || result == nil {
		return nil, "", false
	}
	enc, err := htmlindex.Get(result.Charset)
	if err != nil {
		return nil, "", false
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return nil, "", false
	}
	return enc, name, true
}
