package httpclient

import (
	"bytes"
	"io"
	"mime"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// decodeToUTF8 normalizes a response body to UTF-8. Sites in this corpus
// regularly declare no charset at all, or serve EUC-KR pages behind a
// Latin-1 default header; trusting either produces mojibake. When the
// declared charset is absent or a known-wrong default, the encoding is
// sniffed from the content itself.
func decodeToUTF8(body []byte, contentType string) []byte {
	enc, name := resolveEncoding(body, contentType)
	if enc == nil || name == "utf-8" {
		return body
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), enc.NewDecoder()))
	if err != nil {
		// Better to hand back the raw bytes than nothing.
		return body
	}
	return decoded
}

func resolveEncoding(body []byte, contentType string) (encoding.Encoding, string) {
	declared := declaredCharset(contentType)

	switch declared {
	case "", "iso-8859-1", "windows-1252", "latin1", "latin-1":
		// Absent or a server default that is almost never the truth for
		// Korean news sites; sniff from meta tags / content instead.
		enc, name, _ := charset.DetermineEncoding(body, "")
		return enc, name
	default:
		if enc, name := charset.Lookup(declared); enc != nil {
			return enc, name
		}
		enc, name, _ := charset.DetermineEncoding(body, contentType)
		return enc, name
	}
}

func declaredCharset(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}
