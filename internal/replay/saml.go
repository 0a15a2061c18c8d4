package replay

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nonDecodablePlaceholder is reported when a SAMLResponse value is
// present but not valid base64.
const nonDecodablePlaceholder = "<binary saml response (non-decodable)>"

// Some IdPs emit the artifact from JavaScript instead of a form input.
var scriptSAMLPattern = regexp.MustCompile(`SAMLResponse["']?\s*[:=]\s*["']([^"']+)`)

// DecodeSAMLResponse locates a SAMLResponse artifact in an HTML page
// and returns its decoded text. It checks form inputs first, then
// inline scripts. Decoding is lossy: bytes that are not valid UTF-8
// are replaced rather than failing.
func DecodeSAMLResponse(html string) (string, bool) {
	raw, ok := findSAMLResponseValue(html)
	if !ok {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		// Unpadded output from some IdPs.
		decoded, err = base64.RawStdEncoding.DecodeString(raw)
	}
	if err != nil {
		return nonDecodablePlaceholder, true
	}
	return strings.ToValidUTF8(string(decoded), "�"), true
}

func findSAMLResponseValue(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var value string
	doc.Find("input").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, ok := s.Attr("name")
		if !ok || !strings.EqualFold(name, "SAMLResponse") {
			return true
		}
		value = s.AttrOr("value", "")
		return false
	})
	if value != "" {
		return value, true
	}

	var fromScript string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		m := scriptSAMLPattern.FindStringSubmatch(s.Text())
		if len(m) < 2 {
			return true
		}
		fromScript = m[1]
		return false
	})
	if fromScript != "" {
		return fromScript, true
	}
	return "", false
}
