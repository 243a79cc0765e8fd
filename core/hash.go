package core

import (
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// Query parameters stripped during link normalization. Tracking decoration
// must not make the same article look like new content.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"mc_cid":       {},
	"mc_eid":       {},
	"ref":          {},
}

// ContentHash generates a stable fingerprint from a candidate's title and
// link using BLAKE2b hashing over "normalize(title)|normalize(link)".
// Identical content always produces an identical hash.
func ContentHash(title, link string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(NormalizeTitle(title)))
	h.Write([]byte("|"))
	h.Write([]byte(NormalizeLink(link)))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeTitle lower-cases the title and collapses runs of whitespace.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// NormalizeLink canonicalizes a URL for fingerprinting: lowercase scheme and
// host, tracking parameters stripped, fragment dropped, trailing slash
// trimmed. Unparseable links fall back to trimmed lowercase.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return strings.ToLower(link)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	query := u.Query()
	for param := range query {
		if _, tracked := trackingParams[strings.ToLower(param)]; tracked {
			query.Del(param)
		}
	}
	u.RawQuery = query.Encode()

	normalized := u.String()
	return strings.TrimSuffix(normalized, "/")
}
