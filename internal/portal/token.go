package portal

import (
	"strings"
)

// tokenMarker is the fixed text preceding the session token inside the
// bootstrap page's inline script. The format is undocumented and owned by
// the portal; if it drifts, this file is the only place to touch.
const tokenMarker = `"authToken":"`

// extractSessionToken scrapes the portlet session token out of the bootstrap
// HTML. Deliberately not an HTML parse: the token sits in script text, and a
// marker scan survives markup changes a parser would trip over.
func extractSessionToken(html string) (string, bool) {
	i := strings.Index(html, tokenMarker)
	if i < 0 {
		return "", false
	}
	rest := html[i+len(tokenMarker):]
	j := strings.Index(rest, `"`)
	if j <= 0 {
		return "", false
	}
	return rest[:j], true
}

// deriveEntityID computes the working tax identity sent in the
// entity-selection phase, before the first fiscal-data fetch can resolve the
// authoritative value. Personal tax codes (16 chars) are used verbatim;
// numeric codes are zero-padded to the 11-digit VAT-number format. The
// lifecycle service reconciles this placeholder against GetFiscalData
// immediately after login.
func deriveEntityID(taxCode string) string {
	tc := strings.ToUpper(strings.TrimSpace(taxCode))
	if len(tc) >= 16 {
		return tc
	}
	for len(tc) < 11 {
		tc = "0" + tc
	}
	return tc
}
