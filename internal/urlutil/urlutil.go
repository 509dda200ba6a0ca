package urlutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// Strict form required for URLs that survive cleaning
	strictHTTPSPattern  = regexp.MustCompile(`^https://[^\s\[\]\(\)]+$`)
	httpsTokenPattern   = regexp.MustCompile(`https://[^\s\[\]\(\)"]+`)
	emailPattern        = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	telPattern          = regexp.MustCompile(`^tel:\+?[0-9\-\(\)\s]+$`)
	isoDatePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	nctPattern          = regexp.MustCompile(`(?i)(NCT\d{8})`)
	ctgovShowPattern    = regexp.MustCompile(`(?i)^https://clinicaltrials\.gov/ct2/show/(NCT[0-9]{8})$`)
	markdownLinkPattern = regexp.MustCompile(`^\[[^\]]+\]\((https?://[^)]+)\)$`)
	preprintPattern     = regexp.MustCompile(`(?i)https?://(?:www\.)?(?:bio|med)rxiv\.org/content/(10\.1101/[^/\s#?]+?)(?:v\d+)?(?:/full\.pdf)?$`)
)

// ExtractHTTPS returns every https token found in s, in order.
func ExtractHTTPS(s string) []string {
	return httpsTokenPattern.FindAllString(s, -1)
}

// LastHTTPS returns the last https token in s, or "" if none.
// Generator output often wraps the real link in markdown debris; the last
// token is the destination rather than the label.
func LastHTTPS(s string) string {
	matches := ExtractHTTPS(s)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// UnwrapMarkdown converts "[label](https://...)" into the bare URL.
func UnwrapMarkdown(u string) string {
	m := markdownLinkPattern.FindStringSubmatch(strings.TrimSpace(u))
	if m == nil {
		return u
	}
	return m[1]
}

// Purify normalizes a URL: markdown unwrap, http->https upgrade, removal of
// tracking query parameters by key prefix, fragment drop, and trailing
// bracket debris trim. Anything that is not https after the upgrade is
// returned unchanged.
func Purify(u string, trackingPrefixes []string) string {
	u = UnwrapMarkdown(u)
	if strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	if !strings.HasPrefix(u, "https://") {
		return u
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.RawQuery = stripTrackingParams(parsed.RawQuery, trackingPrefixes)

	return strings.TrimRight(parsed.String(), ")]")
}

// stripTrackingParams filters query pairs whose key starts with one of the
// given prefixes. The raw query is split by hand to preserve parameter order
// and the original encoding of what remains.
func stripTrackingParams(rawQuery string, prefixes []string) string {
	if rawQuery == "" || len(prefixes) == 0 {
		return rawQuery
	}

	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		key := pair
		if i := strings.Index(pair, "="); i >= 0 {
			key = pair[:i]
		}
		key = strings.ToLower(key)

		tracking := false
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) {
				tracking = true
				break
			}
		}
		if !tracking {
			kept = append(kept, pair)
		}
	}

	return strings.Join(kept, "&")
}

// NormalizeCTGov rewrites legacy ClinicalTrials.gov record URLs
// (/ct2/show/NCT...) to the current /study/ form.
func NormalizeCTGov(u string) string {
	m := ctgovShowPattern.FindStringSubmatch(u)
	if m == nil {
		return u
	}
	return fmt.Sprintf("https://clinicaltrials.gov/study/%s", strings.ToUpper(m[1]))
}

// PreprintDOI maps bioRxiv/medRxiv content URLs to their DOI landing page.
// Version suffixes and /full.pdf tails are dropped. Non-preprint URLs are
// returned unchanged.
func PreprintDOI(u string) string {
	m := preprintPattern.FindStringSubmatch(u)
	if m == nil {
		return u
	}
	return fmt.Sprintf("https://doi.org/%s", m[1])
}

// ExtractNCT finds the first ClinicalTrials.gov registry ID in s,
// uppercased, or "" if none.
func ExtractNCT(s string) string {
	m := nctPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// IsStrictHTTPS reports whether u is a clean https URL with no whitespace or
// bracket debris.
func IsStrictHTTPS(u string) bool {
	return strictHTTPSPattern.MatchString(u)
}

// IsEmail reports whether s looks like a plain email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsMailto reports whether u is a mailto: URL wrapping a valid address.
func IsMailto(u string) bool {
	if !strings.HasPrefix(u, "mailto:") {
		return false
	}
	return IsEmail(strings.TrimPrefix(u, "mailto:"))
}

// IsTel reports whether u is a tel: URL.
func IsTel(u string) bool {
	return telPattern.MatchString(u)
}

// IsISODate reports whether s is a YYYY-MM-DD date string.
func IsISODate(s string) bool {
	return isoDatePattern.MatchString(s)
}
