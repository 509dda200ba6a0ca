// Package people implements cleaning, validation, and CSV pivoting of
// people-dossier payloads produced by an LLM generator.
//
// A dossier is a JSON object {"people": [...], "people_count": N} where each
// person carries contacts, evidence, clinical trials, key links,
// affiliations, and summary text. Payloads arrive with predictable damage:
// markdown-wrapped URLs, tracking parameters, legacy ClinicalTrials.gov
// links, bare email addresses where mailto: URLs belong. Clean repairs what
// can be repaired mechanically; Validate reports what remains wrong.
package people

import (
	"fmt"
	"strings"

	"peoplebox/internal/policy"
	"peoplebox/internal/urlutil"
)

// Clean repairs a dossier in place and returns it. Only mechanical repairs
// happen here; anything judgemental is left for Validate to report.
func Clean(obj map[string]any, pol *policy.Policy) map[string]any {
	people := asSlice(obj["people"])
	for i, v := range people {
		p := asMap(v)
		if p == nil {
			continue
		}
		cleanPerson(p, pol, i+1)
	}
	obj["people"] = people
	return obj
}

func cleanPerson(p map[string]any, pol *policy.Policy, order int) {
	cleanKeyLinks(p, pol)
	cleanContacts(p, pol)
	cleanEvidence(p, pol)
	cleanTrials(p, pol)

	if _, ok := intValue(p["original_order"]); !ok {
		p["original_order"] = order
	}
}

func cleanKeyLinks(p map[string]any, pol *policy.Policy) {
	for _, link := range mapsOf(p["key_links"]) {
		if u := asString(link["url"]); u != "" {
			u = urlutil.Purify(u, pol.TrackingPrefixes)
			link["url"] = urlutil.NormalizeCTGov(u)
		}
	}
}

func cleanContacts(p map[string]any, pol *policy.Policy) {
	for _, c := range mapsOf(p["contacts"]) {
		ctype := asString(c["type"])
		if ctype == "" {
			ctype = "page"
			c["type"] = ctype
		}

		u, isString := c["url"].(string)
		if !isString {
			continue
		}

		// Unwrap markdown debris: when the value carries brackets or fails
		// strict validation, fall back to the first https token inside it.
		if strings.ContainsAny(u, "[]()") || !urlutil.IsStrictHTTPS(schemeForCheck(u)) {
			if tokens := urlutil.ExtractHTTPS(u); len(tokens) > 0 {
				u = tokens[0]
			}
		}

		u = urlutil.Purify(u, pol.TrackingPrefixes)
		u = urlutil.NormalizeCTGov(u)

		// Bare email addresses become mailto: URLs
		if ctype == "email" && !strings.HasPrefix(u, "mailto:") && urlutil.IsEmail(u) {
			u = "mailto:" + u
		}

		c["url"] = u
	}
}

func cleanEvidence(p map[string]any, pol *policy.Policy) {
	for _, e := range mapsOf(p["evidence"]) {
		if cu := asString(e["canonical_url"]); cu != "" {
			cu = urlutil.Purify(cu, pol.TrackingPrefixes)
			cu = urlutil.NormalizeCTGov(cu)
			if asString(e["tag"]) == "preprint" {
				cu = urlutil.PreprintDOI(cu)
			}
			e["canonical_url"] = cu
		}
		if pdf := asString(e["pdf_url"]); pdf != "" {
			e["pdf_url"] = urlutil.Purify(pdf, pol.TrackingPrefixes)
		}
	}
}

func cleanTrials(p map[string]any, pol *policy.Policy) {
	for _, t := range mapsOf(p["trials"]) {
		var raw []string
		switch su := t["source_urls"].(type) {
		case string:
			// A pasted blob instead of an array; salvage the links inside
			raw = urlutil.ExtractHTTPS(su)
		default:
			raw = stringsOf(su)
		}

		nct := strings.ToUpper(asString(t["nct_id"]))
		if nct == "" {
			for _, u := range raw {
				if found := urlutil.ExtractNCT(u); found != "" {
					nct = found
					break
				}
			}
		}
		if nct != "" {
			t["nct_id"] = nct
		}

		var cleaned []string
		for _, u := range raw {
			u = urlutil.Purify(u, pol.TrackingPrefixes)
			u = urlutil.NormalizeCTGov(u)
			if urlutil.IsStrictHTTPS(u) {
				cleaned = append(cleaned, u)
			}
		}
		if len(cleaned) == 0 && nct != "" {
			cleaned = []string{fmt.Sprintf("https://clinicaltrials.gov/study/%s", nct)}
		}
		t["source_urls"] = cleaned
	}
}

// schemeForCheck maps mailto: and tel: prefixes onto https:// so strict URL
// validation can be reused for all contact types.
func schemeForCheck(u string) string {
	if after, ok := strings.CutPrefix(u, "mailto:"); ok {
		return "https://" + after
	}
	if after, ok := strings.CutPrefix(u, "tel:"); ok {
		return "https://" + after
	}
	return u
}

// Renumber rewrites people_count and, when the existing values are not a
// contiguous 1..N sequence, reassigns original_order in array order. Used by
// the offline linter; the emit action only warns.
func Renumber(obj map[string]any) {
	people := asSlice(obj["people"])
	obj["people_count"] = len(people)

	if orderContiguous(people) {
		return
	}
	for i, v := range people {
		if p := asMap(v); p != nil {
			p["original_order"] = i + 1
		}
	}
}

func orderContiguous(people []any) bool {
	seen := make([]bool, len(people))
	for _, v := range people {
		p := asMap(v)
		if p == nil {
			return false
		}
		n, ok := intValue(p["original_order"])
		if !ok || n < 1 || n > len(people) || seen[n-1] {
			return false
		}
		seen[n-1] = true
	}
	return true
}
