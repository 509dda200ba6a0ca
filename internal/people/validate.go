package people

import (
	"fmt"
	"regexp"
	"strings"

	"peoplebox/internal/policy"
	"peoplebox/internal/urlutil"
)

var wordPattern = regexp.MustCompile(`\w+`)

// Report is the machine-readable outcome of a validation run.
type Report struct {
	Status      string   `json:"status"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	PeopleCount int      `json:"people_count"`
}

// Passed reports whether the run produced no hard errors.
func (r *Report) Passed() bool {
	return r.Status == "pass"
}

// Validate checks a dossier against the policy and returns a report. Hard
// errors fail the run; warnings flag things a human should look at. The one
// repair performed here is the people_count correction, which both the
// server and the linter have always done in place.
func Validate(obj map[string]any, pol *policy.Policy) *Report {
	rep := &Report{
		Status:   "pass",
		Errors:   []string{},
		Warnings: []string{},
	}

	peopleVal, hasPeople := obj["people"]
	people := asSlice(peopleVal)
	if !hasPeople || len(people) == 0 {
		rep.Errors = append(rep.Errors, "`people` must be a non-empty array.")
	}
	rep.PeopleCount = len(people)

	var ids []string
	for i, v := range people {
		idx := i + 1
		p := asMap(v)
		if p == nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]: must be an object", idx))
			continue
		}

		pid := asString(p["id"])
		if pid == "" {
			rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]: missing id", idx))
			pid = fmt.Sprintf("?%d", idx)
		} else {
			ids = append(ids, pid)
		}

		validateSection(rep, p, pol, idx, pid)
		validateSummary(rep, p, pol, idx, pid)
		validateContacts(rep, p, idx, pid)
		validateEvidence(rep, p, pol, idx, pid)
		validateKeyLinks(rep, p, idx, pid)
		validateTrials(rep, p, idx, pid)
	}

	if hasDuplicates(ids) {
		rep.Errors = append(rep.Errors, "Duplicate `id` values found.")
	}

	if len(people) > 0 && !orderContiguous(people) {
		rep.Warnings = append(rep.Warnings, "`original_order` not contiguous 1..N")
	}

	if pcVal, present := obj["people_count"]; present {
		if pc, ok := intValue(pcVal); !ok || pc != len(people) {
			rep.Warnings = append(rep.Warnings,
				fmt.Sprintf("`people_count` != len(people) (%v vs %d). Updated automatically.", pcVal, len(people)))
			obj["people_count"] = len(people)
		}
	}

	if len(rep.Errors) > 0 {
		rep.Status = "fail"
	}
	return rep
}

func validateSection(rep *Report, p map[string]any, pol *policy.Policy, idx int, pid string) {
	section := asString(p["section"])
	if !pol.SectionAllowed(section) {
		rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]/%s: invalid section '%s'", idx, pid, section))
	}
}

func validateSummary(rep *Report, p map[string]any, pol *policy.Policy, idx int, pid string) {
	words := len(wordPattern.FindAllString(asString(p["summary_text"]), -1))
	if words < pol.SummaryMinWords || words > pol.SummaryMaxWords {
		rep.Warnings = append(rep.Warnings,
			fmt.Sprintf("person[%d]/%s: summary_text words=%d (expected %d–%d)",
				idx, pid, words, pol.SummaryMinWords, pol.SummaryMaxWords))
	}
}

func validateContacts(rep *Report, p map[string]any, idx int, pid string) {
	for j, c := range mapsOf(p["contacts"]) {
		u, isString := c["url"].(string)
		if !isString {
			rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]/%s/contacts[%d]: url missing", idx, pid, j))
			continue
		}

		switch asString(c["type"]) {
		case "email":
			if !urlutil.IsMailto(u) {
				rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]/%s/contacts[%d]: invalid mailto", idx, pid, j))
			}
		case "phone":
			if !strings.HasPrefix(u, "tel:") {
				rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]/%s/contacts[%d]: invalid phone URL (must start 'tel:')", idx, pid, j))
			}
		default:
			if !urlutil.IsStrictHTTPS(u) {
				rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]/%s/contacts[%d]: invalid URL '%s' for page", idx, pid, j, u))
			}
		}

		if vd, ok := c["verified_date"].(string); !ok || !urlutil.IsISODate(vd) {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("person[%d]/%s/contacts[%d]: missing or non-ISO verified_date", idx, pid, j))
		}
	}
}

func validateEvidence(rep *Report, p map[string]any, pol *policy.Policy, idx int, pid string) {
	for j, e := range mapsOf(p["evidence"]) {
		tag := asString(e["tag"])
		if !pol.TagAllowed(tag) {
			rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]/%s/evidence[%d]: invalid tag '%s'", idx, pid, j, tag))
		}

		cu := asString(e["canonical_url"])
		if !urlutil.IsStrictHTTPS(cu) {
			rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]/%s/evidence[%d]: invalid canonical_url '%s'", idx, pid, j, cu))
		}
	}
}

func validateKeyLinks(rep *Report, p map[string]any, idx int, pid string) {
	for j, link := range mapsOf(p["key_links"]) {
		if u, ok := link["url"].(string); ok && !urlutil.IsStrictHTTPS(u) {
			rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]/%s/key_links[%d]: invalid url '%s'", idx, pid, j, u))
		}
	}
}

func validateTrials(rep *Report, p map[string]any, idx int, pid string) {
	for j, t := range mapsOf(p["trials"]) {
		valid := 0
		for _, u := range stringsOf(t["source_urls"]) {
			if urlutil.IsStrictHTTPS(u) {
				valid++
			}
		}
		if valid == 0 {
			rep.Errors = append(rep.Errors, fmt.Sprintf("person[%d]/%s/trials[%d]: no valid https URLs in source_urls", idx, pid, j))
		}
	}
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}
