package people

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

var pivotHeader = []string{
	"full_name", "section", "role", "primary_affiliation", "country",
	"pins", "score_total", "contact_labels", "trial_ncts",
}

// Pivot flattens a dossier into a spreadsheet-friendly CSV, one row per
// person. The affiliation typed "Primary" wins; the first entry is used when
// none is marked.
func Pivot(obj map[string]any) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(pivotHeader); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, v := range asSlice(obj["people"]) {
		p := asMap(v)
		if p == nil {
			continue
		}

		affName, country := primaryAffiliation(p)

		var labels []string
		for _, c := range mapsOf(p["contacts"]) {
			labels = append(labels, asString(c["label"]))
		}

		var ncts []string
		for _, t := range mapsOf(p["trials"]) {
			ncts = append(ncts, asString(t["nct_id"]))
		}

		row := []string{
			asString(p["full_name"]),
			asString(p["section"]),
			asString(p["role"]),
			affName,
			country,
			strings.Join(stringsOf(p["pins"]), ";"),
			numberString(asMap(p["score_breakdown"])["total"]),
			strings.Join(labels, ";"),
			strings.Join(ncts, ";"),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return sb.String(), nil
}

func primaryAffiliation(p map[string]any) (name, country string) {
	affiliations := mapsOf(p["affiliations"])
	for _, a := range affiliations {
		if asString(a["type"]) == "Primary" {
			return asString(a["name"]), asString(a["country"])
		}
	}
	if len(affiliations) > 0 {
		return asString(affiliations[0]["name"]), asString(affiliations[0]["country"])
	}
	return "", ""
}

// numberString renders a score value the way it appeared in the source:
// integral floats without a decimal point, everything else as-is.
func numberString(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case int:
		return strconv.Itoa(n)
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", n)
	}
}
