package people

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validPerson builds a person that passes validation under the default policy.
func validPerson(id string, order int) map[string]any {
	return map[string]any{
		"id":             id,
		"full_name":      "Jane Doe",
		"section":        "Trials & Translational",
		"role":           "Principal Investigator",
		"summary_text":   summaryOfWords(150),
		"original_order": float64(order),
		"contacts": []any{
			map[string]any{
				"label":         "Lab",
				"type":          "page",
				"url":           "https://example.org/lab",
				"verified_date": "2025-06-30",
			},
		},
		"evidence": []any{
			map[string]any{
				"tag":           "peer_reviewed",
				"canonical_url": "https://journals.example.org/article/1",
			},
		},
		"trials": []any{
			map[string]any{
				"nct_id":      "NCT01234567",
				"source_urls": []any{"https://clinicaltrials.gov/study/NCT01234567"},
			},
		},
	}
}

func TestValidate_Pass(t *testing.T) {
	obj := dossier(validPerson("p1", 1), validPerson("p2", 2))
	rep := Validate(obj, testPolicy())

	assert.True(t, rep.Passed())
	assert.Empty(t, rep.Errors)
	assert.Empty(t, rep.Warnings)
	assert.Equal(t, 2, rep.PeopleCount)
}

func TestValidate_EmptyPeople(t *testing.T) {
	rep := Validate(map[string]any{"people": []any{}}, testPolicy())
	require.False(t, rep.Passed())
	assert.Contains(t, rep.Errors, "`people` must be a non-empty array.")
}

func TestValidate_MissingID(t *testing.T) {
	p := validPerson("p1", 1)
	delete(p, "id")
	rep := Validate(dossier(p), testPolicy())

	require.False(t, rep.Passed())
	assert.Contains(t, rep.Errors, "person[1]: missing id")
}

func TestValidate_DuplicateIDs(t *testing.T) {
	rep := Validate(dossier(validPerson("p1", 1), validPerson("p1", 2)), testPolicy())

	require.False(t, rep.Passed())
	assert.Contains(t, rep.Errors, "Duplicate `id` values found.")
}

func TestValidate_InvalidSection(t *testing.T) {
	p := validPerson("p1", 1)
	p["section"] = "Miscellaneous"
	rep := Validate(dossier(p), testPolicy())

	require.False(t, rep.Passed())
	assert.Contains(t, rep.Errors, "person[1]/p1: invalid section 'Miscellaneous'")
}

func TestValidate_SummaryLengthWarning(t *testing.T) {
	p := validPerson("p1", 1)
	p["summary_text"] = summaryOfWords(40)
	rep := Validate(dossier(p), testPolicy())

	assert.True(t, rep.Passed(), "short summary is a warning, not an error")
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "summary_text words=40")
}

func TestValidate_ContactErrors(t *testing.T) {
	p := validPerson("p1", 1)
	p["contacts"] = []any{
		map[string]any{"label": "a", "type": "email", "url": "mailto:not-an-email", "verified_date": "2025-01-01"},
		map[string]any{"label": "b", "type": "phone", "url": "555-1234", "verified_date": "2025-01-01"},
		map[string]any{"label": "c", "type": "page", "url": "http://insecure.example.org", "verified_date": "2025-01-01"},
		map[string]any{"label": "d", "type": "page", "verified_date": "2025-01-01"},
	}
	rep := Validate(dossier(p), testPolicy())

	require.False(t, rep.Passed())
	assert.Contains(t, rep.Errors, "person[1]/p1/contacts[0]: invalid mailto")
	assert.Contains(t, rep.Errors, "person[1]/p1/contacts[1]: invalid phone URL (must start 'tel:')")
	assert.Contains(t, rep.Errors, "person[1]/p1/contacts[2]: invalid URL 'http://insecure.example.org' for page")
	assert.Contains(t, rep.Errors, "person[1]/p1/contacts[3]: url missing")
}

func TestValidate_VerifiedDateWarning(t *testing.T) {
	p := validPerson("p1", 1)
	p["contacts"] = []any{
		map[string]any{"label": "Lab", "type": "page", "url": "https://example.org/lab"},
	}
	rep := Validate(dossier(p), testPolicy())

	assert.True(t, rep.Passed())
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "missing or non-ISO verified_date")
}

func TestValidate_EvidenceErrors(t *testing.T) {
	p := validPerson("p1", 1)
	p["evidence"] = []any{
		map[string]any{"tag": "blog_post", "canonical_url": "https://example.org/post"},
		map[string]any{"tag": "peer_reviewed", "canonical_url": "not a url"},
	}
	rep := Validate(dossier(p), testPolicy())

	require.False(t, rep.Passed())
	assert.Contains(t, rep.Errors, "person[1]/p1/evidence[0]: invalid tag 'blog_post'")
	assert.Contains(t, rep.Errors, "person[1]/p1/evidence[1]: invalid canonical_url 'not a url'")
}

func TestValidate_TrialWithoutSources(t *testing.T) {
	p := validPerson("p1", 1)
	p["trials"] = []any{
		map[string]any{"nct_id": "NCT01234567", "source_urls": []any{}},
	}
	rep := Validate(dossier(p), testPolicy())

	require.False(t, rep.Passed())
	assert.Contains(t, rep.Errors, "person[1]/p1/trials[0]: no valid https URLs in source_urls")
}

func TestValidate_PeopleCountCorrected(t *testing.T) {
	obj := dossier(validPerson("p1", 1))
	obj["people_count"] = float64(5)
	rep := Validate(obj, testPolicy())

	assert.True(t, rep.Passed())
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "`people_count` != len(people)")
	assert.Equal(t, 1, obj["people_count"])
}

func TestValidate_OrderWarning(t *testing.T) {
	p1 := validPerson("p1", 1)
	p2 := validPerson("p2", 7)
	rep := Validate(dossier(p1, p2), testPolicy())

	assert.True(t, rep.Passed())
	assert.Contains(t, rep.Warnings, "`original_order` not contiguous 1..N")
}

func TestValidate_CleanThenValidateRoundTrip(t *testing.T) {
	// A representative damaged payload that Clean can fully repair
	p := validPerson("p1", 1)
	p["contacts"] = []any{
		map[string]any{
			"label":         "Email",
			"type":          "email",
			"url":           "jane.doe@example.org",
			"verified_date": "2025-06-30",
		},
	}
	p["trials"] = []any{
		map[string]any{"source_urls": []any{"https://clinicaltrials.gov/ct2/show/NCT01234567"}},
	}
	obj := dossier(p)

	pol := testPolicy()
	Clean(obj, pol)
	rep := Validate(obj, pol)

	assert.True(t, rep.Passed(), "errors: %v", rep.Errors)
	assert.Empty(t, rep.Warnings)
}
