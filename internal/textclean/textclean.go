// Package textclean repairs pasted generator output before JSON parsing.
// Raw pastes routinely arrive wrapped in code fences, BEGIN/END markers,
// markdown links, curly quotes, and stray prose; this package strips the
// mechanical debris so the payload can be decoded deterministically.
package textclean

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	markdownLinkPattern  = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)]+)\)`)
	bareBracketedURL     = regexp.MustCompile(`\[(https?://[^\]\s)]+)\]`)
	ctgovShowTextPattern = regexp.MustCompile(`https://clinicaltrials\.gov/ct2/show/(NCT[0-9]{8})`)
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
)

// StripBOM removes a leading UTF-8 byte order mark.
func StripBOM(text string) string {
	return strings.TrimPrefix(text, "\ufeff")
}

// stripWrappers drops code fences and BEGIN/END marker lines.
func stripWrappers(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		switch strings.ToUpper(trimmed) {
		case "BEGIN JSON", "END JSON", "BEGIN MARKDOWN", "END MARKDOWN":
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// flattenMarkdownLinks rewrites markdown link syntax down to the bare URL.
func flattenMarkdownLinks(text string) string {
	text = markdownLinkPattern.ReplaceAllString(text, "$2")
	text = bareBracketedURL.ReplaceAllString(text, "$1")
	// Accidental leading '[' inside quoted URLs
	text = strings.ReplaceAll(text, `"[https://`, `"https://`)
	// Lingering link glue
	text = strings.ReplaceAll(text, "](", "")
	text = strings.ReplaceAll(text, ")]", ")")
	return text
}

func normalizeCTGovText(text string) string {
	return ctgovShowTextPattern.ReplaceAllString(text, "https://clinicaltrials.gov/study/$1")
}

func httpToHTTPS(text string) string {
	return strings.ReplaceAll(text, `"http://`, `"https://`)
}

func straightenQuotes(text string) string {
	replacer := strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
	return replacer.Replace(text)
}

// stripTrailingCommas removes commas directly before a closing } or ].
// Last-resort repair; only applied in aggressive mode.
func stripTrailingCommas(text string) string {
	return trailingCommaPattern.ReplaceAllString(text, "$1")
}

// ExtractFirstObject returns the first balanced top-level JSON object in
// text, scanning braces while ignoring those inside strings and escaped
// quotes. Returns "" when no balanced object is found.
func ExtractFirstObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// Preclean applies mechanical hygiene before a JSON parse attempt.
// Aggressive mode additionally straightens curly quotes, extracts the first
// top-level object when prose or multiple objects are present, and removes
// trailing commas.
func Preclean(raw string, aggressive bool) string {
	t := StripBOM(raw)
	t = stripWrappers(t)
	t = flattenMarkdownLinks(t)
	t = normalizeCTGovText(t)
	t = httpToHTTPS(t)

	if aggressive {
		t = straightenQuotes(t)
		if candidate := ExtractFirstObject(t); candidate != "" {
			t = candidate
		}
		t = stripTrailingCommas(t)
	}

	return t
}

// Decode parses raw pasted text into a JSON object. When preclean is set the
// normal hygiene pass runs before the first parse attempt; on failure a
// second attempt is always made with aggressive preclean. The returned error
// carries the parse position and surrounding context of the final attempt.
func Decode(raw string, preclean bool) (map[string]any, error) {
	text := raw
	if preclean {
		text = Preclean(raw, false)
	}

	obj, err := decodeObject(text)
	if err == nil {
		return obj, nil
	}

	text = Preclean(raw, true)
	obj, err = decodeObject(text)
	if err != nil {
		return nil, decodeError(text, err)
	}
	return obj, nil
}

func decodeObject(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("top-level value is not a JSON object")
	}
	return obj, nil
}

// decodeError wraps a JSON parse failure with a snippet around the offending
// offset so a fail report can point at the problem.
func decodeError(text string, err error) error {
	var offset int64
	switch e := err.(type) {
	case *json.SyntaxError:
		offset = e.Offset
	case *json.UnmarshalTypeError:
		offset = e.Offset
	default:
		return fmt.Errorf("JSON parse failed even after aggressive preclean: %w", err)
	}

	lo := offset - 60
	if lo < 0 {
		lo = 0
	}
	hi := offset + 60
	if hi > int64(len(text)) {
		hi = int64(len(text))
	}

	return fmt.Errorf("JSON parse failed even after aggressive preclean at offset %d: %v (around: %s)",
		offset, err, strings.TrimSpace(text[lo:hi]))
}
