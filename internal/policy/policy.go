package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults match the curation rules the generator prompt was written
// against. A config file only needs to override what differs.
var (
	defaultSections = []string{
		"Care & Management",
		"Trials & Translational",
		"Models & Assays",
		"Registries & Biobanks",
	}
	defaultTags = []string{
		"peer_reviewed",
		"preprint",
		"trial_registry",
		"case_series",
		"review_consensus",
		"dataset_protocol",
		"news_talk",
		"preclinical_rescue_in_vitro",
		"preclinical_rescue_in_vivo",
		"patent_grant",
	}
	defaultTrackingPrefixes = []string{"utm_", "gclid", "fbclid", "mc_cid", "mc_eid", "igshid", "ref"}
)

const (
	DefaultSummaryMinWords = 140
	DefaultSummaryMaxWords = 220
)

// Policy holds the curation rules applied by cleaning and validation.
type Policy struct {
	AllowedSections  []string `yaml:"allowed_sections"`
	AllowedTags      []string `yaml:"allowed_tags"`
	SummaryMinWords  int      `yaml:"summary_min_words"`
	SummaryMaxWords  int      `yaml:"summary_max_words"`
	TrackingPrefixes []string `yaml:"tracking_prefixes"`

	sections map[string]bool
	tags     map[string]bool
}

// Default returns the built-in policy.
func Default() *Policy {
	p := &Policy{
		AllowedSections:  defaultSections,
		AllowedTags:      defaultTags,
		SummaryMinWords:  DefaultSummaryMinWords,
		SummaryMaxWords:  DefaultSummaryMaxWords,
		TrackingPrefixes: defaultTrackingPrefixes,
	}
	p.compile()
	return p
}

// Load reads a policy from a YAML file. Fields left unset in the file fall
// back to the defaults, then the result is validated.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML policy: %w", err)
	}

	// Apply defaults for omitted fields
	if p.AllowedSections == nil {
		p.AllowedSections = defaultSections
	}
	if p.AllowedTags == nil {
		p.AllowedTags = defaultTags
	}
	if p.SummaryMinWords == 0 {
		p.SummaryMinWords = DefaultSummaryMinWords
	}
	if p.SummaryMaxWords == 0 {
		p.SummaryMaxWords = DefaultSummaryMaxWords
	}
	if p.TrackingPrefixes == nil {
		p.TrackingPrefixes = defaultTrackingPrefixes
	}

	if errs := p.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid policy in '%s':\n%s", path, strings.Join(errs, "\n"))
	}

	p.compile()
	return &p, nil
}

// Validate checks the policy for internal consistency and returns a list of
// problems, one per line.
func (p *Policy) Validate() []string {
	var errors []string

	if len(p.AllowedSections) == 0 {
		errors = append(errors, "  - allowed_sections must not be empty")
	}
	for _, s := range p.AllowedSections {
		if strings.TrimSpace(s) == "" {
			errors = append(errors, "  - allowed_sections contains a blank entry")
			break
		}
	}

	if len(p.AllowedTags) == 0 {
		errors = append(errors, "  - allowed_tags must not be empty")
	}
	for _, tag := range p.AllowedTags {
		if strings.TrimSpace(tag) == "" {
			errors = append(errors, "  - allowed_tags contains a blank entry")
			break
		}
	}

	if p.SummaryMinWords < 0 {
		errors = append(errors, fmt.Sprintf("  - summary_min_words must be positive, got %d", p.SummaryMinWords))
	}
	if p.SummaryMaxWords < 0 {
		errors = append(errors, fmt.Sprintf("  - summary_max_words must be positive, got %d", p.SummaryMaxWords))
	}
	if p.SummaryMinWords > 0 && p.SummaryMaxWords > 0 && p.SummaryMinWords > p.SummaryMaxWords {
		errors = append(errors, fmt.Sprintf("  - summary_min_words (%d) exceeds summary_max_words (%d)",
			p.SummaryMinWords, p.SummaryMaxWords))
	}

	return errors
}

func (p *Policy) compile() {
	p.sections = make(map[string]bool, len(p.AllowedSections))
	for _, s := range p.AllowedSections {
		p.sections[s] = true
	}
	p.tags = make(map[string]bool, len(p.AllowedTags))
	for _, tag := range p.AllowedTags {
		p.tags[tag] = true
	}
}

// SectionAllowed reports whether s is an allowed dossier section.
func (p *Policy) SectionAllowed(s string) bool {
	return p.sections[s]
}

// TagAllowed reports whether tag is an allowed evidence tag.
func (p *Policy) TagAllowed(tag string) bool {
	return p.tags[tag]
}
