package services

import (
	"context"
	"regexp"
	"strings"

	"alfredoptarigan/cv-matcher/internal/matching"
)

// heuristicExtractor is the deterministic fallback path: header pattern
// matching for sections and dictionary lookup for keywords. No external
// calls, no failure modes; all four categories always come back, possibly
// empty.
type heuristicExtractor struct{}

func NewHeuristicExtractor() SectionExtractor {
	return &heuristicExtractor{}
}

var sectionHeaderPatterns = map[matching.Category]*regexp.Regexp{
	matching.CategoryHardSkills: regexp.MustCompile(`(?i)^\s*((technical|core|key)\s+)?(skills|technologies|tech\s+stack|competencies)\b`),
	matching.CategorySoftSkills: regexp.MustCompile(`(?i)^\s*(soft\s+skills|interpersonal|strengths|personal\s+qualities)\b`),
	matching.CategoryExperience: regexp.MustCompile(`(?i)^\s*((work|professional)\s+)?(experience|employment|career|history)\b`),
	matching.CategoryEducation:  regexp.MustCompile(`(?i)^\s*(education|academic|qualifications|certifications?|training)\b`),
}

var keywordDictionaries = map[matching.Category][]string{
	matching.CategoryHardSkills: {
		"python", "java", "javascript", "typescript", "go", "golang", "rust", "c++", "c#",
		"react", "angular", "vue", "node.js", "django", "spring", "kubernetes", "docker",
		"aws", "azure", "gcp", "terraform", "postgresql", "mysql", "mongodb", "redis",
		"kafka", "graphql", "rest", "grpc", "linux", "git", "ci/cd", "sql", "nosql",
		"machine learning", "data analysis", "microservices", "html", "css",
	},
	matching.CategorySoftSkills: {
		"leadership", "communication", "teamwork", "collaboration", "problem solving",
		"critical thinking", "adaptability", "time management", "mentoring", "creativity",
		"negotiation", "presentation", "stakeholder management", "conflict resolution",
		"decision making", "empathy", "attention to detail", "ownership",
	},
	matching.CategoryExperience: {
		"managed", "led", "developed", "designed", "implemented", "architected",
		"launched", "scaled", "optimized", "migrated", "automated", "delivered",
		"coordinated", "senior", "principal", "staff", "lead", "director", "founder",
	},
	matching.CategoryEducation: {
		"bachelor", "master", "phd", "msc", "bsc", "mba", "degree", "diploma",
		"certification", "certified", "university", "college", "bootcamp", "course",
	},
}

const maxFallbackKeywords = 15

// ParseSections implements SectionExtractor. Lines are bucketed under the
// most recent recognized header; text before any header counts as
// experience, the usual top-of-résumé content.
func (h *heuristicExtractor) ParseSections(_ context.Context, _ string, text string) (ParsedSections, error) {
	buckets := map[matching.Category]*strings.Builder{
		matching.CategoryHardSkills: {},
		matching.CategorySoftSkills: {},
		matching.CategoryExperience: {},
		matching.CategoryEducation:  {},
	}

	current := matching.CategoryExperience
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		matched := false
		for category, pattern := range sectionHeaderPatterns {
			if pattern.MatchString(trimmed) {
				current = category
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		buckets[current].WriteString(trimmed)
		buckets[current].WriteString("\n")
	}

	return ParsedSections{
		HardSkills: strings.TrimSpace(buckets[matching.CategoryHardSkills].String()),
		SoftSkills: strings.TrimSpace(buckets[matching.CategorySoftSkills].String()),
		Experience: strings.TrimSpace(buckets[matching.CategoryExperience].String()),
		Education:  strings.TrimSpace(buckets[matching.CategoryEducation].String()),
	}, nil
}

// ExtractKeywords implements SectionExtractor. Dictionary terms are looked
// up in the matching section first, then in the whole document, so a
// résumé without clean headers still yields keywords.
func (h *heuristicExtractor) ExtractKeywords(_ context.Context, _ string, sections ParsedSections) (matching.KeywordSet, error) {
	full := strings.ToLower(strings.Join([]string{
		sections.HardSkills, sections.SoftSkills, sections.Experience, sections.Education,
	}, "\n"))

	set := make(matching.KeywordSet, 4)
	for _, category := range matching.Categories() {
		section := strings.ToLower(sections.Section(category))

		var words []string
		for _, term := range keywordDictionaries[category] {
			if len(words) >= maxFallbackKeywords {
				break
			}
			if containsTerm(section, term) || containsTerm(full, term) {
				words = append(words, term)
			}
		}

		set[category] = words
	}

	return set, nil
}

// containsTerm does a word-boundary-aware substring check for a lowercase
// term.
func containsTerm(haystack, term string) bool {
	idx := 0
	for {
		pos := strings.Index(haystack[idx:], term)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(term)

		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}

		idx = start + 1
		if idx >= len(haystack) {
			return false
		}
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
