package matching

import "strings"

// Category identifies one of the fixed keyword buckets shared by CVs and
// job descriptions.
type Category string

const (
	CategoryHardSkills Category = "hardSkills"
	CategorySoftSkills Category = "softSkills"
	CategoryExperience Category = "experience"
	CategoryEducation  Category = "education"
)

// Categories returns all buckets in their canonical order.
func Categories() []Category {
	return []Category{
		CategoryHardSkills,
		CategorySoftSkills,
		CategoryExperience,
		CategoryEducation,
	}
}

// CategoryWeights are the fixed contribution weights used for the overall
// alignment score. They sum to exactly 1.0.
var CategoryWeights = map[Category]float64{
	CategoryHardSkills: 0.35,
	CategorySoftSkills: 0.25,
	CategoryExperience: 0.25,
	CategoryEducation:  0.15,
}

// RequiredCategories are the buckets that must be non-empty for an analysis
// to pass the completeness gate. Education is optional.
func RequiredCategories() []Category {
	return []Category{CategoryHardSkills, CategorySoftSkills, CategoryExperience}
}

// KeywordSet is the flat keyword form: category -> ordered list of short
// strings.
type KeywordSet map[Category][]string

// Get returns the keywords for a category, never nil semantics beyond an
// empty slice.
func (k KeywordSet) Get(c Category) []string {
	if k == nil {
		return nil
	}
	return k[c]
}

// Count returns the total number of keywords across all categories.
func (k KeywordSet) Count() int {
	total := 0
	for _, words := range k {
		total += len(words)
	}
	return total
}

// GroupedKeywordSet is the nested keyword form: category -> subcategory ->
// keywords. It exists because some extraction providers return grouped
// output; consumers only ever see the flat form.
type GroupedKeywordSet map[Category]map[string][]string

// Flatten collapses the grouped form into the flat form. Flattening
// preserves the keyword multiset: every keyword of every subcategory
// appears exactly once per occurrence.
func (g GroupedKeywordSet) Flatten() KeywordSet {
	flat := make(KeywordSet, len(g))
	for category, groups := range g {
		var words []string
		for _, group := range groups {
			words = append(words, group...)
		}
		flat[category] = words
	}
	return flat
}

// Jaccard computes the case-insensitive lexical overlap of two keyword
// lists: |A∩B| / |A∪B|. Two empty lists yield 0.
func Jaccard(a, b []string) float64 {
	union := make(map[string]struct{})
	setA := make(map[string]struct{}, len(a))

	for _, word := range a {
		key := strings.ToLower(strings.TrimSpace(word))
		if key == "" {
			continue
		}
		setA[key] = struct{}{}
		union[key] = struct{}{}
	}

	intersection := 0
	seenB := make(map[string]struct{}, len(b))
	for _, word := range b {
		key := strings.ToLower(strings.TrimSpace(word))
		if key == "" {
			continue
		}
		if _, dup := seenB[key]; dup {
			continue
		}
		seenB[key] = struct{}{}
		if _, ok := setA[key]; ok {
			intersection++
		}
		union[key] = struct{}{}
	}

	if len(union) == 0 {
		return 0
	}

	return float64(intersection) / float64(len(union))
}
