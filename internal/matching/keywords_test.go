package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryWeightsSumToOne(t *testing.T) {
	total := 0.0
	for _, category := range Categories() {
		total += CategoryWeights[category]
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestJaccardIdenticalLists(t *testing.T) {
	words := []string{"go", "react", "postgres"}
	assert.Equal(t, 1.0, Jaccard(words, words))
}

func TestJaccardDisjointLists(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard([]string{"go"}, []string{"rust"}))
}

func TestJaccardBothEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.Equal(t, 0.0, Jaccard([]string{}, []string{}))
}

func TestJaccardPartialOverlap(t *testing.T) {
	// Intersection {react}, union {react, angular, vue}.
	got := Jaccard([]string{"react"}, []string{"React", "Angular", "Vue"})
	assert.InDelta(t, 1.0/3.0, got, 1e-9)
}

func TestJaccardCaseInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard([]string{"Go", "REACT"}, []string{"go", "react"}))
}

func TestJaccardDeduplicates(t *testing.T) {
	// Duplicates must not inflate intersection or union counts.
	got := Jaccard([]string{"go", "go", "go"}, []string{"go", "rust", "rust"})
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestJaccardIgnoresBlankEntries(t *testing.T) {
	got := Jaccard([]string{"go", "", "  "}, []string{"go"})
	assert.Equal(t, 1.0, got)
}

func TestKeywordSetCount(t *testing.T) {
	set := KeywordSet{
		CategoryHardSkills: {"go", "react"},
		CategorySoftSkills: {"communication"},
	}
	assert.Equal(t, 3, set.Count())

	var empty KeywordSet
	assert.Equal(t, 0, empty.Count())
}

func TestKeywordSetGetNil(t *testing.T) {
	var set KeywordSet
	assert.Nil(t, set.Get(CategoryHardSkills))
}

func TestGroupedKeywordSetFlattenPreservesMultiset(t *testing.T) {
	grouped := GroupedKeywordSet{
		CategoryHardSkills: {
			"languages":  {"go", "python"},
			"frameworks": {"react", "go"}, // duplicate across groups stays
		},
		CategoryEducation: {
			"degrees": {"bsc computer science"},
		},
	}

	flat := grouped.Flatten()

	assert.Len(t, flat[CategoryHardSkills], 4)
	assert.ElementsMatch(t, []string{"go", "python", "react", "go"}, flat[CategoryHardSkills])
	assert.Equal(t, []string{"bsc computer science"}, flat[CategoryEducation])
}

func TestRequiredCategoriesExcludesEducation(t *testing.T) {
	assert.NotContains(t, RequiredCategories(), CategoryEducation)
	assert.Len(t, RequiredCategories(), 3)
}
