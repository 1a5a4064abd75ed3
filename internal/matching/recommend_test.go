package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankRecommendationsPriorityOrdering(t *testing.T) {
	ats := ATSReport{
		Score:           80,
		Recommendations: []string{"Add an Education header."},
	}
	ablations := []AblationResult{{
		Category: CategoryHardSkills,
		Actions: []RecommendedAction{
			{Action: ActionAdd, Keyword: "kubernetes", Reason: "Add kubernetes.", Priority: PriorityHigh},
			{Action: ActionKeep, Keyword: "go", Reason: "Keep go.", Priority: PriorityMedium},
		},
	}}
	scores := AlignmentScores{Categories: map[Category]int{
		CategoryHardSkills: 55,
		CategorySoftSkills: 90,
		CategoryExperience: 35,
		CategoryEducation:  75,
	}}

	recs := RankRecommendations(ats, ablations, scores)

	require.NotEmpty(t, recs)

	// All HIGH entries come before any MEDIUM entry.
	lastHigh, firstMedium := -1, len(recs)
	for i, rec := range recs {
		if rec.Priority == PriorityHigh && i > lastHigh {
			lastHigh = i
		}
		if rec.Priority == PriorityMedium && i < firstMedium {
			firstMedium = i
		}
	}
	assert.Less(t, lastHigh, firstMedium)

	// The ablation HIGH and the experience (<40) advice rank at the top.
	assert.Equal(t, PriorityHigh, recs[0].Priority)
}

func TestRankRecommendationsATSPriorityFollowsScore(t *testing.T) {
	lowATS := ATSReport{Score: 40, Recommendations: []string{"Fix formatting."}}
	recs := RankRecommendations(lowATS, nil, AlignmentScores{Categories: map[Category]int{}})

	require.NotEmpty(t, recs)
	for _, rec := range recs {
		if rec.Source == "ats" {
			assert.Equal(t, PriorityHigh, rec.Priority)
		}
	}

	okATS := ATSReport{Score: 75, Recommendations: []string{"Minor tweak."}}
	recs = RankRecommendations(okATS, nil, AlignmentScores{Categories: map[Category]int{}})
	for _, rec := range recs {
		if rec.Source == "ats" {
			assert.Equal(t, PriorityMedium, rec.Priority)
		}
	}
}

func TestRankRecommendationsLowCategoriesGetAdvice(t *testing.T) {
	scores := AlignmentScores{Categories: map[Category]int{
		CategoryHardSkills: 65, // below threshold, MEDIUM
		CategorySoftSkills: 30, // below 40, HIGH
		CategoryExperience: 85,
		CategoryEducation:  70, // exactly at threshold, no advice
	}}

	recs := RankRecommendations(ATSReport{}, nil, scores)

	byCategory := make(map[string]Recommendation)
	for _, rec := range recs {
		if rec.Source == "alignment" {
			byCategory[rec.Category] = rec
		}
	}

	require.Len(t, byCategory, 2)
	assert.Equal(t, PriorityMedium, byCategory["hardSkills"].Priority)
	assert.Equal(t, PriorityHigh, byCategory["softSkills"].Priority)
	assert.NotContains(t, byCategory, "experience")
	assert.NotContains(t, byCategory, "education")
}

func TestRankRecommendationsEmptyInputs(t *testing.T) {
	recs := RankRecommendations(ATSReport{Score: 100}, nil,
		AlignmentScores{Categories: map[Category]int{}})
	assert.Empty(t, recs)
}
