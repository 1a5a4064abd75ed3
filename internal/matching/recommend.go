package matching

import (
	"fmt"
	"sort"
)

// Recommendation is one ranked, user-facing improvement suggestion merged
// from the ATS report, the ablation actions, and low category scores.
type Recommendation struct {
	Source   string `json:"source"` // ats | ablation | alignment
	Category string `json:"category,omitempty"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
}

var priorityRank = map[string]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
}

// RankRecommendations assembles the final recommendation list. Ablation
// actions keep their measured priorities; ATS recommendations are HIGH when
// the formatting score is below 50; category advice is emitted for every
// category under the ablation threshold. Ordering is by priority, then by
// insertion order within a priority band.
func RankRecommendations(ats ATSReport, ablations []AblationResult, scores AlignmentScores) []Recommendation {
	var recs []Recommendation

	atsPriority := PriorityMedium
	if ats.Score < 50 {
		atsPriority = PriorityHigh
	}
	for _, message := range ats.Recommendations {
		recs = append(recs, Recommendation{
			Source:   "ats",
			Priority: atsPriority,
			Message:  message,
		})
	}

	for _, ablation := range ablations {
		for _, action := range ablation.Actions {
			recs = append(recs, Recommendation{
				Source:   "ablation",
				Category: string(ablation.Category),
				Priority: action.Priority,
				Message:  action.Reason,
			})
		}
	}

	for _, category := range Categories() {
		score, ok := scores.Categories[category]
		if !ok || score >= AblationThreshold {
			continue
		}

		priority := PriorityMedium
		if score < 40 {
			priority = PriorityHigh
		}

		recs = append(recs, Recommendation{
			Source:   "alignment",
			Category: string(category),
			Priority: priority,
			Message:  fmt.Sprintf("The %s category scores %d/100; strengthen it with terms the job description emphasizes.", category, score),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})

	return recs
}
