package matching

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// AblationThreshold is the category score below which the ablation
// analysis runs.
const AblationThreshold = 70

const (
	ActionKeep    = "KEEP"
	ActionReplace = "REPLACE"
	ActionAdd     = "ADD"

	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"

	SignificancePositive = "positive"
	SignificanceNegative = "negative"
)

// Reporting bounds: removal deltas within ±5 points are noise, add deltas
// need to clear 10 points, and HIGH priority needs 15 (keep/replace) or 20
// (add).
const (
	removalReportThreshold = 5
	addReportThreshold     = 10
	removalHighThreshold   = 15
	addHighThreshold       = 20

	maxAddCandidates = 3
)

// KeywordImpact is the measured marginal contribution of one keyword.
type KeywordImpact struct {
	Keyword      string `json:"keyword"`
	ImpactDelta  int    `json:"impactDelta"` // signed percentage points
	Significance string `json:"significance"`
}

// RecommendedAction is a falsifiable keep/replace/add suggestion derived
// from an impact measurement.
type RecommendedAction struct {
	Action   string `json:"action"`
	Keyword  string `json:"keyword"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
}

// AblationResult holds the sensitivity analysis for one low-scoring
// category.
type AblationResult struct {
	Category Category            `json:"category"`
	Impacts  []KeywordImpact     `json:"impacts"`
	Actions  []RecommendedAction `json:"actionableRecommendations"`
}

// EmbedFunc produces an embedding for a piece of text. The analyzer issues
// its per-keyword simulations through this single suspension point.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// ComposeFunc turns a category keyword list into the text that gets
// embedded, so simulations embed exactly what the scorer embedded.
type ComposeFunc func(category Category, keywords []string) string

// AblationAnalyzer measures each keyword's marginal contribution to a
// category's semantic similarity by leave-one-out and add-one-in
// re-embedding. The candidate set is deliberately bounded: at most the
// CV's own keyword count plus three missing-keyword candidates.
type AblationAnalyzer struct {
	embed   EmbedFunc
	compose ComposeFunc
	logger  *zap.Logger
}

func NewAblationAnalyzer(embed EmbedFunc, compose ComposeFunc, logger *zap.Logger) *AblationAnalyzer {
	return &AblationAnalyzer{embed: embed, compose: compose, logger: logger}
}

// Analyze runs the sensitivity analysis for one category. jobVector is the
// job side's category embedding; simulations are issued sequentially to
// bound provider load. A failed single simulation is logged and skipped,
// never fatal for the analysis.
func (a *AblationAnalyzer) Analyze(
	ctx context.Context,
	category Category,
	cvKeywords, jobKeywords []string,
	jobVector []float32,
) (*AblationResult, error) {
	result := &AblationResult{Category: category}

	if len(cvKeywords) == 0 || len(jobVector) == 0 {
		return result, nil
	}

	original, err := a.similarityFor(ctx, category, cvKeywords, jobVector)
	if err != nil {
		return nil, fmt.Errorf("baseline similarity for %s: %w", category, err)
	}

	a.analyzeRemovals(ctx, category, cvKeywords, jobVector, original, result)
	a.analyzeAdditions(ctx, category, cvKeywords, jobKeywords, jobVector, original, result)

	return result, nil
}

func (a *AblationAnalyzer) analyzeRemovals(
	ctx context.Context,
	category Category,
	cvKeywords []string,
	jobVector []float32,
	original float64,
	result *AblationResult,
) {
	for i, keyword := range cvKeywords {
		reduced := make([]string, 0, len(cvKeywords)-1)
		reduced = append(reduced, cvKeywords[:i]...)
		reduced = append(reduced, cvKeywords[i+1:]...)

		without, err := a.similarityFor(ctx, category, reduced, jobVector)
		if err != nil {
			a.logger.Warn("ablation simulation skipped",
				zap.String("category", string(category)),
				zap.String("keyword", keyword),
				zap.Error(err))
			continue
		}

		delta := int(math.Round((original - without) * 100))
		if abs(delta) <= removalReportThreshold {
			continue
		}

		impact := KeywordImpact{Keyword: keyword, ImpactDelta: delta, Significance: SignificancePositive}
		action := RecommendedAction{Keyword: keyword, Priority: priorityForRemoval(delta)}

		if delta > 0 {
			action.Action = ActionKeep
			action.Reason = fmt.Sprintf("Removing %q would drop the %s similarity by %d points.", keyword, category, delta)
		} else {
			impact.Significance = SignificanceNegative
			action.Action = ActionReplace
			action.Reason = fmt.Sprintf("%q is dragging the %s similarity down by %d points.", keyword, category, -delta)
		}

		result.Impacts = append(result.Impacts, impact)
		result.Actions = append(result.Actions, action)
	}
}

func (a *AblationAnalyzer) analyzeAdditions(
	ctx context.Context,
	category Category,
	cvKeywords, jobKeywords []string,
	jobVector []float32,
	original float64,
	result *AblationResult,
) {
	candidates := missingKeywords(cvKeywords, jobKeywords, maxAddCandidates)

	for _, keyword := range candidates {
		extended := make([]string, 0, len(cvKeywords)+1)
		extended = append(extended, cvKeywords...)
		extended = append(extended, keyword)

		with, err := a.similarityFor(ctx, category, extended, jobVector)
		if err != nil {
			a.logger.Warn("ablation simulation skipped",
				zap.String("category", string(category)),
				zap.String("keyword", keyword),
				zap.Error(err))
			continue
		}

		delta := int(math.Round((with - original) * 100))
		if delta <= addReportThreshold {
			continue
		}

		priority := PriorityMedium
		if delta > addHighThreshold {
			priority = PriorityHigh
		}

		result.Impacts = append(result.Impacts, KeywordImpact{
			Keyword:      keyword,
			ImpactDelta:  delta,
			Significance: SignificancePositive,
		})
		result.Actions = append(result.Actions, RecommendedAction{
			Action:   ActionAdd,
			Keyword:  keyword,
			Reason:   fmt.Sprintf("Adding %q would raise the %s similarity by %d points.", keyword, category, delta),
			Priority: priority,
		})
	}
}

func (a *AblationAnalyzer) similarityFor(ctx context.Context, category Category, keywords []string, jobVector []float32) (float64, error) {
	vec, err := a.embed(ctx, a.compose(category, keywords))
	if err != nil {
		return 0, err
	}

	sim, err := CosineSimilarity(vec, jobVector)
	if err != nil {
		return 0, err
	}

	return Clamp01(sim), nil
}

// missingKeywords returns up to limit job keywords with no substring
// relation (either direction, case-insensitive) to any CV keyword.
func missingKeywords(cvKeywords, jobKeywords []string, limit int) []string {
	var missing []string

	for _, jobWord := range jobKeywords {
		if len(missing) >= limit {
			break
		}

		jobLower := strings.ToLower(strings.TrimSpace(jobWord))
		if jobLower == "" {
			continue
		}

		present := false
		for _, cvWord := range cvKeywords {
			cvLower := strings.ToLower(strings.TrimSpace(cvWord))
			if cvLower == "" {
				continue
			}
			if strings.Contains(cvLower, jobLower) || strings.Contains(jobLower, cvLower) {
				present = true
				break
			}
		}

		if !present {
			missing = append(missing, jobWord)
		}
	}

	return missing
}

func priorityForRemoval(delta int) string {
	if abs(delta) > removalHighThreshold {
		return PriorityHigh
	}
	return PriorityMedium
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
