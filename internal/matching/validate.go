package matching

import (
	"errors"
	"fmt"
)

// ErrIncompleteAnalysis indicates a required artifact is missing or out of
// range. It is fatal: a record failing this gate must never be persisted
// as completed.
var ErrIncompleteAnalysis = errors.New("analysis artifacts incomplete")

// ValidationInput bundles every artifact the completeness gate inspects.
type ValidationInput struct {
	CVKeywords    KeywordSet
	JobKeywords   KeywordSet
	CVEmbeddings  *EmbeddingBundle
	JobEmbeddings *EmbeddingBundle
	Matrix        AttentionMatrix
	Scores        AlignmentScores
}

// ValidateCompleteness asserts that both keyword sets carry the required
// categories, both embedding bundles are fully populated with same-length
// vectors, the attention matrix has every cell in [0,1], and all alignment
// scores are in [0,100]. Any violation fails the whole analysis; the
// system prefers an explicit failure over a silently incomplete score.
func ValidateCompleteness(in ValidationInput) error {
	for _, category := range RequiredCategories() {
		if len(in.CVKeywords.Get(category)) == 0 {
			return violation("cv keywords missing for category %s", category)
		}
		if len(in.JobKeywords.Get(category)) == 0 {
			return violation("job keywords missing for category %s", category)
		}
	}

	if err := validateBundle("cv", in.CVEmbeddings); err != nil {
		return err
	}
	if err := validateBundle("job", in.JobEmbeddings); err != nil {
		return err
	}

	for _, cvCat := range Categories() {
		for _, jobCat := range Categories() {
			cell, ok := in.Matrix.Cell(cvCat, jobCat)
			if !ok {
				return violation("matrix cell (%s, %s) missing", cvCat, jobCat)
			}
			if cell < 0 || cell > 1 {
				return violation("matrix cell (%s, %s) out of range: %f", cvCat, jobCat, cell)
			}
		}
	}

	for _, category := range Categories() {
		score, ok := in.Scores.Categories[category]
		if !ok {
			return violation("score missing for category %s", category)
		}
		if score < 0 || score > 100 {
			return violation("score for category %s out of range: %d", category, score)
		}
	}

	if in.Scores.Overall < 0 || in.Scores.Overall > 100 {
		return violation("overall score out of range: %d", in.Scores.Overall)
	}

	return nil
}

func validateBundle(side string, bundle *EmbeddingBundle) error {
	if bundle == nil {
		return violation("%s embedding bundle missing", side)
	}

	if len(bundle.Full) == 0 {
		return violation("%s full-document embedding missing", side)
	}

	dim := len(bundle.Full)
	for _, category := range Categories() {
		vec := bundle.Vector(category)
		if len(vec) == 0 {
			return violation("%s embedding missing for category %s", side, category)
		}
		if len(vec) != dim {
			return violation("%s embedding for category %s has dimension %d, want %d", side, category, len(vec), dim)
		}
	}

	return nil
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIncompleteAnalysis, fmt.Sprintf(format, args...))
}
