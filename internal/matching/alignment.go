package matching

import (
	"math"

	"go.uber.org/zap"
)

// EmbeddingBundle holds one vector per category plus one for the full
// source document. All vectors in a bundle share the same dimension.
type EmbeddingBundle struct {
	Categories map[Category][]float32
	Full       []float32
}

// Vector returns the embedding for a category, nil when absent.
func (b *EmbeddingBundle) Vector(c Category) []float32 {
	if b == nil || b.Categories == nil {
		return nil
	}
	return b.Categories[c]
}

// AttentionMatrix maps (cvCategory, jobCategory) pairs to a similarity in
// [0,1]. The name is historical: it is a plain category-level similarity
// grid, not learned attention.
type AttentionMatrix map[Category]map[Category]float64

// Cell returns the similarity for a pair, with presence.
func (m AttentionMatrix) Cell(cv, job Category) (float64, bool) {
	row, ok := m[cv]
	if !ok {
		return 0, false
	}
	v, ok := row[job]
	return v, ok
}

// AlignmentScores are the calibrated per-category scores plus the weighted
// overall, all integers in [0,100].
type AlignmentScores struct {
	Categories map[Category]int `json:"categories"`
	Overall    int              `json:"overall"`
}

const (
	lexicalWeight  = 0.4
	semanticWeight = 0.6
)

// BuildAttentionMatrix computes cosine similarity for every
// (cvCategory, jobCategory) pair. A missing embedding produces a 0 cell and
// a warning; the completeness validator decides whether that is fatal.
func BuildAttentionMatrix(cv, job *EmbeddingBundle, logger *zap.Logger) AttentionMatrix {
	matrix := make(AttentionMatrix, len(Categories()))

	for _, cvCat := range Categories() {
		row := make(map[Category]float64, len(Categories()))
		cvVec := cv.Vector(cvCat)

		for _, jobCat := range Categories() {
			jobVec := job.Vector(jobCat)

			if len(cvVec) == 0 || len(jobVec) == 0 {
				logger.Warn("missing embedding for matrix cell",
					zap.String("cv_category", string(cvCat)),
					zap.String("job_category", string(jobCat)))
				row[jobCat] = 0
				continue
			}

			sim, err := CosineSimilarity(cvVec, jobVec)
			if err != nil {
				logger.Warn("matrix cell similarity failed",
					zap.String("cv_category", string(cvCat)),
					zap.String("job_category", string(jobCat)),
					zap.Error(err))
				row[jobCat] = 0
				continue
			}

			row[jobCat] = Clamp01(sim)
		}

		matrix[cvCat] = row
	}

	return matrix
}

// ScoreAlignment blends lexical keyword overlap (weight 0.4) with the
// matched-category semantic similarity (weight 0.6) into per-category
// scores, then reduces them to the weighted overall.
//
// Empty-category policy: a CV category with no keywords scores 0 (the
// candidate shows no signal at all); a job category with no requirements
// scores 100 (there is nothing to fail against). The asymmetry is
// intentional.
func ScoreAlignment(cvKeywords, jobKeywords KeywordSet, matrix AttentionMatrix) AlignmentScores {
	scores := AlignmentScores{Categories: make(map[Category]int, len(Categories()))}

	var overall float64
	for _, category := range Categories() {
		score := scoreCategory(category, cvKeywords, jobKeywords, matrix)
		scores.Categories[category] = score
		overall += CategoryWeights[category] * float64(score)
	}

	scores.Overall = int(math.Round(overall))
	return scores
}

func scoreCategory(category Category, cvKeywords, jobKeywords KeywordSet, matrix AttentionMatrix) int {
	cvWords := cvKeywords.Get(category)
	jobWords := jobKeywords.Get(category)

	if len(cvWords) == 0 {
		return 0
	}
	if len(jobWords) == 0 {
		return 100
	}

	lexical := Jaccard(cvWords, jobWords)
	semantic, _ := matrix.Cell(category, category)

	blended := lexicalWeight*lexical + semanticWeight*Clamp01(semantic)
	return int(math.Round(blended * 100))
}
