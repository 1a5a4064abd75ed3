package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() ValidationInput {
	keywords := KeywordSet{
		CategoryHardSkills: {"go"},
		CategorySoftSkills: {"communication"},
		CategoryExperience: {"backend"},
		CategoryEducation:  {},
	}

	bundle := func() *EmbeddingBundle {
		return fullBundle(
			[]float32{1, 0}, []float32{0, 1}, []float32{1, 1}, []float32{1, 0},
			[]float32{1, 1})
	}

	scores := AlignmentScores{
		Categories: map[Category]int{
			CategoryHardSkills: 80,
			CategorySoftSkills: 70,
			CategoryExperience: 60,
			CategoryEducation:  0,
		},
		Overall: 62,
	}

	return ValidationInput{
		CVKeywords:    keywords,
		JobKeywords:   keywords,
		CVEmbeddings:  bundle(),
		JobEmbeddings: bundle(),
		Matrix:        uniformMatrix(0.5),
		Scores:        scores,
	}
}

func TestValidateCompletenessAccepts(t *testing.T) {
	assert.NoError(t, ValidateCompleteness(validInput()))
}

func TestValidateCompletenessEducationOptional(t *testing.T) {
	in := validInput()
	in.CVKeywords[CategoryEducation] = nil
	in.JobKeywords[CategoryEducation] = nil

	assert.NoError(t, ValidateCompleteness(in))
}

func TestValidateCompletenessMissingRequiredKeywords(t *testing.T) {
	in := validInput()
	in.CVKeywords = KeywordSet{
		CategoryHardSkills: {"go"},
		CategoryExperience: {"backend"},
	}

	err := ValidateCompleteness(in)
	require.ErrorIs(t, err, ErrIncompleteAnalysis)
	assert.Contains(t, err.Error(), "softSkills")
}

func TestValidateCompletenessNilBundle(t *testing.T) {
	in := validInput()
	in.JobEmbeddings = nil

	err := ValidateCompleteness(in)
	assert.ErrorIs(t, err, ErrIncompleteAnalysis)
}

func TestValidateCompletenessDimensionDrift(t *testing.T) {
	in := validInput()
	in.CVEmbeddings.Categories[CategoryExperience] = []float32{1, 2, 3}

	err := ValidateCompleteness(in)
	require.ErrorIs(t, err, ErrIncompleteAnalysis)
	assert.Contains(t, err.Error(), "dimension")
}

func TestValidateCompletenessMatrixCellMissing(t *testing.T) {
	in := validInput()
	delete(in.Matrix[CategoryHardSkills], CategoryEducation)

	err := ValidateCompleteness(in)
	require.ErrorIs(t, err, ErrIncompleteAnalysis)
	assert.Contains(t, err.Error(), "matrix cell")
}

func TestValidateCompletenessMatrixCellOutOfRange(t *testing.T) {
	in := validInput()
	in.Matrix[CategorySoftSkills][CategorySoftSkills] = 1.3

	err := ValidateCompleteness(in)
	assert.ErrorIs(t, err, ErrIncompleteAnalysis)
}

func TestValidateCompletenessScoreOutOfRange(t *testing.T) {
	in := validInput()
	in.Scores.Categories[CategoryHardSkills] = 120

	err := ValidateCompleteness(in)
	assert.ErrorIs(t, err, ErrIncompleteAnalysis)

	in = validInput()
	in.Scores.Overall = -1
	assert.ErrorIs(t, ValidateCompleteness(in), ErrIncompleteAnalysis)
}
