package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/matching"
)

// stubGemini records calls and serves canned vectors keyed by input text.
type stubGemini struct {
	textResponse string
	textErr      error
	vectors      map[string][]float32
	defaultVec   []float32
	embedErr     error
	embedded     []string
}

func (s *stubGemini) GenerateText(_ context.Context, _ string, _ float32) (string, error) {
	return s.textResponse, s.textErr
}

func (s *stubGemini) GenerateTextWithRetry(_ context.Context, _ string, _ float32, _ int) (string, error) {
	return s.textResponse, s.textErr
}

func (s *stubGemini) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	s.embedded = append(s.embedded, text)
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return s.defaultVec, nil
}

func (s *stubGemini) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func TestEmbedBlankTextReturnsZeroVector(t *testing.T) {
	svc := NewEmbeddingService(&stubGemini{}, 4, zap.NewNop())

	vec, err := svc.Embed(context.Background(), "   \n\t ")
	require.NoError(t, err)

	assert.Len(t, vec, 4)
	assert.True(t, matching.IsZeroVector(vec))
}

func TestEmbedWrapsProviderFailure(t *testing.T) {
	svc := NewEmbeddingService(&stubGemini{embedErr: errors.New("quota exceeded")}, 4, zap.NewNop())

	_, err := svc.Embed(context.Background(), "some text")
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
}

func TestBuildBundlePopulatesAllCategories(t *testing.T) {
	gemini := &stubGemini{defaultVec: []float32{0.1, 0.2, 0.3}}
	svc := NewEmbeddingService(gemini, 3, zap.NewNop())

	keywords := matching.KeywordSet{
		matching.CategoryHardSkills: {"go", "react"},
		matching.CategorySoftSkills: {"communication"},
	}
	sections := ParsedSections{Experience: "built backend services"}

	bundle, err := svc.BuildBundle(context.Background(), "full document text", sections, keywords)
	require.NoError(t, err)

	for _, category := range matching.Categories() {
		assert.Len(t, bundle.Vector(category), 3, "category %s", category)
	}
	assert.Len(t, bundle.Full, 3)

	// One batch call: four category inputs plus the full document.
	require.Len(t, gemini.embedded, 5)
	assert.Equal(t, "full document text", gemini.embedded[4])
}

func TestBuildBundleCategoryInputFallbackChain(t *testing.T) {
	gemini := &stubGemini{defaultVec: []float32{1}}
	svc := NewEmbeddingService(gemini, 1, zap.NewNop())

	keywords := matching.KeywordSet{
		matching.CategoryHardSkills: {"go"},
	}
	sections := ParsedSections{Experience: "ran the platform team"}

	_, err := svc.BuildBundle(context.Background(), "doc", sections, keywords)
	require.NoError(t, err)

	require.Len(t, gemini.embedded, 5)
	// Keywords win over section text.
	assert.Contains(t, gemini.embedded[0], "go")
	assert.Contains(t, gemini.embedded[0], "Proficient in")
	// No keywords, no section text: the literal placeholder.
	assert.Equal(t, "none", gemini.embedded[1]) // softSkills
	// No keywords but section text present: raw section text.
	assert.Equal(t, "ran the platform team", gemini.embedded[2])
	assert.Equal(t, "none", gemini.embedded[3]) // education
}

func TestBuildBundleProviderFailure(t *testing.T) {
	svc := NewEmbeddingService(&stubGemini{embedErr: errors.New("down")}, 2, zap.NewNop())

	_, err := svc.BuildBundle(context.Background(), "doc", ParsedSections{}, nil)
	assert.ErrorIs(t, err, ErrEmbeddingFailure)
}

func TestComposeCategoryTextTemplates(t *testing.T) {
	svc := NewEmbeddingService(&stubGemini{}, 2, zap.NewNop())

	hard := svc.ComposeCategoryText(matching.CategoryHardSkills, []string{"go", "postgres"})
	assert.Equal(t, "Proficient in go, postgres as programming languages, tools, and technologies.", hard)

	soft := svc.ComposeCategoryText(matching.CategorySoftSkills, []string{"communication"})
	assert.Equal(t, "Demonstrates strong communication in professional settings.", soft)

	exp := svc.ComposeCategoryText(matching.CategoryExperience, []string{"team lead"})
	assert.Equal(t, "Professional experience includes team lead.", exp)

	edu := svc.ComposeCategoryText(matching.CategoryEducation, []string{"bsc"})
	assert.Equal(t, "Educational background includes bsc.", edu)

	assert.Equal(t, "none", svc.ComposeCategoryText(matching.CategoryHardSkills, nil))
}
