package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/matching"
)

// EmbeddingService is the embedding gateway. Blank input maps to the zero
// vector by policy rather than failing; a provider error is fatal for the
// caller and wraps ErrEmbeddingFailure.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BuildBundle(ctx context.Context, fullText string, sections ParsedSections, keywords matching.KeywordSet) (*matching.EmbeddingBundle, error)
	ComposeCategoryText(category matching.Category, keywords []string) string
}

type embeddingService struct {
	gemini     GeminiService
	vectorSize int
	logger     *zap.Logger
}

func NewEmbeddingService(gemini GeminiService, vectorSize int, logger *zap.Logger) EmbeddingService {
	return &embeddingService{gemini: gemini, vectorSize: vectorSize, logger: logger}
}

// Embed implements EmbeddingService.
func (e *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.vectorSize), nil
	}

	vector, err := e.gemini.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}

	return vector, nil
}

// BuildBundle implements EmbeddingService: one vector per category plus
// one for the full document, fetched in a single batch call. Category
// input falls back from keywords to raw section text to the literal
// "none", so every category always has a non-empty embedding.
func (e *embeddingService) BuildBundle(
	ctx context.Context,
	fullText string,
	sections ParsedSections,
	keywords matching.KeywordSet,
) (*matching.EmbeddingBundle, error) {
	categories := matching.Categories()

	texts := make([]string, 0, len(categories)+1)
	for _, category := range categories {
		texts = append(texts, e.categoryInput(category, sections, keywords))
	}
	texts = append(texts, fullText)

	vectors, err := e.gemini.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailure, err)
	}

	bundle := &matching.EmbeddingBundle{
		Categories: make(map[matching.Category][]float32, len(categories)),
		Full:       vectors[len(categories)],
	}
	for i, category := range categories {
		bundle.Categories[category] = vectors[i]
	}

	return bundle, nil
}

func (e *embeddingService) categoryInput(category matching.Category, sections ParsedSections, keywords matching.KeywordSet) string {
	if words := keywords.Get(category); len(words) > 0 {
		return e.ComposeCategoryText(category, words)
	}

	if section := strings.TrimSpace(sections.Section(category)); section != "" {
		e.logger.Debug("no keywords for category, embedding raw section text",
			zap.String("category", string(category)))
		return section
	}

	return "none"
}

// ComposeCategoryText implements EmbeddingService. Keyword lists are
// wrapped in category-specific sentences before embedding: grammatical
// context measurably improves the similarity signal over naive
// concatenation.
func (e *embeddingService) ComposeCategoryText(category matching.Category, keywords []string) string {
	if len(keywords) == 0 {
		return "none"
	}

	joined := strings.Join(keywords, ", ")

	switch category {
	case matching.CategoryHardSkills:
		return fmt.Sprintf("Proficient in %s as programming languages, tools, and technologies.", joined)
	case matching.CategorySoftSkills:
		return fmt.Sprintf("Demonstrates strong %s in professional settings.", joined)
	case matching.CategoryExperience:
		return fmt.Sprintf("Professional experience includes %s.", joined)
	case matching.CategoryEducation:
		return fmt.Sprintf("Educational background includes %s.", joined)
	default:
		return joined
	}
}
