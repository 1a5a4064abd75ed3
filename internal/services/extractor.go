package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/matching"
)

// ParsedSections is the section-level view of a document produced by the
// extraction step.
type ParsedSections struct {
	HardSkills string `json:"hardSkills"`
	SoftSkills string `json:"softSkills"`
	Experience string `json:"experience"`
	Education  string `json:"education"`
	Summary    string `json:"summary,omitempty"`
}

// Section returns the raw text for a category.
func (s ParsedSections) Section(c matching.Category) string {
	switch c {
	case matching.CategoryHardSkills:
		return s.HardSkills
	case matching.CategorySoftSkills:
		return s.SoftSkills
	case matching.CategoryExperience:
		return s.Experience
	case matching.CategoryEducation:
		return s.Education
	}
	return ""
}

// SectionExtractor structures raw text into sections and keyword buckets.
// Implementations must return all four categories, possibly empty, so the
// caller never needs to know which strategy produced the result.
type SectionExtractor interface {
	ParseSections(ctx context.Context, kind, text string) (ParsedSections, error)
	ExtractKeywords(ctx context.Context, kind string, sections ParsedSections) (matching.KeywordSet, error)
}

// ExtractionService composes the LLM-backed primary extractor with the
// deterministic heuristic fallback. Any primary failure (provider error,
// timeout, malformed JSON) silently switches to the fallback; extraction
// as a whole never fails.
type ExtractionService struct {
	primary  SectionExtractor
	fallback SectionExtractor
	logger   *zap.Logger
}

func NewExtractionService(primary, fallback SectionExtractor, logger *zap.Logger) *ExtractionService {
	return &ExtractionService{primary: primary, fallback: fallback, logger: logger}
}

// Extract runs the full parse-then-keywords chain for one document.
func (e *ExtractionService) Extract(ctx context.Context, kind, text string) (ParsedSections, matching.KeywordSet, error) {
	sections, err := e.primary.ParseSections(ctx, kind, text)
	if err != nil {
		e.logger.Warn("primary section parse failed, using heuristic fallback",
			zap.String("kind", kind),
			zap.Error(err))
		sections, err = e.fallback.ParseSections(ctx, kind, text)
		if err != nil {
			return ParsedSections{}, nil, fmt.Errorf("fallback section parse: %w", err)
		}
	}

	keywords, err := e.primary.ExtractKeywords(ctx, kind, sections)
	if err != nil {
		e.logger.Warn("primary keyword extraction failed, using heuristic fallback",
			zap.String("kind", kind),
			zap.Error(err))
		keywords, err = e.fallback.ExtractKeywords(ctx, kind, sections)
		if err != nil {
			return ParsedSections{}, nil, fmt.Errorf("fallback keyword extraction: %w", err)
		}
	}

	return sections, normalizeKeywordSet(keywords), nil
}

// llmExtractor is the primary path: delegate to the LLM with a fixed JSON
// schema and strict parsing.
type llmExtractor struct {
	gemini     GeminiService
	prompts    *PromptBuilder
	maxRetries int
}

func NewLLMExtractor(gemini GeminiService, maxRetries int) SectionExtractor {
	return &llmExtractor{
		gemini:     gemini,
		prompts:    NewPromptBuilder(),
		maxRetries: maxRetries,
	}
}

// ParseSections implements SectionExtractor.
func (l *llmExtractor) ParseSections(ctx context.Context, kind, text string) (ParsedSections, error) {
	prompt := l.prompts.BuildSectionParsePrompt(kind, text)

	response, err := l.gemini.GenerateTextWithRetry(ctx, prompt, 0.2, l.maxRetries)
	if err != nil {
		return ParsedSections{}, fmt.Errorf("section parse generation: %w", err)
	}

	var sections ParsedSections
	if err := json.Unmarshal([]byte(extractJSON(response)), &sections); err != nil {
		return ParsedSections{}, fmt.Errorf("section parse response malformed: %w", err)
	}

	return sections, nil
}

// ExtractKeywords implements SectionExtractor. The LLM may return either
// the flat or the grouped keyword shape; both decode into the flat form.
func (l *llmExtractor) ExtractKeywords(ctx context.Context, kind string, sections ParsedSections) (matching.KeywordSet, error) {
	prompt := l.prompts.BuildKeywordExtractionPrompt(kind, sections)

	response, err := l.gemini.GenerateTextWithRetry(ctx, prompt, 0.2, l.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("keyword extraction generation: %w", err)
	}

	keywords, err := decodeKeywordSet([]byte(extractJSON(response)))
	if err != nil {
		return nil, fmt.Errorf("keyword extraction response malformed: %w", err)
	}

	return keywords, nil
}

// decodeKeywordSet accepts both keyword shapes: flat (category -> list)
// and grouped (category -> subcategory -> list), flattening the latter.
func decodeKeywordSet(data []byte) (matching.KeywordSet, error) {
	var flat matching.KeywordSet
	if err := json.Unmarshal(data, &flat); err == nil && flat != nil {
		return flat, nil
	}

	var grouped matching.GroupedKeywordSet
	if err := json.Unmarshal(data, &grouped); err != nil {
		return nil, err
	}

	return grouped.Flatten(), nil
}

// normalizeKeywordSet guarantees all four categories are present so
// downstream consumers never see a missing bucket.
func normalizeKeywordSet(set matching.KeywordSet) matching.KeywordSet {
	if set == nil {
		set = make(matching.KeywordSet, 4)
	}
	for _, category := range matching.Categories() {
		if _, ok := set[category]; !ok {
			set[category] = []string{}
		}
	}
	return set
}
