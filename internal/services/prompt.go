package services

import (
	"fmt"
	"strings"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildSectionParsePrompt asks the LLM to split a raw document into the
// four fixed sections. kind is "cv" or "job".
func (pb *PromptBuilder) BuildSectionParsePrompt(kind, text string) string {
	subject := "candidate résumé"
	if kind == "job" {
		subject = "job description"
	}

	return fmt.Sprintf(`You are a document-structuring assistant. Split the following %s into sections.

DOCUMENT:
%s

Return your response in the following JSON format, using empty strings for sections the document does not contain:
{
  "hardSkills": "<text describing technical skills, tools, technologies>",
  "softSkills": "<text describing interpersonal and communication skills>",
  "experience": "<text describing work history and accomplishments>",
  "education": "<text describing degrees, certifications, training>",
  "summary": "<one-paragraph summary of the whole document>"
}

Return ONLY the JSON object, no commentary.`, subject, text)
}

// BuildKeywordExtractionPrompt asks the LLM for 10-15 short keywords per
// category, given already-parsed section text.
func (pb *PromptBuilder) BuildKeywordExtractionPrompt(kind string, sections ParsedSections) string {
	subject := "candidate résumé"
	if kind == "job" {
		subject = "job description"
	}

	return fmt.Sprintf(`You are a keyword-extraction assistant analyzing a %s.

HARD SKILLS SECTION:
%s

SOFT SKILLS SECTION:
%s

EXPERIENCE SECTION:
%s

EDUCATION SECTION:
%s

Extract 10-15 short keywords (1-3 words each) per category. Keep keywords concrete and specific; no sentences.

Return your response in the following JSON format:
{
  "hardSkills": ["<keyword>", ...],
  "softSkills": ["<keyword>", ...],
  "experience": ["<keyword>", ...],
  "education": ["<keyword>", ...]
}

Return ONLY the JSON object, no commentary.`,
		subject, sections.HardSkills, sections.SoftSkills, sections.Experience, sections.Education)
}

// extractJSON tries to extract JSON from text that might contain markdown
// or other formatting around it.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}
