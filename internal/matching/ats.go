package matching

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// ATSCheck is the outcome of one formatting sub-check.
type ATSCheck struct {
	Name        string `json:"name"`
	Score       int    `json:"score"` // 0..20
	Explanation string `json:"explanation"`
}

// ATSReport aggregates the five formatting sub-checks into a 0..100 score
// with per-check rationale and actionable recommendations.
type ATSReport struct {
	Score           int        `json:"score"`
	Summary         string     `json:"summary"`
	Checks          []ATSCheck `json:"checks"`
	Issues          []string   `json:"issues"`
	Recommendations []string   `json:"recommendations"`
}

var (
	sectionPatterns = map[string]*regexp.Regexp{
		"Experience": regexp.MustCompile(`(?im)^\s*(work\s+)?(experience|employment(\s+history)?|professional\s+(experience|background))\b`),
		"Education":  regexp.MustCompile(`(?im)^\s*(education|academic(\s+(background|history))?|qualifications)\b`),
		"Skills":     regexp.MustCompile(`(?im)^\s*((technical|core|key)\s+)?(skills|competenc(ies|es)|technologies)\b`),
	}

	quantifierPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+(\.\d+)?\s*%`),
		regexp.MustCompile(`[$€£]\s*\d[\d,.]*`),
		regexp.MustCompile(`(?i)\d+\+?\s*(years?|months?|weeks?)`),
		regexp.MustCompile(`(?i)team\s+of\s+\d+`),
		regexp.MustCompile(`(?i)\b\d+(\.\d+)?x\b`),
		regexp.MustCompile(`(?i)(reduced|increased|improved|decreased|grew|saved|cut)\s+(\w+\s+)?by\s+\d+`),
	}

	emojiPattern      = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\x{FE0F}]`)
	decorationPattern = regexp.MustCompile(`[→⇒➔➜▶◆●★☆✦✧•‣◦]`)

	tokenPattern = regexp.MustCompile(`[A-Za-z][A-Za-z+#.-]{3,}`)
)

const (
	minWordCount = 200
	maxWordCount = 1500
)

// CheckATS runs the five independent formatting sub-checks over raw CV
// text. Deterministic; an empty input degrades to low scores rather than
// failing.
func CheckATS(text string) ATSReport {
	report := ATSReport{}

	checks := []ATSCheck{
		checkSections(text, &report),
		checkQuantification(text, &report),
		checkFormatting(text, &report),
		checkStuffing(text, &report),
		checkLength(text, &report),
	}

	total := 0
	for _, c := range checks {
		total += c.Score
	}

	report.Checks = checks
	report.Score = total
	report.Summary = scoreBand(total)

	return report
}

func checkSections(text string, report *ATSReport) ATSCheck {
	var missing []string
	found := 0
	for _, name := range []string{"Experience", "Education", "Skills"} {
		if sectionPatterns[name].MatchString(text) {
			found++
		} else {
			missing = append(missing, name)
		}
	}

	score := int(math.Round(20 * float64(found) / 3))

	explanation := fmt.Sprintf("Found %d of 3 standard sections.", found)
	if len(missing) > 0 {
		issue := fmt.Sprintf("Missing sections: %s", strings.Join(missing, ", "))
		report.Issues = append(report.Issues, issue)
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Add clearly labeled %s section headers so screening software can locate them.", strings.Join(missing, ", ")))
		explanation = fmt.Sprintf("%s Missing: %s.", explanation, strings.Join(missing, ", "))
	}

	return ATSCheck{Name: "section_coverage", Score: score, Explanation: explanation}
}

func checkQuantification(text string, report *ATSReport) ATSCheck {
	count := 0
	for _, p := range quantifierPatterns {
		count += len(p.FindAllString(text, -1))
	}

	score := int(math.Round(20 * float64(count) / 5))
	if score > 20 {
		score = 20
	}

	explanation := fmt.Sprintf("Found %d quantified statements (percentages, amounts, durations, team sizes).", count)
	if count < 3 {
		report.Issues = append(report.Issues, "Few quantified achievements")
		report.Recommendations = append(report.Recommendations,
			"Quantify achievements with numbers: percentages, budget sizes, durations, or team sizes.")
	}

	return ATSCheck{Name: "quantification", Score: score, Explanation: explanation}
}

func checkFormatting(text string, report *ATSReport) ATSCheck {
	emojiCount := len(emojiPattern.FindAllString(text, -1))
	decoCount := len(decorationPattern.FindAllString(text, -1))

	if emojiCount == 0 && decoCount <= 10 {
		return ATSCheck{
			Name:        "formatting",
			Score:       20,
			Explanation: "No emoji or excessive decorative glyphs detected.",
		}
	}

	report.Issues = append(report.Issues, "Decorative characters may confuse résumé parsers")
	report.Recommendations = append(report.Recommendations,
		"Remove emoji and decorative symbols; use plain hyphens for bullet points.")

	return ATSCheck{
		Name:        "formatting",
		Score:       10,
		Explanation: fmt.Sprintf("Found %d emoji and %d decorative glyphs.", emojiCount, decoCount),
	}
}

func checkStuffing(text string, report *ATSReport) ATSCheck {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	total := len(tokens)

	if total == 0 {
		return ATSCheck{
			Name:        "keyword_stuffing",
			Score:       20,
			Explanation: "No significant tokens to analyze.",
		}
	}

	freq := make(map[string]int)
	for _, tok := range tokens {
		freq[tok]++
	}

	for tok, count := range freq {
		if count > 10 && float64(count)/float64(total) > 0.05 {
			report.Issues = append(report.Issues,
				fmt.Sprintf("Term %q repeats %d times (possible keyword stuffing)", tok, count))
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Reduce repetition of %q; vary phrasing across bullet points.", tok))
			return ATSCheck{
				Name:        "keyword_stuffing",
				Score:       10,
				Explanation: fmt.Sprintf("Term %q occurs %d times, exceeding 5%% of all tokens.", tok, count),
			}
		}
	}

	return ATSCheck{
		Name:        "keyword_stuffing",
		Score:       20,
		Explanation: "Keyword frequency distribution looks natural.",
	}
}

func checkLength(text string, report *ATSReport) ATSCheck {
	words := len(strings.Fields(text))

	switch {
	case words < minWordCount:
		report.Issues = append(report.Issues, fmt.Sprintf("Résumé is too short (%d words)", words))
		report.Recommendations = append(report.Recommendations,
			"Expand the résumé with more detail on responsibilities and outcomes.")
		return ATSCheck{
			Name:        "length",
			Score:       10,
			Explanation: fmt.Sprintf("%d words is below the recommended minimum of %d.", words, minWordCount),
		}
	case words > maxWordCount:
		report.Issues = append(report.Issues, fmt.Sprintf("Résumé is too long (%d words)", words))
		report.Recommendations = append(report.Recommendations,
			"Trim older or less relevant content; screening software favors concise documents.")
		return ATSCheck{
			Name:        "length",
			Score:       10,
			Explanation: fmt.Sprintf("%d words exceeds the recommended maximum of %d.", words, maxWordCount),
		}
	default:
		return ATSCheck{
			Name:        "length",
			Score:       20,
			Explanation: fmt.Sprintf("%d words is within the recommended range.", words),
		}
	}
}

func scoreBand(score int) string {
	switch {
	case score >= 90:
		return "Excellent ATS compatibility. This résumé should pass automated screening cleanly."
	case score >= 70:
		return "Good ATS compatibility with minor formatting improvements available."
	case score >= 50:
		return "Moderate ATS compatibility. Several formatting issues may hurt automated screening."
	default:
		return "Poor ATS compatibility. This résumé is likely to be misread by automated screening."
	}
}
