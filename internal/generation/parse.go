package generation

import (
	"regexp"
	"strings"
)

// blockMarker delimits multi-line prompts in provider responses.
const blockMarker = "PromptBlock:"

var (
	numberingRe    = regexp.MustCompile(`^\d+[.)\-]?\s*-?\s*`)
	quotedRe       = regexp.MustCompile(`^["'](.*)["']$`)
	singleEscRe    = regexp.MustCompile(`^'([^']*(?:''[^']*)*)'$`)
	doubleEscRe    = regexp.MustCompile(`^"([^"]*(?:""[^"]*)*)"$`)
	boldPrefixRe   = regexp.MustCompile(`^\*+(.+?)\*+:?\s*`)
	promptLabelRe  = regexp.MustCompile(`(?i)prompt:`)
	lineSplitRe    = regexp.MustCompile(`[\n;]+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	leadingStarsRe = regexp.MustCompile(`^\*+`)
	trailingStarRe = regexp.MustCompile(`\*+$`)
)

// ParseGeneratedPrompts extracts discrete prompt strings from a raw
// provider response. Responses using the block-delimited format are
// split on the marker, preserving internal newlines. Otherwise the
// legacy format applies: one prompt per "Prompt:"-labelled line or
// semicolon-separated segment, with numbering, surrounding quotes, and
// asterisks stripped.
func ParseGeneratedPrompts(response string) []string {
	if strings.Contains(response, blockMarker) {
		blocks := strings.Split(response, blockMarker)
		prompts := make([]string, 0, len(blocks))
		for _, block := range blocks {
			if trimmed := strings.TrimSpace(block); trimmed != "" {
				prompts = append(prompts, trimmed)
			}
		}
		return prompts
	}

	lines := lineSplitRe.Split(response, -1)
	prompts := make([]string, 0, len(lines))
	for _, line := range lines {
		if prompt, ok := parsePromptLine(line); ok {
			prompts = append(prompts, prompt)
		}
	}
	return prompts
}

func parsePromptLine(line string) (string, bool) {
	if !strings.Contains(strings.ToLower(line), "prompt:") {
		return "", false
	}

	prompt := removeLabel(line)
	prompt = numberingRe.ReplaceAllString(prompt, "")
	prompt = unescapeQuoted(prompt)
	prompt = leadingStarsRe.ReplaceAllString(prompt, "")
	prompt = trailingStarRe.ReplaceAllString(prompt, "")
	return strings.TrimSpace(prompt), true
}

// removeLabel strips the "Prompt:" label, tolerating the bold markers
// models like to wrap it in.
func removeLabel(line string) string {
	line = boldPrefixRe.ReplaceAllString(line, "$1")
	loc := promptLabelRe.FindStringIndex(line)
	if loc != nil {
		line = line[:loc[0]] + line[loc[1]:]
	}
	return strings.TrimSpace(line)
}

func unescapeQuoted(prompt string) string {
	if m := singleEscRe.FindStringSubmatch(prompt); m != nil && strings.Contains(m[1], "''") {
		return strings.ReplaceAll(m[1], "''", "'")
	}
	if m := doubleEscRe.FindStringSubmatch(prompt); m != nil && strings.Contains(m[1], `""`) {
		return strings.ReplaceAll(m[1], `""`, `"`)
	}
	return quotedRe.ReplaceAllString(prompt, "$1")
}

// NormalizePrompt derives the deduplication key for a prompt: lower
// cased, trimmed, with internal whitespace runs collapsed to a single
// space. Near-duplicate phrasings collapse to the same key.
func NormalizePrompt(prompt string) string {
	normalized := strings.ToLower(strings.TrimSpace(prompt))
	return whitespaceRe.ReplaceAllString(normalized, " ")
}
