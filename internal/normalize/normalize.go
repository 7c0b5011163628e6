// Package normalize turns free-text model output into the structured values
// callers expect.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/xiaot623/unfiltered/internal/domain"
)

const fence = "```"

// StripFences removes a leading ``` (optionally tagged json) and a trailing
// ``` from text, trimming surrounding whitespace. Clean input is returned
// unchanged apart from trimming.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, fence) {
		s = s[len(fence):]
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, fence) {
		s = strings.TrimSpace(s[:len(s)-len(fence)])
	}
	return s
}

// DecodeStrict strips fences and unmarshals the remainder into v. Any parse
// failure is reported as domain.ErrMalformedToolOutput; v must not be used
// in that case.
func DecodeStrict(text string, v any) error {
	clean := StripFences(text)
	if err := json.Unmarshal([]byte(clean), v); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedToolOutput, err)
	}
	return nil
}

// ParseObject strictly parses text as a JSON object.
func ParseObject(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedToolOutput, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: output is not a JSON object", domain.ErrMalformedToolOutput)
	}
	return obj, nil
}

// SplitLines is the line-oriented strategy: one entry per non-blank line,
// each trimmed.
func SplitLines(text string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// DisplayLabel renders a machine value for display: underscores become
// spaces and every word starts with an upper-case letter. The rest of each
// word is left as is.
func DisplayLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startOfWord := true
	for _, r := range strings.ReplaceAll(s, "_", " ") {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if startOfWord {
				r = unicode.ToUpper(r)
			}
			startOfWord = false
		} else if r != '\'' {
			startOfWord = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	punctuationOnly = regexp.MustCompile(`^[\[{\\\]}"']*$`)
	leadingBullet   = regexp.MustCompile(`^[-•\d.\s]*`)
)

// CleanInsights prepares insight lines for display. Echoed headings and
// lines made only of brackets or quotes are dropped; bullets, numbering,
// wrapping quotes and a trailing comma are removed. Entries of three
// characters or fewer are dropped after cleaning.
func CleanInsights(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), "insights") {
			continue
		}
		if punctuationOnly.MatchString(strings.TrimSpace(line)) {
			continue
		}
		s := strings.TrimPrefix(strings.TrimSpace(line), `"`)
		s = leadingBullet.ReplaceAllString(s, "")
		s = strings.TrimSuffix(s, ",")
		s = strings.TrimSuffix(s, `"`)
		s = strings.Join(strings.Fields(s), " ")
		if len([]rune(s)) <= 3 {
			continue
		}
		out = append(out, s)
	}
	return out
}
