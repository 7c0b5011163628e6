package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/unfiltered/internal/domain"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"json tagged", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"upper tag", "```JSON {\"a\":1} ```", `{"a":1}`},
		{"untagged", "```\n[1,2]\n```", `[1,2]`},
		{"surrounding whitespace", "  \n\t```json\n{\"a\":1}\n```  \n", `{"a":1}`},
		{"no fences", `  {"a":1}  `, `{"a":1}`},
		{"only leading fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"only trailing fence", "{\"a\":1}\n```", `{"a":1}`},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := StripFences(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, StripFences(got), "stripping clean text must be a no-op")
		})
	}
}

func TestDecodeStrict(t *testing.T) {
	var v struct {
		Recommendation string `json:"recommendation"`
	}
	require.NoError(t, DecodeStrict("```json\n{\"recommendation\":\"go\"}\n```", &v))
	assert.Equal(t, "go", v.Recommendation)

	err := DecodeStrict("not json at all", &v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedToolOutput))
}

func TestParseObject(t *testing.T) {
	obj, err := ParseObject(`{"insights":["a"]}`)
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, obj["insights"])

	for _, in := range []string{"", "null", "[1]", "{", "plain"} {
		_, err := ParseObject(in)
		assert.ErrorIs(t, err, domain.ErrMalformedToolOutput, "input %q", in)
	}
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"Insight A", "Insight B"}, SplitLines("Insight A\nInsight B\n"))
	assert.Equal(t, []string{"one", "two"}, SplitLines("\n\n  one \r\n\n two\n\n"))
	assert.Empty(t, SplitLines(""))
	assert.NotNil(t, SplitLines(""))
}

func TestDisplayLabel(t *testing.T) {
	cases := map[string]string{
		"high":                "High",
		"take_the_offer":      "Take The Offer",
		"already Capitalized": "Already Capitalized",
		"don't wait":          "Don't Wait",
		"stay-put":            "Stay-Put",
		"":                    "",
		"MEDIUM":              "MEDIUM",
	}
	for in, want := range cases {
		assert.Equal(t, want, DisplayLabel(in), "input %q", in)
	}
}

func TestCleanInsights(t *testing.T) {
	in := []string{
		`{`,
		`"insights": [`,
		`  "1. Start with the hardest task before noon",`,
		`- Time-box the blocker to thirty minutes`,
		`"Ship the draft today"`,
		`]`,
		`}`,
		`ok`,
	}
	assert.Equal(t, []string{
		"Start with the hardest task before noon",
		"Time-box the blocker to thirty minutes",
		"Ship the draft today",
	}, CleanInsights(in))
	assert.Empty(t, CleanInsights(nil))
}
