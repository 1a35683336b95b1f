package textfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bold and italic", in: "**Victoria Peak** is *great*", want: "Victoria Peak is great"},
		{name: "underscore emphasis", in: "__Star Ferry__ runs _daily_", want: "Star Ferry runs daily"},
		{name: "heading", in: "## Day 1\n\nTake the tram", want: "Day 1\n\nTake the tram"},
		{name: "blank line runs", in: "a\n\n\n\nb", want: "a\n\nb"},
		{name: "code block", in: "```\nMTR map\n```", want: "MTR map"},
		{name: "inline code", in: "Use `Octopus` card", want: "Use Octopus card"},
		{name: "horizontal rule", in: "a\n---\nb", want: "a\n\nb"},
		{name: "nested emphasis", in: "***Dim sum***", want: "Dim sum"},
		{name: "surrounding whitespace", in: "  hello  \n", want: "hello"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanMarkdown(tt.in))
		})
	}
}

func TestCleanMarkdownIdempotent(t *testing.T) {
	inputs := []string{
		"Already clean text.",
		"**bold** and *italic* and `code`",
		"# Heading\n\n\n\n- item one\n- item two\n***\n",
		"* * a * *",
		"__a_b__c_",
		"```x``` `y` **z**",
		"Day 1:\nMorning (9:00-12:00):\n- Activity: Victoria Peak\n- Cost: HK$65",
	}

	for _, in := range inputs {
		once := CleanMarkdown(in)
		assert.Equal(t, once, CleanMarkdown(once), "input %q", in)
	}

	t.Run("clean text unchanged", func(t *testing.T) {
		clean := "Take the Star Ferry from Central Pier.\n\nIt costs about HK$4."
		assert.Equal(t, clean, CleanMarkdown(clean))
	})
}

func TestFormatForDisplay(t *testing.T) {
	t.Run("sentence spacing", func(t *testing.T) {
		assert.Equal(t, "First. Second", FormatForDisplay("First.Second", 0))
	})

	t.Run("truncates at word boundary", func(t *testing.T) {
		assert.Equal(t, "one two...", FormatForDisplay("one two three four", 9))
	})

	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "short", FormatForDisplay("short", 100))
	})
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Hello world.", Humanize("Hello world"))
	assert.Equal(t, "Great!", Humanize("**Great!**"))
	assert.Equal(t, "Really?", Humanize("Really?"))
	assert.Equal(t, "First. Second.", Humanize("First.Second"))
	assert.Equal(t, "", Humanize(""))
}

func TestKeyPoints(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, KeyPoints("A. B! C? D", 3))
	assert.Nil(t, KeyPoints("", 3))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "abc...", Excerpt("abcdef", 3))
	assert.Equal(t, "ab...", Excerpt("ab", 3))
	assert.Equal(t, "港式奶...", Excerpt("港式奶茶", 3))
}
