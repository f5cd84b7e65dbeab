package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeShortTextUnchanged(t *testing.T) {
	s := NewFrequencySummarizer()
	assert.Equal(t, "Just one sentence.", s.Summarize("  Just one sentence.  ", 3))
}

func TestSummarizeEmpty(t *testing.T) {
	s := NewFrequencySummarizer()
	assert.Empty(t, s.Summarize("", 3))
}

func TestSummarizeBoundsSentenceCount(t *testing.T) {
	s := NewFrequencySummarizer()
	text := "Databases store rows. Databases index rows quickly. Cats nap in sunlight. " +
		"Databases replicate rows across nodes. The weather changed. Databases shard rows."
	got := s.Summarize(text, 2)
	parts := strings.Count(got, ".")
	assert.LessOrEqual(t, parts, 2)
	assert.NotEmpty(t, got)
}

func TestSummarizeKeepsOriginalOrder(t *testing.T) {
	s := NewFrequencySummarizer()
	text := "Alpha systems boot first. Irrelevant aside here. Alpha systems sync data. " +
		"Another filler line today. Alpha systems shut down last."
	got := s.Summarize(text, 3)
	first := strings.Index(got, "boot")
	last := strings.Index(got, "shut")
	if first >= 0 && last >= 0 {
		assert.Less(t, first, last)
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	s := NewFrequencySummarizer()
	text := "One fact here. Two facts there. Three facts everywhere. Four facts nowhere."
	assert.Equal(t, s.Summarize(text, 2), s.Summarize(text, 2))
}
