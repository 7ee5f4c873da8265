package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	assert := require.New(t)

	testCases := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "Latin",
			text:     "First one. Second one!  Third one? Tail",
			expected: []string{"First one.", "Second one!", "Third one?", "Tail"},
		},
		{
			name:     "NoBreakWithoutSpace",
			text:     "Version 1.2 is out.Really",
			expected: []string{"Version 1.2 is out.Really"},
		},
		{
			name:     "FullWidth",
			text:     "第一句。第二句！第三句？",
			expected: []string{"第一句。", "第二句！", "第三句？"},
		},
		{
			name:     "Empty",
			text:     "   ",
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(tc.expected, splitSentences(tc.text))
		})
	}
}

func TestAdaptiveShortParagraphs(t *testing.T) {
	assert := require.New(t)

	chunks := Adaptive("First paragraph.\n\n  \n\nSecond paragraph.\n   \nThird.", 100, 10)
	assert.Equal([]string{"First paragraph.", "Second paragraph.", "Third."}, chunks)

	assert.Empty(Adaptive("\n\n   \n", 100, 10))
}

func TestAdaptiveLongParagraph(t *testing.T) {
	assert := require.New(t)

	sentence := "This sentence is exactly forty chars ok."
	assert.Equal(40, len(sentence))
	paragraph := strings.TrimSpace(strings.Repeat(sentence+" ", 10))

	chunks := Adaptive(paragraph, 100, 20)
	assert.Greater(len(chunks), 1)

	for i, chunk := range chunks {
		// overlap + at most two sentences fits; a third would not
		assert.LessOrEqual(utf8.RuneCountInString(chunk), 100+20, "chunk %d", i)
		if i > 0 {
			previous := chunks[i-1]
			overlap := previous[len(previous)-19:]
			assert.True(strings.HasPrefix(chunk, overlap), "chunk %d should start with the previous chunk's tail", i)
		}
	}

	// every sentence lands in exactly one chunk body
	assert.Equal(10, strings.Count(strings.Join(chunks, " "), "This sentence"))
}

func TestAdaptiveOversizedSentence(t *testing.T) {
	assert := require.New(t)

	long := strings.Repeat("word", 60) + "."
	chunks := Adaptive("Short start. "+long+" Short end.", 100, 10)

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk, long) {
			found = true
		}
	}
	assert.True(found, "an oversized sentence is kept whole")
}

func TestAdaptiveCountsRunes(t *testing.T) {
	assert := require.New(t)

	// 50 runes but 150 bytes
	paragraph := strings.Repeat("文", 50)
	assert.Equal([]string{paragraph}, Adaptive(paragraph, 50, 5))
}

func TestParentsAndChildren(t *testing.T) {
	assert := require.New(t)

	sentence := "Retrieval systems split documents into overlapping windows. "
	text := strings.Repeat(sentence, 40)

	parents := Parents(text)
	assert.Greater(len(parents), 1)

	for _, parent := range parents {
		children := Children(parent)
		assert.NotEmpty(children)
		for _, child := range children {
			assert.LessOrEqual(utf8.RuneCountInString(child), ChildMaxChars+ChildOverlap)
		}
	}
}
