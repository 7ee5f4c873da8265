package chunk

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Window sizes, in characters, for the two chunking levels.
const (
	ParentMaxChars = 800
	ParentOverlap  = 100
	ChildMaxChars  = 300
	ChildOverlap   = 50
)

var paragraphSeparator = regexp.MustCompile(`\n\s*\n`)

// Parents splits segment text into the large chunks returned to readers.
func Parents(text string) []string {
	return Adaptive(text, ParentMaxChars, ParentOverlap)
}

// Children splits a parent chunk into the small chunks that get matched.
func Children(parent string) []string {
	return Adaptive(parent, ChildMaxChars, ChildOverlap)
}

// Adaptive keeps short paragraphs whole and packs the sentences of long ones
// into chunks of roughly maxChars, each new chunk starting with the last
// overlap characters of the previous one. A single sentence longer than
// maxChars becomes an oversized chunk rather than being cut.
func Adaptive(text string, maxChars int, overlap int) []string {
	var chunks []string

	for _, paragraph := range paragraphSeparator.Split(text, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if utf8.RuneCountInString(paragraph) <= maxChars {
			chunks = append(chunks, paragraph)
			continue
		}

		var current []rune
		for _, sentence := range splitSentences(paragraph) {
			if len(current) > 0 && len(current)+utf8.RuneCountInString(sentence) > maxChars {
				chunks = appendChunk(chunks, current)
				current = tail(current, overlap)
			}
			current = append(current, []rune(sentence)...)
			current = append(current, ' ')
		}
		chunks = appendChunk(chunks, current)
	}

	return chunks
}

func appendChunk(chunks []string, current []rune) []string {
	if chunk := strings.TrimSpace(string(current)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func tail(runes []rune, n int) []rune {
	if n <= 0 {
		return nil
	}
	start := len(runes) - n
	if start < 0 {
		start = 0
	}
	return append([]rune(nil), runes[start:]...)
}

// splitSentences breaks after . ! ? when whitespace follows, and after the
// full-width 。！？ unconditionally since CJK text rarely spaces sentences.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !isTerminator(r) {
			continue
		}

		end := i + 1
		next := end
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if next == end && !isFullWidthTerminator(r) {
			continue
		}

		if sentence := strings.TrimSpace(string(runes[start:end])); sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = next
		i = next - 1
	}

	if start < len(runes) {
		if sentence := strings.TrimSpace(string(runes[start:])); sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || isFullWidthTerminator(r)
}

func isFullWidthTerminator(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}
