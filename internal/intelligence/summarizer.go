// Package intelligence produces the report summary and trust score returned
// with every submitted report.
package intelligence

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxInputChars bounds the text looked at, anything after it is ignored.
	MaxInputChars = 3000

	defaultMaxSentences = 4
	defaultMaxWords     = 120
)

type Summarizer interface {
	Summarize(text string) string
}

// LeadSummarizer keeps the leading sentences of the text in their original
// order until either bound is reached.
type LeadSummarizer struct {
	MaxSentences int
	MaxWords     int
}

func NewLeadSummarizer() LeadSummarizer {
	return LeadSummarizer{MaxSentences: defaultMaxSentences, MaxWords: defaultMaxWords}
}

func (s LeadSummarizer) Summarize(text string) string {
	text = normalizeSpace(Truncate(text, MaxInputChars))
	if text == "" {
		return ""
	}

	var (
		kept  []string
		words int
	)
	for _, sentence := range splitSentences(text) {
		n := len(strings.Fields(sentence))
		if len(kept) > 0 && (len(kept) >= s.MaxSentences || words+n > s.MaxWords) {
			break
		}
		kept = append(kept, sentence)
		words += n
	}

	summary := strings.Join(kept, " ")
	if fields := strings.Fields(summary); len(fields) > s.MaxWords {
		summary = strings.Join(fields[:s.MaxWords], " ") + "..."
	}
	return summary
}

// Truncate cuts text to at most n characters without splitting a rune.
func Truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

func normalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	runes := []rune(text)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// end of sentence is punctuation followed by a space or the end of text
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
