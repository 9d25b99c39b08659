package intelligence

import (
	"regexp"
	"strings"
	"unicode"

	"echodao-backend/internal/model"
)

type TrustScorer interface {
	Score(text string) model.TrustScore
}

var (
	urlPattern    = regexp.MustCompile(`https?://\S+`)
	numberPattern = regexp.MustCompile(`\d`)
	datePattern   = regexp.MustCompile(`\b(19|20)\d{2}\b|\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`)
)

var hedgeWords = []string{"allegedly", "rumor", "rumour", "unconfirmed", "apparently", "supposedly"}

// HeuristicScorer rates how well a report is substantiated: concrete
// figures, dates and cited links raise the score, shouting and hedging
// lower it. The result is deterministic for a given text.
type HeuristicScorer struct{}

func (HeuristicScorer) Score(text string) model.TrustScore {
	text = Truncate(text, MaxInputChars)
	score := 50

	words := strings.Fields(text)
	switch {
	case len(words) >= 150:
		score += 15
	case len(words) >= 50:
		score += 10
	case len(words) >= 15:
		score += 5
	case len(words) == 0:
		return labelled(score)
	}

	if numberPattern.MatchString(text) {
		score += 10
	}
	if datePattern.MatchString(text) {
		score += 5
	}
	if n := len(urlPattern.FindAllString(text, -1)); n > 0 {
		score += min(n*5, 15)
	}

	score -= min(strings.Count(text, "!")*3, 15)
	if shouting(words) {
		score -= 15
	}

	lower := strings.ToLower(text)
	for _, w := range hedgeWords {
		if strings.Contains(lower, w) {
			score -= 5
		}
	}

	return labelled(score)
}

func labelled(score int) model.TrustScore {
	score = max(0, min(100, score))
	return model.TrustScore{Score: score, Label: Label(score)}
}

// Label maps a score to its credibility label.
func Label(score int) model.TrustLabel {
	switch {
	case score > 80:
		return model.TrustHigh
	case score >= 50:
		return model.TrustMedium
	default:
		return model.TrustLow
	}
}

// shouting reports whether most words longer than three letters are upper case.
func shouting(words []string) bool {
	var long, upper int
	for _, w := range words {
		letters := strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
		if len([]rune(letters)) <= 3 {
			continue
		}
		long++
		if strings.ToUpper(letters) == letters {
			upper++
		}
	}
	return long >= 5 && upper*2 > long
}
