package classifier

import (
	"context"
	"strings"

	"bank_reviews/internal/domain"
)

// Lexicon is the in-process fallback scorer: a polarity word count that
// yields ternary output directly, no thresholding pass. Polarity above
// +0.1 is positive, below -0.1 negative, the band between is neutral.
type Lexicon struct{}

func NewLexicon() *Lexicon { return &Lexicon{} }

func (l *Lexicon) Name() string { return "lexicon" }

var positiveWords = wordSet(
	"good", "great", "excellent", "amazing", "awesome", "best", "love",
	"nice", "fast", "easy", "reliable", "convenient", "helpful", "smooth",
	"secure", "simple", "perfect", "intuitive", "clean", "useful", "works",
	"wonderful", "fantastic", "happy", "satisfied", "quick", "friendly",
)

var negativeWords = wordSet(
	"bad", "worst", "terrible", "awful", "horrible", "crash", "crashes",
	"crashing", "slow", "error", "errors", "fail", "fails", "failed",
	"failing", "broken", "bug", "bugs", "buggy", "frustrating", "useless",
	"annoying", "poor", "hate", "stuck", "freeze", "freezes", "problem",
	"problems", "issue", "issues", "waste", "scam", "disappointing",
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func (l *Lexicon) Classify(ctx context.Context, texts []string) ([]domain.Sentiment, error) {
	out := make([]domain.Sentiment, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = score(t)
	}
	return out, nil
}

func score(text string) domain.Sentiment {
	pos, neg := 0, 0
	for _, tok := range tokenize(text) {
		if _, ok := positiveWords[tok]; ok {
			pos++
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return domain.Sentiment{Label: domain.SentimentNeutral, Score: 0.5}
	}
	polarity := float64(pos-neg) / float64(pos+neg)
	// confidence grows with how one-sided the match was
	conf := 0.5 + abs(polarity)/2
	switch {
	case polarity > 0.1:
		return domain.Sentiment{Label: domain.SentimentPositive, Score: conf}
	case polarity < -0.1:
		return domain.Sentiment{Label: domain.SentimentNegative, Score: conf}
	default:
		return domain.Sentiment{Label: domain.SentimentNeutral, Score: 0.5}
	}
}

func tokenize(text string) []string {
	f := func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '\'')
	}
	return strings.FieldsFunc(strings.ToLower(text), f)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
