package domain

import "time"

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Sentiment is the uniform classifier output: a ternary label plus a
// confidence in [0,1].
type Sentiment struct {
	Label SentimentLabel
	Score float64
}

// RawReview is one record as returned by the review source. Ephemeral:
// discarded after normalization except for SourceID, which feeds dedup.
type RawReview struct {
	SourceID   string
	Text       string
	Rating     int
	At         string // raw timestamp string, parsed by the normalizer
	ThumbsUp   int
	Reviewer   string
	AppVersion string
}

// NormalizedReview is the canonical unit flowing through the pipeline.
// Created by the normalizer, sentiment attached once by the classifier,
// read-only after that.
type NormalizedReview struct {
	Text       string
	Rating     int       // always in [1,5]
	Date       time.Time // calendar date, midnight UTC
	Bank       string
	Source     string
	Sentiment  *Sentiment // nil until classified
	ThumbsUp   int
	Reviewer   string
	AppVersion string
}

type Bank struct {
	ID      int64
	Name    string
	AppName string
}

// PersistedReview is a fact row read back from the store.
type PersistedReview struct {
	ID        int64
	BankID    int64
	BankName  string
	Text      string
	Rating    int
	Date      time.Time
	Sentiment *Sentiment
	Source    string
	CreatedAt time.Time
}
