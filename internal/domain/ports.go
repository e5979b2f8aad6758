package domain

import (
	"context"
	"time"
)

type ReviewSource interface {
	// FetchReviews walks the configured regions and pages through each
	// until want reviews are collected or every region is exhausted.
	// "No data" is not an error: callers inspect the result counters.
	FetchReviews(ctx context.Context, appID string, want int) (FetchResult, error)
	// SearchApps returns ranked app candidates for a free-text query.
	SearchApps(ctx context.Context, query string) ([]AppCandidate, error)
}

// FetchResult carries the collected reviews plus enough counters to tell
// "source has no data" apart from "every region failed".
type FetchResult struct {
	Reviews   []RawReview
	PerRegion map[string]int // reviews collected per region code
	Failures  int            // transient per-region failures absorbed
	Exhausted bool           // every tried region ran out of pages
}

type AppCandidate struct {
	AppID     string
	Title     string
	Developer string
	Score     float64
}

// Classifier maps texts to sentiments, same length and order as the input.
// Implementations never drop or reorder items; a per-item failure degrades
// that item to {neutral, 0.5}.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, texts []string) ([]Sentiment, error)
}

type ReviewRepository interface {
	// Write paths
	EnsureSchema(ctx context.Context) error
	UpsertBank(ctx context.Context, name, appName string) (int64, error)
	InsertReview(ctx context.Context, bankID int64, r NormalizedReview) (int64, error)
	LoadBatch(ctx context.Context, rs []NormalizedReview) (LoadResult, error)

	// Read paths
	SummaryStats(ctx context.Context) (SummaryStats, error)
	BankStats(ctx context.Context) ([]BankStat, error)
	SentimentStats(ctx context.Context) ([]SentimentStat, error)
	RatingDistribution(ctx context.Context) ([]RatingCount, error)
	ExportRows(ctx context.Context) ([]PersistedReview, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models

type SummaryStats struct {
	TotalBanks       int
	TotalReviews     int
	OverallAvgRating float64
	BanksWithReviews int
}

type BankStat struct {
	Bank      string
	Reviews   int
	AvgRating float64
}

type SentimentStat struct {
	Bank     string
	Label    SentimentLabel
	Reviews  int
	AvgScore float64
}

type RatingCount struct {
	Rating  int
	Reviews int
}

// Counters

// RejectCounts tallies records dropped by the normalizer, by reason.
type RejectCounts struct {
	Duplicates int
	EmptyText  int
	BadRating  int
	BadDate    int
}

func (r RejectCounts) Total() int {
	return r.Duplicates + r.EmptyText + r.BadRating + r.BadDate
}

// LoadResult reports a best-effort batch load: failures degrade to skips.
type LoadResult struct {
	Inserted   int
	Skipped    int // rows that failed insert for any non-duplicate reason
	Duplicates int // rows already present under the natural key
	Orphans    int // rows whose bank could not be resolved
}

// BankRun is the per-bank slice of a pipeline run.
type BankRun struct {
	Bank        string
	AppID       string
	Scraped     int
	Kept        int
	Rejects     RejectCounts
	BySentiment map[SentimentLabel]int
	Load        LoadResult
	Err         string // non-empty when the bank's run aborted early
}

// RunSummary is the ingestor's final report, logged and kept for the
// ops surface.
type RunSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Banks      []BankRun
	Classifier string
}

func (s RunSummary) TotalInserted() int {
	n := 0
	for _, b := range s.Banks {
		n += b.Load.Inserted
	}
	return n
}

func (s RunSummary) TotalScraped() int {
	n := 0
	for _, b := range s.Banks {
		n += b.Scraped
	}
	return n
}
