package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"bank_reviews/internal/adapters/observability"
	"bank_reviews/internal/domain"
)

const sourceName = "Google Play Store"

// IngestionService runs the pipeline for one bank: resolve app id, fetch,
// normalize, classify, persist. Stages are sequential; each one fully
// consumes its input before the next begins. All per-record failures are
// absorbed into counters; only store-level failures escape.
type IngestionService struct {
	source      domain.ReviewSource
	classifier  domain.Classifier
	repo        domain.ReviewRepository
	resolver    *AppResolver
	reviewCount int
}

func NewIngestionService(src domain.ReviewSource, cl domain.Classifier, repo domain.ReviewRepository, res *AppResolver, reviewCount int) *IngestionService {
	return &IngestionService{
		source:      src,
		classifier:  cl,
		repo:        repo,
		resolver:    res,
		reviewCount: reviewCount,
	}
}

// IngestBank returns the per-bank counters plus the classified records
// (callers may export them to the interchange CSV). A failed app-id
// resolution or an empty fetch yields a BankRun describing that, not an
// error: only context cancellation and store failures propagate.
func (s *IngestionService) IngestBank(ctx context.Context, bankName, pinnedAppID string) (domain.BankRun, []domain.NormalizedReview, error) {
	run := domain.BankRun{Bank: bankName, BySentiment: map[domain.SentimentLabel]int{}}

	appID, err := s.resolver.Resolve(ctx, bankName, pinnedAppID)
	if err != nil {
		if ctx.Err() != nil {
			return run, nil, ctx.Err()
		}
		run.Err = err.Error()
		log.Warn().Str("bank", bankName).Err(err).Msg("app id resolution failed")
		return run, nil, nil
	}
	run.AppID = appID

	// 1) Fetch. An empty result is a legitimate terminal state; the
	// counters say whether regions failed or simply had nothing.
	fetched, err := s.source.FetchReviews(ctx, appID, s.reviewCount)
	if err != nil {
		return run, nil, err
	}
	run.Scraped = len(fetched.Reviews)
	observability.ObservePipeline("scraped", run.Scraped)
	if run.Scraped == 0 {
		if fetched.Failures > 0 {
			run.Err = fmt.Sprintf("no reviews: %d region(s) failed", fetched.Failures)
		}
		log.Warn().Str("bank", bankName).Str("app", appID).
			Int("region_failures", fetched.Failures).Bool("exhausted", fetched.Exhausted).
			Msg("no reviews collected")
		return run, nil, nil
	}

	// 2) Normalize.
	normalized, rejects := Normalize(fetched.Reviews, bankName, sourceName)
	run.Kept = len(normalized)
	run.Rejects = rejects
	observability.ObservePipeline("normalized", run.Kept)
	observability.ObservePipeline("rejected", rejects.Total())
	log.Info().Str("bank", bankName).Int("scraped", run.Scraped).
		Int("kept", run.Kept).Int("rejected", rejects.Total()).Msg("normalized")
	if run.Kept == 0 {
		return run, nil, nil
	}

	// 3) Classify. One-to-one with input by contract.
	texts := make([]string, len(normalized))
	for i, r := range normalized {
		texts[i] = r.Text
	}
	sentiments, err := s.classifier.Classify(ctx, texts)
	if err != nil {
		return run, nil, fmt.Errorf("classify %s: %w", bankName, err)
	}
	for i := range normalized {
		sent := sentiments[i]
		normalized[i].Sentiment = &sent
		run.BySentiment[sent.Label]++
	}
	observability.ObservePipeline("classified", len(normalized))

	// 4) Persist. Row failures degrade to skips inside LoadBatch; an
	// error here means the store itself is gone, which aborts the run.
	loaded, err := s.repo.LoadBatch(ctx, normalized)
	if err != nil {
		return run, nil, fmt.Errorf("load batch for %s: %w", bankName, err)
	}
	run.Load = loaded
	observability.ObservePipeline("inserted", loaded.Inserted)
	observability.ObservePipeline("skipped", loaded.Skipped+loaded.Orphans)
	log.Info().Str("bank", bankName).
		Int("inserted", loaded.Inserted).Int("duplicates", loaded.Duplicates).
		Int("skipped", loaded.Skipped).Int("orphans", loaded.Orphans).
		Msg("persisted")

	return run, normalized, nil
}
