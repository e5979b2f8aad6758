package app_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"bank_reviews/internal/app"
	"bank_reviews/internal/domain"
)

// ---- fakes ----

type fakeSource struct {
	reviews   []domain.RawReview
	failures  int
	apps      []domain.AppCandidate
	searchErr error
	searches  int
}

func (f *fakeSource) FetchReviews(ctx context.Context, appID string, want int) (domain.FetchResult, error) {
	res := domain.FetchResult{
		Reviews:   f.reviews,
		PerRegion: map[string]int{"et": len(f.reviews)},
		Failures:  f.failures,
		Exhausted: true,
	}
	return res, nil
}

func (f *fakeSource) SearchApps(ctx context.Context, query string) ([]domain.AppCandidate, error) {
	f.searches++
	return f.apps, f.searchErr
}

// stubClassifier mimics a thresholded binary model: a known text maps to
// its label, anything else is neutral at 0.5.
type stubClassifier struct {
	byText map[string]domain.Sentiment
}

func (s *stubClassifier) Name() string { return "stub" }

func (s *stubClassifier) Classify(ctx context.Context, texts []string) ([]domain.Sentiment, error) {
	out := make([]domain.Sentiment, len(texts))
	for i, t := range texts {
		if sent, ok := s.byText[t]; ok && sent.Score > 0.7 {
			out[i] = sent
		} else {
			out[i] = domain.Sentiment{Label: domain.SentimentNeutral, Score: 0.5}
		}
	}
	return out, nil
}

type fakeRepo struct {
	banks    map[string]int64
	nextID   int64
	seen     map[string]struct{} // natural key guard
	inserted []domain.NormalizedReview
	loadErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{banks: map[string]int64{}, seen: map[string]struct{}{}}
}

func (f *fakeRepo) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeRepo) UpsertBank(ctx context.Context, name, appName string) (int64, error) {
	if id, ok := f.banks[name]; ok {
		return id, nil
	}
	f.nextID++
	f.banks[name] = f.nextID
	return f.nextID, nil
}

func (f *fakeRepo) InsertReview(ctx context.Context, bankID int64, r domain.NormalizedReview) (int64, error) {
	found := false
	for _, id := range f.banks {
		if id == bankID {
			found = true
		}
	}
	if !found {
		return 0, domain.ErrOrphanReview
	}
	key := r.Bank + "|" + r.Text + "|" + r.Date.Format("2006-01-02")
	if _, dup := f.seen[key]; dup {
		return 0, domain.ErrDuplicateReview
	}
	f.seen[key] = struct{}{}
	f.inserted = append(f.inserted, r)
	return int64(len(f.inserted)), nil
}

func (f *fakeRepo) LoadBatch(ctx context.Context, rs []domain.NormalizedReview) (domain.LoadResult, error) {
	if f.loadErr != nil {
		return domain.LoadResult{}, f.loadErr
	}
	var out domain.LoadResult
	for _, r := range rs {
		id, _ := f.UpsertBank(ctx, r.Bank, r.Bank+" Mobile Banking")
		switch _, err := f.InsertReview(ctx, id, r); {
		case err == nil:
			out.Inserted++
		case errors.Is(err, domain.ErrDuplicateReview):
			out.Duplicates++
		case errors.Is(err, domain.ErrOrphanReview):
			out.Orphans++
		default:
			out.Skipped++
		}
	}
	return out, nil
}

func (f *fakeRepo) SummaryStats(ctx context.Context) (domain.SummaryStats, error) {
	return domain.SummaryStats{TotalBanks: len(f.banks), TotalReviews: len(f.inserted)}, nil
}

func (f *fakeRepo) BankStats(ctx context.Context) ([]domain.BankStat, error) { return nil, nil }
func (f *fakeRepo) SentimentStats(ctx context.Context) ([]domain.SentimentStat, error) {
	return nil, nil
}
func (f *fakeRepo) RatingDistribution(ctx context.Context) ([]domain.RatingCount, error) {
	return nil, nil
}
func (f *fakeRepo) ExportRows(ctx context.Context) ([]domain.PersistedReview, error) {
	return nil, nil
}

type fakeCache struct{ store map[string][]byte }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if p, ok := dst.(*string); ok {
		*p = string(v)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	if s, ok := v.(string); ok {
		c.store[key] = []byte(s)
	}
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error { return nil }

// ---- tests ----

func TestIngestBank_EndToEnd(t *testing.T) {
	src := &fakeSource{reviews: []domain.RawReview{
		{SourceID: "r1", Text: "Great app!", Rating: 5, At: "2024-01-01"},
		{SourceID: "r2", Text: "Crashes", Rating: 1, At: "2024-01-02"},
		{SourceID: "r1", Text: "Great app!", Rating: 5, At: "2024-01-01"}, // duplicate
	}}
	cl := &stubClassifier{byText: map[string]domain.Sentiment{
		"Great app!": {Label: domain.SentimentPositive, Score: 0.9},
		"Crashes":    {Label: domain.SentimentNegative, Score: 0.8},
	}}
	repo := newFakeRepo()
	svc := app.NewIngestionService(src, cl, repo,
		app.NewAppResolver(src, nil, time.Hour), 400)

	run, classified, err := svc.IngestBank(context.Background(), "BankA", "com.banka.app")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if run.Scraped != 3 || run.Kept != 2 || run.Rejects.Duplicates != 1 {
		t.Fatalf("unexpected counters: %+v", run)
	}
	if run.BySentiment[domain.SentimentPositive] != 1 || run.BySentiment[domain.SentimentNegative] != 1 {
		t.Fatalf("unexpected sentiment counts: %+v", run.BySentiment)
	}
	if run.Load.Inserted != 2 {
		t.Fatalf("inserted = %d, want 2", run.Load.Inserted)
	}
	if len(repo.inserted) != 2 {
		t.Fatalf("repo holds %d rows, want 2", len(repo.inserted))
	}

	agg := app.Aggregate(classified)
	pos := agg.BankPercent["BankA"][domain.SentimentPositive]
	neg := agg.BankPercent["BankA"][domain.SentimentNegative]
	if math.Abs(pos-50) > 0.01 || math.Abs(neg-50) > 0.01 {
		t.Fatalf("expected 50/50 split, got pos=%f neg=%f", pos, neg)
	}
}

func TestIngestBank_EmptyFetchIsNotAnError(t *testing.T) {
	src := &fakeSource{failures: 2}
	repo := newFakeRepo()
	svc := app.NewIngestionService(src, &stubClassifier{}, repo,
		app.NewAppResolver(src, nil, time.Hour), 400)

	run, classified, err := svc.IngestBank(context.Background(), "BankA", "com.banka.app")
	if err != nil {
		t.Fatalf("empty fetch must not error, got %v", err)
	}
	if run.Err == "" {
		t.Fatal("expected run.Err to mention region failures")
	}
	if len(classified) != 0 || len(repo.inserted) != 0 {
		t.Fatal("no data expected")
	}
}

func TestIngestBank_ResolutionFailureIsRecorded(t *testing.T) {
	src := &fakeSource{searchErr: errors.New("boom")}
	svc := app.NewIngestionService(src, &stubClassifier{}, newFakeRepo(),
		app.NewAppResolver(src, nil, time.Hour), 400)

	run, _, err := svc.IngestBank(context.Background(), "Unknown Bank", "")
	if err != nil {
		t.Fatalf("resolution failure must not error the run: %v", err)
	}
	if run.Err == "" {
		t.Fatal("expected run.Err to be set")
	}
}

func TestIngestBank_StoreFailureAborts(t *testing.T) {
	src := &fakeSource{reviews: []domain.RawReview{
		{SourceID: "r1", Text: "hello", Rating: 4, At: "2024-01-01"},
	}}
	repo := newFakeRepo()
	repo.loadErr = errors.New("connection refused")
	svc := app.NewIngestionService(src, &stubClassifier{}, repo,
		app.NewAppResolver(src, nil, time.Hour), 400)

	_, _, err := svc.IngestBank(context.Background(), "BankA", "com.banka.app")
	if err == nil {
		t.Fatal("store failure must propagate")
	}
}

func TestAppResolver_CachesSearchResult(t *testing.T) {
	src := &fakeSource{apps: []domain.AppCandidate{
		{AppID: "com.banka.app", Title: "BankA Mobile", Score: 4.5},
	}}
	cache := &fakeCache{}
	r := app.NewAppResolver(src, cache, time.Hour)

	id1, err := r.Resolve(context.Background(), "BankA", "")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	id2, err := r.Resolve(context.Background(), "BankA", "")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if id1 != "com.banka.app" || id2 != id1 {
		t.Fatalf("ids: %q %q", id1, id2)
	}
	if src.searches != 1 {
		t.Fatalf("search called %d times, want 1 (second hit from cache)", src.searches)
	}
}

func TestAppResolver_PinnedIDSkipsSearch(t *testing.T) {
	src := &fakeSource{}
	r := app.NewAppResolver(src, nil, time.Hour)
	id, err := r.Resolve(context.Background(), "BankA", "com.pinned.app")
	if err != nil || id != "com.pinned.app" {
		t.Fatalf("got %q, %v", id, err)
	}
	if src.searches != 0 {
		t.Fatal("pinned id must not trigger a search")
	}
}
