// Package classifier adapts external sentiment scorers behind the
// domain.Classifier contract: same length and order as the input, and a
// per-item failure degrades that item to {neutral, 0.5} instead of
// failing the batch.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"bank_reviews/internal/adapters/observability"
	"bank_reviews/internal/domain"
)

// Remote wraps a binary {POSITIVE,NEGATIVE} inference endpoint. Results
// below the confidence threshold are downgraded to neutral, which is how
// the ternary bucket is produced.
type Remote struct {
	url       string
	hc        *http.Client
	batch     int
	threshold float64
}

func NewRemote(url string, batchSize int, threshold float64) (*Remote, error) {
	if url == "" {
		return nil, fmt.Errorf("classifier URL is required")
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.7
	}
	return &Remote{
		url:       strings.TrimRight(url, "/"),
		hc:        &http.Client{Timeout: 60 * time.Second},
		batch:     batchSize,
		threshold: threshold,
	}, nil
}

func (r *Remote) Name() string { return "remote" }

// Ready probes the endpoint so strategy selection can fall back to the
// lexicon scorer before the pipeline starts, not mid-run.
func (r *Remote) Ready(ctx context.Context) error {
	return r.post(ctx, []string{}, &[]wireResult{})
}

type wireResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify batches the inputs; batch boundaries never change per-item
// results, they only bound request size. A failed batch degrades all of
// its items to {neutral, 0.5}; only context cancellation is an error.
func (r *Remote) Classify(ctx context.Context, texts []string) ([]domain.Sentiment, error) {
	out := make([]domain.Sentiment, 0, len(texts))
	for start := 0; start < len(texts); start += r.batch {
		end := start + r.batch
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var results []wireResult
		if err := r.post(ctx, batch, &results); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Int("from", start).Int("n", len(batch)).Err(err).
				Msg("classifier batch failed, degrading to neutral")
			observability.ObservePipeline("classify_failed", len(batch))
			for range batch {
				out = append(out, domain.Sentiment{Label: domain.SentimentNeutral, Score: 0.5})
			}
			continue
		}
		if len(results) != len(batch) {
			log.Warn().Int("want", len(batch)).Int("got", len(results)).
				Msg("classifier returned wrong result count, degrading batch")
			observability.ObservePipeline("classify_failed", len(batch))
			for range batch {
				out = append(out, domain.Sentiment{Label: domain.SentimentNeutral, Score: 0.5})
			}
			continue
		}
		for _, res := range results {
			out = append(out, r.ternary(res))
		}
	}
	return out, nil
}

// ternary maps a binary result to the three-way label: a confident
// POSITIVE/NEGATIVE keeps its polarity, anything under the threshold
// lands in neutral. The reported confidence is kept either way.
func (r *Remote) ternary(res wireResult) domain.Sentiment {
	score := res.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	switch strings.ToUpper(res.Label) {
	case "POSITIVE":
		if score >= r.threshold {
			return domain.Sentiment{Label: domain.SentimentPositive, Score: score}
		}
	case "NEGATIVE":
		if score >= r.threshold {
			return domain.Sentiment{Label: domain.SentimentNegative, Score: score}
		}
	default:
		return domain.Sentiment{Label: domain.SentimentNeutral, Score: 0.5}
	}
	return domain.Sentiment{Label: domain.SentimentNeutral, Score: score}
}

func (r *Remote) post(ctx context.Context, inputs []string, out any) error {
	body, err := json.Marshal(map[string]any{"inputs": inputs})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("classifier", "batch", 0, time.Since(start))
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("classifier", "batch", resp.StatusCode, time.Since(start))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
