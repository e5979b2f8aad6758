package classifier

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"bank_reviews/internal/domain"
)

// Select picks the classifier strategy once, at startup: the remote model
// when a URL is configured and the endpoint answers a probe, the lexicon
// scorer otherwise. No mid-run fallback.
func Select(ctx context.Context, url string, batchSize int, threshold float64) domain.Classifier {
	if url == "" {
		log.Info().Msg("using lexicon classifier")
		return NewLexicon()
	}
	r, err := NewRemote(url, batchSize, threshold)
	if err != nil {
		log.Warn().Err(err).Msg("remote classifier misconfigured, using lexicon")
		return NewLexicon()
	}
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r.Ready(probeCtx); err != nil {
		log.Warn().Err(err).Str("url", url).
			Msg("remote classifier unreachable, using lexicon")
		return NewLexicon()
	}
	log.Info().Str("url", url).Float64("threshold", threshold).
		Msg("using remote classifier")
	return r
}
