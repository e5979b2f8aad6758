package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"bank_reviews/internal/domain"
)

// AppResolver maps a bank name to its store app id. Pinned ids pass
// through; otherwise the id comes from app search, cached so repeated
// runs don't re-query the store.
type AppResolver struct {
	source domain.ReviewSource
	cache  domain.Cache // may be nil: resolution still works, just uncached
	ttl    time.Duration
}

func NewAppResolver(src domain.ReviewSource, cache domain.Cache, ttl time.Duration) *AppResolver {
	return &AppResolver{source: src, cache: cache, ttl: ttl}
}

func (r *AppResolver) Resolve(ctx context.Context, bankName, pinnedID string) (string, error) {
	if pinnedID != "" {
		return pinnedID, nil
	}
	key := "appid:" + strings.ToLower(strings.ReplaceAll(bankName, " ", "_"))
	if r.cache != nil {
		var cached string
		if ok, _ := r.cache.Get(ctx, key, &cached); ok && cached != "" {
			return cached, nil
		}
	}

	candidates, err := r.source.SearchApps(ctx, bankName+" mobile banking")
	if err != nil {
		return "", fmt.Errorf("search app for %q: %w", bankName, err)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no app found for %q", bankName)
	}
	best := candidates[0]
	log.Info().Str("bank", bankName).Str("app", best.AppID).
		Str("title", best.Title).Msg("resolved app id")

	if r.cache != nil {
		_ = r.cache.Set(ctx, key, best.AppID, int(r.ttl.Seconds()))
	}
	return best.AppID, nil
}
