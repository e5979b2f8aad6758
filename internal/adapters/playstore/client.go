package playstore

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"bank_reviews/internal/adapters/observability"
	"bank_reviews/internal/domain"
)

var (
	ErrNotFound     = errors.New("playstore: not found")
	ErrUnauthorized = errors.New("playstore: unauthorized")
	ErrForbidden    = errors.New("playstore: forbidden")
)

// Client talks to the review service. One request per page, client-side
// rate limited, with a fixed delay between pages of the same region.
type Client struct {
	base      string
	hc        *http.Client
	rl        *rate.Limiter
	lang      string
	regions   []string
	pageSize  int
	pageDelay time.Duration
}

func New(base, lang string, regions []string, rps, pageSize int, pageDelay time.Duration) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("at least one region is required")
	}
	if rps <= 0 {
		rps = 5
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 200
	}
	return &Client{
		base:      strings.TrimRight(base, "/"),
		hc:        &http.Client{Timeout: 20 * time.Second},
		rl:        rate.NewLimiter(rate.Limit(rps), rps),
		lang:      lang,
		regions:   regions,
		pageSize:  pageSize,
		pageDelay: pageDelay,
	}, nil
}

// ---- wire shapes ----

type wireReview struct {
	ReviewID      string `json:"reviewId"`
	Content       string `json:"content"`
	Score         int    `json:"score"`
	At            string `json:"at"`
	ThumbsUpCount int    `json:"thumbsUpCount"`
	UserName      string `json:"userName"`
	AppVersion    string `json:"appVersion"`
}

type reviewsResponse struct {
	Reviews   []wireReview `json:"reviews"`
	NextToken string       `json:"nextToken"`
}

type wireApp struct {
	AppID     string  `json:"appId"`
	Title     string  `json:"title"`
	Developer string  `json:"developer"`
	Score     float64 `json:"score"`
}

// ---- public API ----

// FetchReviews walks the configured regions in priority order. A region is
// abandoned for the next one only when it yielded zero reviews overall;
// a short final page just means the region's history ended.
func (c *Client) FetchReviews(ctx context.Context, appID string, want int) (domain.FetchResult, error) {
	res := domain.FetchResult{PerRegion: map[string]int{}}
	if appID == "" {
		return res, fmt.Errorf("app id is required")
	}
	if want <= 0 {
		res.Exhausted = true
		return res, nil
	}

	for _, region := range c.regions {
		got, exhausted, err := c.fetchRegion(ctx, appID, region, want)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn().Str("app", appID).Str("region", region).Err(err).
				Msg("region fetch failed")
			if len(got) == 0 {
				res.Failures++
				continue
			}
			// partial yield: keep what we have, don't mark exhausted
			exhausted = false
		}
		res.PerRegion[region] = len(got)
		if len(got) > 0 {
			res.Reviews = got
			res.Exhausted = exhausted
			return res, nil
		}
		// zero reviews and no error: this region does not host the app
	}
	if res.Failures == 0 {
		res.Exhausted = true
	}
	return res, nil
}

func (c *Client) fetchRegion(ctx context.Context, appID, region string, want int) ([]domain.RawReview, bool, error) {
	var out []domain.RawReview
	token := ""
	for len(out) < want {
		batch, next, err := c.reviewsPage(ctx, appID, region, token)
		if err != nil {
			return out, false, err
		}
		for _, w := range batch {
			out = append(out, domain.RawReview{
				SourceID:   w.ReviewID,
				Text:       w.Content,
				Rating:     w.Score,
				At:         w.At,
				ThumbsUp:   w.ThumbsUpCount,
				Reviewer:   w.UserName,
				AppVersion: w.AppVersion,
			})
		}
		if len(batch) == 0 || next == "" {
			return out, true, nil
		}
		token = next
		if len(out) >= want {
			break
		}
		// politeness delay between pages; the rate limiter alone is not
		// enough, the upstream also throttles bursts per session
		if !sleepCtx(ctx, c.pageDelay) {
			return out, false, ctx.Err()
		}
	}
	return out, false, nil
}

func (c *Client) reviewsPage(ctx context.Context, appID, region, token string) ([]wireReview, string, error) {
	q := url.Values{}
	q.Set("lang", c.lang)
	q.Set("country", region)
	q.Set("sort", "newest")
	q.Set("count", strconv.Itoa(c.pageSize))
	if token != "" {
		q.Set("token", token)
	}
	u := fmt.Sprintf("%s/apps/%s/reviews?%s", c.base, url.PathEscape(appID), q.Encode())

	start := time.Now()
	var resp reviewsResponse
	err := c.get(ctx, u, &resp)
	observability.ObserveExternal("playstore", "reviews", statusFor(err), time.Since(start))
	if err != nil {
		return nil, "", err
	}
	return resp.Reviews, resp.NextToken, nil
}

// SearchApps returns ranked candidates for a free-text store query.
func (c *Client) SearchApps(ctx context.Context, query string) ([]domain.AppCandidate, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("lang", c.lang)
	q.Set("hits", "5")
	u := fmt.Sprintf("%s/apps/search?%s", c.base, q.Encode())

	start := time.Now()
	var raw []wireApp
	err := c.get(ctx, u, &raw)
	observability.ObserveExternal("playstore", "search", statusFor(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	out := make([]domain.AppCandidate, 0, len(raw))
	for _, a := range raw {
		out = append(out, domain.AppCandidate{
			AppID:     a.AppID,
			Title:     a.Title,
			Developer: a.Developer,
			Score:     a.Score,
		})
	}
	return out, nil
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return 0
	}
}

// ---- transport internals ----

// get performs a GET with client-side rate limiting, retries, and JSON
// decode into out. Retries on 429 and transient 5xx, honoring Retry-After
// when provided.
func (c *Client) get(ctx context.Context, url string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "bank-reviews/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (200ms, 400ms, 800ms...) with up to
// +50% jitter sourced from crypto/rand so concurrent workers don't herd.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
