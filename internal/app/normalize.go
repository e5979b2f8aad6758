package app

import (
	"strings"
	"time"

	"bank_reviews/internal/domain"
)

// Accepted source timestamp shapes, most specific first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize is the pure transform from raw source records to the canonical
// schema: dedup by (source id, text), drop invalid rows, canonicalize the
// date to a calendar day, project to the fixed column set. Deterministic,
// no side effects.
func Normalize(raws []domain.RawReview, bank, source string) ([]domain.NormalizedReview, domain.RejectCounts) {
	var (
		out []domain.NormalizedReview
		rej domain.RejectCounts
	)
	type key struct{ id, text string }
	seen := make(map[key]struct{}, len(raws))

	for _, r := range raws {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			rej.EmptyText++
			continue
		}
		// Duplicates only when BOTH id and text match: identical text
		// under different ids may be a genuinely repeated complaint.
		k := key{id: r.SourceID, text: text}
		if _, dup := seen[k]; dup {
			rej.Duplicates++
			continue
		}
		seen[k] = struct{}{}

		if r.Rating < 1 || r.Rating > 5 {
			// out of range is dropped, never clamped
			rej.BadRating++
			continue
		}
		d, ok := parseDate(r.At)
		if !ok {
			rej.BadDate++
			continue
		}
		out = append(out, domain.NormalizedReview{
			Text:       text,
			Rating:     r.Rating,
			Date:       d,
			Bank:       bank,
			Source:     source,
			ThumbsUp:   r.ThumbsUp,
			Reviewer:   r.Reviewer,
			AppVersion: r.AppVersion,
		})
	}
	return out, rej
}

// Revalidate re-applies the normalization filters to already-normalized
// records (e.g. rows read back from an interchange CSV). On clean input it
// is a no-op, which is what makes normalization idempotent.
func Revalidate(rs []domain.NormalizedReview) ([]domain.NormalizedReview, domain.RejectCounts) {
	var (
		out []domain.NormalizedReview
		rej domain.RejectCounts
	)
	for _, r := range rs {
		if strings.TrimSpace(r.Text) == "" {
			rej.EmptyText++
			continue
		}
		if r.Rating < 1 || r.Rating > 5 {
			rej.BadRating++
			continue
		}
		if r.Date.IsZero() {
			rej.BadDate++
			continue
		}
		r.Text = strings.TrimSpace(r.Text)
		r.Date = dateOnly(r.Date)
		out = append(out, r)
	}
	return out, rej
}

// parseDate canonicalizes a raw timestamp string to a date-only value,
// discarding time of day and zone.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
