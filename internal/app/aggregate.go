package app

import "bank_reviews/internal/domain"

// Summary is the derived, non-persisted aggregate view. The fact table
// stays authoritative; this is recomputed on demand.
type Summary struct {
	ByBank      map[string]map[domain.SentimentLabel]int
	ByRating    map[int]map[domain.SentimentLabel]int
	BankPercent map[string]map[domain.SentimentLabel]float64
}

// Aggregate groups classified reviews by (bank, sentiment) and
// (rating, sentiment) and derives per-bank percentage rows. Pure function;
// input order is irrelevant. Banks with zero reviews simply produce no row.
func Aggregate(rs []domain.NormalizedReview) Summary {
	s := Summary{
		ByBank:      map[string]map[domain.SentimentLabel]int{},
		ByRating:    map[int]map[domain.SentimentLabel]int{},
		BankPercent: map[string]map[domain.SentimentLabel]float64{},
	}
	for _, r := range rs {
		label := domain.SentimentNeutral
		if r.Sentiment != nil {
			label = r.Sentiment.Label
		}
		if s.ByBank[r.Bank] == nil {
			s.ByBank[r.Bank] = map[domain.SentimentLabel]int{}
		}
		s.ByBank[r.Bank][label]++
		if s.ByRating[r.Rating] == nil {
			s.ByRating[r.Rating] = map[domain.SentimentLabel]int{}
		}
		s.ByRating[r.Rating][label]++
	}
	for bank, counts := range s.ByBank {
		total := 0
		for _, n := range counts {
			total += n
		}
		row := map[domain.SentimentLabel]float64{}
		for label, n := range counts {
			row[label] = float64(n) / float64(total) * 100
		}
		s.BankPercent[bank] = row
	}
	return s
}
