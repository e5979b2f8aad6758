package app_test

import (
	"math"
	"testing"
	"time"

	"bank_reviews/internal/app"
	"bank_reviews/internal/domain"
)

func classified(bank string, rating int, label domain.SentimentLabel, score float64) domain.NormalizedReview {
	return domain.NormalizedReview{
		Text:      "text",
		Rating:    rating,
		Date:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Bank:      bank,
		Source:    "src",
		Sentiment: &domain.Sentiment{Label: label, Score: score},
	}
}

func TestAggregate_CountsByBankAndRating(t *testing.T) {
	in := []domain.NormalizedReview{
		classified("A", 5, domain.SentimentPositive, 0.9),
		classified("A", 1, domain.SentimentNegative, 0.8),
		classified("A", 1, domain.SentimentNegative, 0.95),
		classified("B", 3, domain.SentimentNeutral, 0.5),
	}
	s := app.Aggregate(in)

	if got := s.ByBank["A"][domain.SentimentNegative]; got != 2 {
		t.Errorf("A negative = %d, want 2", got)
	}
	if got := s.ByBank["B"][domain.SentimentNeutral]; got != 1 {
		t.Errorf("B neutral = %d, want 1", got)
	}
	if got := s.ByRating[1][domain.SentimentNegative]; got != 2 {
		t.Errorf("rating 1 negative = %d, want 2", got)
	}
	if got := s.ByRating[5][domain.SentimentPositive]; got != 1 {
		t.Errorf("rating 5 positive = %d, want 1", got)
	}
}

func TestAggregate_PercentRowsSumTo100(t *testing.T) {
	in := []domain.NormalizedReview{
		classified("A", 5, domain.SentimentPositive, 0.9),
		classified("A", 1, domain.SentimentNegative, 0.8),
		classified("A", 3, domain.SentimentNeutral, 0.5),
		classified("B", 4, domain.SentimentPositive, 0.75),
	}
	s := app.Aggregate(in)

	for bank, row := range s.BankPercent {
		sum := 0.0
		for _, pct := range row {
			sum += pct
		}
		if math.Abs(sum-100) > 0.01 {
			t.Errorf("bank %s percentages sum to %f", bank, sum)
		}
	}
	if pct := s.BankPercent["B"][domain.SentimentPositive]; math.Abs(pct-100) > 0.01 {
		t.Errorf("B positive pct = %f, want 100", pct)
	}
}

func TestAggregate_NoRowForAbsentBank(t *testing.T) {
	s := app.Aggregate([]domain.NormalizedReview{
		classified("A", 5, domain.SentimentPositive, 0.9),
	})
	if _, ok := s.BankPercent["Ghost"]; ok {
		t.Error("bank with zero reviews produced a percentage row")
	}
	if len(s.BankPercent) != 1 {
		t.Errorf("expected exactly one bank row, got %d", len(s.BankPercent))
	}
}

func TestAggregate_UnclassifiedCountsAsNeutral(t *testing.T) {
	in := []domain.NormalizedReview{{
		Text: "x", Rating: 3, Bank: "A", Source: "s",
		Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
	s := app.Aggregate(in)
	if got := s.ByBank["A"][domain.SentimentNeutral]; got != 1 {
		t.Errorf("unclassified review grouped as %v, want neutral", s.ByBank["A"])
	}
}

func TestAggregate_EmptyInput(t *testing.T) {
	s := app.Aggregate(nil)
	if len(s.ByBank) != 0 || len(s.ByRating) != 0 || len(s.BankPercent) != 0 {
		t.Fatalf("aggregating nothing produced rows: %+v", s)
	}
}
