package app_test

import (
	"testing"
	"time"

	"bank_reviews/internal/app"
	"bank_reviews/internal/domain"
)

func raw(id, text string, rating int, at string) domain.RawReview {
	return domain.RawReview{SourceID: id, Text: text, Rating: rating, At: at}
}

func TestNormalize_DropsInvalidRecords(t *testing.T) {
	raws := []domain.RawReview{
		raw("a", "Great app!", 5, "2024-01-01"),
		raw("b", "", 4, "2024-01-02"),              // empty text
		raw("c", "ok", 6, "2024-01-03"),            // rating out of range
		raw("d", "ok", 0, "2024-01-04"),            // rating missing
		raw("e", "meh", 3, "not-a-date"),           // bad date
		raw("f", "   ", 2, "2024-01-05"),           // whitespace-only text
		raw("g", "Crashes", 1, "2024-01-02T15:04:05Z"),
	}
	out, rej := app.Normalize(raws, "BankA", "Google Play Store")

	if len(out) != 2 {
		t.Fatalf("kept %d records, want 2", len(out))
	}
	for _, r := range out {
		if r.Rating < 1 || r.Rating > 5 {
			t.Errorf("rating %d out of range", r.Rating)
		}
		if r.Text == "" {
			t.Error("empty text survived normalization")
		}
		if r.Bank != "BankA" || r.Source != "Google Play Store" {
			t.Errorf("projection wrong: %+v", r)
		}
	}
	if rej.EmptyText != 2 || rej.BadRating != 2 || rej.BadDate != 1 {
		t.Errorf("unexpected reject counts: %+v", rej)
	}
}

func TestNormalize_DedupRequiresBothIDAndText(t *testing.T) {
	raws := []domain.RawReview{
		raw("id1", "Great app!", 5, "2024-01-01"),
		raw("id1", "Great app!", 5, "2024-01-01"), // true duplicate
		raw("id2", "Great app!", 5, "2024-01-01"), // same text, different id: keep
		raw("id1", "Different text", 4, "2024-01-01"), // same id, different text: keep
	}
	out, rej := app.Normalize(raws, "BankA", "src")
	if len(out) != 3 {
		t.Fatalf("kept %d, want 3", len(out))
	}
	if rej.Duplicates != 1 {
		t.Fatalf("duplicates = %d, want 1", rej.Duplicates)
	}
}

func TestNormalize_CanonicalizesDateToDayUTC(t *testing.T) {
	out, _ := app.Normalize([]domain.RawReview{
		raw("a", "hi", 3, "2024-06-15T23:59:58Z"),
	}, "B", "s")
	if len(out) != 1 {
		t.Fatalf("kept %d, want 1", len(out))
	}
	want := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if !out[0].Date.Equal(want) {
		t.Fatalf("date = %v, want %v", out[0].Date, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	raws := []domain.RawReview{
		raw("a", "Great app!", 5, "2024-01-01"),
		raw("a", "Great app!", 5, "2024-01-01"),
		raw("b", "Crashes", 1, "2024-01-02 10:30:00"),
		raw("c", "", 3, "2024-01-03"),
	}
	once, _ := app.Normalize(raws, "BankA", "src")
	again, rej := app.Revalidate(once)

	if rej.Total() != 0 {
		t.Fatalf("revalidating clean output rejected %d records", rej.Total())
	}
	if len(again) != len(once) {
		t.Fatalf("revalidate changed cardinality: %d -> %d", len(once), len(again))
	}
	for i := range once {
		if once[i] != again[i] {
			t.Fatalf("record %d changed: %+v -> %+v", i, once[i], again[i])
		}
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	out, rej := app.Normalize(nil, "BankA", "src")
	if len(out) != 0 || rej.Total() != 0 {
		t.Fatalf("empty input produced output: %v %v", out, rej)
	}
}
