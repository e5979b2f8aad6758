package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"bank_reviews/internal/domain"
)

// Canonical interchange columns; the two sentiment columns are present
// only after classification.
var baseColumns = []string{"review", "rating", "date", "bank", "source"}

const dateFormat = "2006-01-02"

// WriteCSV writes the canonical interchange file. withSentiment appends
// the sentiment_label/sentiment_score columns; unclassified rows get
// empty cells there.
func WriteCSV(w io.Writer, rs []domain.NormalizedReview, withSentiment bool) error {
	cw := csv.NewWriter(w)
	header := baseColumns
	if withSentiment {
		header = append(append([]string{}, baseColumns...), "sentiment_label", "sentiment_score")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rs {
		rec := []string{
			r.Text,
			strconv.Itoa(r.Rating),
			r.Date.Format(dateFormat),
			r.Bank,
			r.Source,
		}
		if withSentiment {
			label, score := "", ""
			if r.Sentiment != nil {
				label = string(r.Sentiment.Label)
				score = strconv.FormatFloat(r.Sentiment.Score, 'f', -1, 64)
			}
			rec = append(rec, label, score)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteCSVFile(path string, rs []domain.NormalizedReview, withSentiment bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, rs, withSentiment); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses an interchange file back into normalized records.
// Column order is header-driven. A structurally broken file is an error;
// individual bad rows are rejected and counted, matching the best-effort
// batch discipline everywhere else.
func ReadCSV(r io.Reader) ([]domain.NormalizedReview, domain.RejectCounts, error) {
	var rej domain.RejectCounts
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, rej, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, col := range header {
		idx[col] = i
	}
	for _, col := range baseColumns {
		if _, ok := idx[col]; !ok {
			return nil, rej, fmt.Errorf("missing column %q", col)
		}
	}
	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var out []domain.NormalizedReview
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rej, err
		}

		text := field(rec, "review")
		if text == "" {
			rej.EmptyText++
			continue
		}
		rating, ok := parseRating(field(rec, "rating"))
		if !ok || rating < 1 || rating > 5 {
			rej.BadRating++
			continue
		}
		date, err := time.Parse(dateFormat, field(rec, "date"))
		if err != nil {
			rej.BadDate++
			continue
		}

		nr := domain.NormalizedReview{
			Text:   text,
			Rating: rating,
			Date:   date.UTC(),
			Bank:   field(rec, "bank"),
			Source: field(rec, "source"),
		}
		if label := field(rec, "sentiment_label"); label != "" {
			score, _ := strconv.ParseFloat(field(rec, "sentiment_score"), 64)
			if s, ok := sentimentFrom(label, score); ok {
				nr.Sentiment = &s
			}
		}
		out = append(out, nr)
	}
	return out, rej, nil
}

func ReadCSVFile(path string) ([]domain.NormalizedReview, domain.RejectCounts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.RejectCounts{}, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// parseRating coerces "5" or "5.0" to the integer star rating.
func parseRating(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

func sentimentFrom(label string, score float64) (domain.Sentiment, bool) {
	switch domain.SentimentLabel(label) {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral:
	default:
		return domain.Sentiment{}, false
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return domain.Sentiment{Label: domain.SentimentLabel(label), Score: score}, true
}
