package classifier

import (
	"context"
	"testing"

	"bank_reviews/internal/domain"
)

func TestLexicon_Polarity(t *testing.T) {
	cases := []struct {
		text string
		want domain.SentimentLabel
	}{
		{"great app, fast and reliable", domain.SentimentPositive},
		{"crashes constantly, worst bank app", domain.SentimentNegative},
		{"the transfer screen has a blue button", domain.SentimentNeutral},
		{"good but slow", domain.SentimentNeutral}, // one each, polarity 0
		{"", domain.SentimentNeutral},
		{"GREAT! Love it", domain.SentimentPositive}, // case-insensitive
	}
	l := NewLexicon()
	for _, tc := range cases {
		got, err := l.Classify(context.Background(), []string{tc.text})
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if got[0].Label != tc.want {
			t.Errorf("%q -> %s, want %s (score %f)", tc.text, got[0].Label, tc.want, got[0].Score)
		}
	}
}

func TestLexicon_ScoreTracksOneSidedness(t *testing.T) {
	l := NewLexicon()
	// fully one-sided, mixed leaning positive, no matches
	got, err := l.Classify(context.Background(), []string{
		"great excellent amazing",
		"great great slow",
		"nothing remarkable",
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got[0].Score != 1.0 {
		t.Errorf("one-sided score = %f, want 1.0", got[0].Score)
	}
	if got[1].Score >= got[0].Score {
		t.Errorf("mixed text must score below one-sided: %f >= %f", got[1].Score, got[0].Score)
	}
	if got[2].Score != 0.5 {
		t.Errorf("no-match score = %f, want 0.5", got[2].Score)
	}
}

func TestLexicon_LengthAndOrder(t *testing.T) {
	l := NewLexicon()
	for _, n := range []int{0, 1, 7} {
		texts := make([]string, n)
		for i := range texts {
			if i%2 == 0 {
				texts[i] = "great"
			} else {
				texts[i] = "terrible"
			}
		}
		got, err := l.Classify(context.Background(), texts)
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if len(got) != n {
			t.Fatalf("n=%d: got %d results", n, len(got))
		}
		for i, s := range got {
			want := domain.SentimentPositive
			if i%2 == 1 {
				want = domain.SentimentNegative
			}
			if s.Label != want {
				t.Errorf("n=%d item %d = %s, want %s", n, i, s.Label, want)
			}
		}
	}
}
