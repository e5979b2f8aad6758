package mysql

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"bank_reviews/internal/domain"
)

const dateFormat = "2006-01-02"

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// EnsureSchema creates the two tables when missing. Safe to run on every
// start; the driver cannot batch DDL so each statement runs on its own.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertBank is insert-or-ignore on the unique bank name. Repeated calls
// with the same name return the same id.
func (r *Repo) UpsertBank(ctx context.Context, name, appName string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("bank name is required")
	}
	res, err := r.db.ExecContext(ctx, upsertBankSQL, name, appName)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertReview writes one fact row. The bank check is explicit so an
// orphan is a typed, countable condition rather than a driver error; a
// natural-key collision surfaces as domain.ErrDuplicateReview with the
// existing row's id.
func (r *Repo) InsertReview(ctx context.Context, bankID int64, rv domain.NormalizedReview) (int64, error) {
	var one int
	if err := r.db.QueryRowContext(ctx, bankExistsSQL, bankID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrOrphanReview
		}
		return 0, err
	}

	var label, score any
	if rv.Sentiment != nil {
		label = string(rv.Sentiment.Label)
		score = rv.Sentiment.Score
	}
	res, err := r.db.ExecContext(ctx, insertReviewSQL,
		bankID,
		rv.Text,
		rv.Rating,
		rv.Date.Format(dateFormat),
		label,
		score,
		rv.Source,
		rv.ThumbsUp,
		nullStr(rv.Reviewer),
		nullStr(rv.AppVersion),
		reviewHash(bankID, rv),
	)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	if n, _ := res.RowsAffected(); n != 1 {
		// 2 on update, 0 when the row was byte-identical: either way the
		// fact row already existed
		return id, domain.ErrDuplicateReview
	}
	return id, nil
}

// LoadBatch is the best-effort batch load: each record resolves or creates
// its bank (memoized per batch), then inserts. One row's failure degrades
// to a skip; only context cancellation aborts the batch.
func (r *Repo) LoadBatch(ctx context.Context, rs []domain.NormalizedReview) (domain.LoadResult, error) {
	var out domain.LoadResult
	bankIDs := make(map[string]int64)

	for _, rv := range rs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if rv.Bank == "" {
			out.Orphans++
			continue
		}
		id, ok := bankIDs[rv.Bank]
		if !ok {
			var err error
			id, err = r.UpsertBank(ctx, rv.Bank, rv.Bank+" Mobile Banking")
			if err != nil {
				log.Warn().Str("bank", rv.Bank).Err(err).Msg("bank upsert failed")
				bankIDs[rv.Bank] = -1
				out.Orphans++
				continue
			}
			bankIDs[rv.Bank] = id
		}
		if id < 0 {
			out.Orphans++
			continue
		}

		switch _, err := r.InsertReview(ctx, id, rv); {
		case err == nil:
			out.Inserted++
		case errors.Is(err, domain.ErrDuplicateReview):
			out.Duplicates++
		case errors.Is(err, domain.ErrOrphanReview):
			out.Orphans++
		default:
			log.Warn().Str("bank", rv.Bank).Err(err).Msg("review insert failed")
			out.Skipped++
		}
	}
	return out, nil
}

func (r *Repo) SummaryStats(ctx context.Context) (domain.SummaryStats, error) {
	var s domain.SummaryStats
	err := r.db.QueryRowContext(ctx, summaryStatsSQL).Scan(
		&s.TotalBanks, &s.TotalReviews, &s.OverallAvgRating, &s.BanksWithReviews)
	return s, err
}

func (r *Repo) BankStats(ctx context.Context) ([]domain.BankStat, error) {
	rows, err := r.db.QueryContext(ctx, bankStatsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BankStat
	for rows.Next() {
		var b domain.BankStat
		if err := rows.Scan(&b.Bank, &b.Reviews, &b.AvgRating); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) SentimentStats(ctx context.Context) ([]domain.SentimentStat, error) {
	rows, err := r.db.QueryContext(ctx, sentimentStatsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SentimentStat
	for rows.Next() {
		var (
			s     domain.SentimentStat
			label string
		)
		if err := rows.Scan(&s.Bank, &label, &s.Reviews, &s.AvgScore); err != nil {
			return nil, err
		}
		s.Label = domain.SentimentLabel(label)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) RatingDistribution(ctx context.Context) ([]domain.RatingCount, error) {
	rows, err := r.db.QueryContext(ctx, ratingDistributionSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RatingCount
	for rows.Next() {
		var rc domain.RatingCount
		if err := rows.Scan(&rc.Rating, &rc.Reviews); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *Repo) ExportRows(ctx context.Context) ([]domain.PersistedReview, error) {
	rows, err := r.db.QueryContext(ctx, exportRowsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PersistedReview
	for rows.Next() {
		var (
			pr    domain.PersistedReview
			label sql.NullString
			score sql.NullFloat64
		)
		if err := rows.Scan(
			&pr.ID,
			&pr.BankID,
			&pr.BankName,
			&pr.Text,
			&pr.Rating,
			&pr.Date,
			&label,
			&score,
			&pr.Source,
			&pr.CreatedAt,
		); err != nil {
			return nil, err
		}
		if label.Valid {
			pr.Sentiment = &domain.Sentiment{
				Label: domain.SentimentLabel(label.String),
				Score: score.Float64,
			}
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// sha1 over the natural key, hex-encoded to fit the CHAR(40) column.
func reviewHash(bankID int64, rv domain.NormalizedReview) string {
	h := sha1.Sum([]byte(fmt.Sprintf("%d|%s|%s", bankID, rv.Text, rv.Date.Format(dateFormat))))
	return hex.EncodeToString(h[:])
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
