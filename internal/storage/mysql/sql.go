package mysql

// Schema bootstrap. Statements are idempotent; EnsureSchema runs them in
// order so the FK target exists first.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS banks (
  bank_id   BIGINT NOT NULL AUTO_INCREMENT,
  bank_name VARCHAR(255) NOT NULL,
  app_name  VARCHAR(255) NOT NULL,
  PRIMARY KEY (bank_id),
  UNIQUE KEY uq_bank_name (bank_name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reviews (
  review_id       BIGINT NOT NULL AUTO_INCREMENT,
  bank_id         BIGINT NOT NULL,
  review_text     TEXT NOT NULL,
  rating          TINYINT NOT NULL,
  review_date     DATE NOT NULL,
  sentiment_label VARCHAR(16) NULL,
  sentiment_score DOUBLE NULL,
  source          VARCHAR(64) NOT NULL DEFAULT 'Google Play Store',
  thumbs_up_count INT NOT NULL DEFAULT 0,
  reviewer_name   VARCHAR(255) NULL,
  app_version     VARCHAR(64) NULL,
  review_hash     CHAR(40) NOT NULL,
  created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (review_id),
  UNIQUE KEY uq_review_hash (review_hash),
  KEY idx_reviews_bank (bank_id),
  KEY idx_reviews_date (review_date),
  CONSTRAINT fk_reviews_bank FOREIGN KEY (bank_id) REFERENCES banks (bank_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Insert-or-ignore on the unique name; LAST_INSERT_ID(bank_id) makes the
// driver report the existing id when the row was already there.
const upsertBankSQL = `
INSERT INTO banks (bank_name, app_name)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE bank_id = LAST_INSERT_ID(bank_id)
`

const bankExistsSQL = `SELECT 1 FROM banks WHERE bank_id = ?`

// review_hash is the natural key (bank_id, review_text, review_date), so
// re-loading the same interchange file refreshes sentiment instead of
// duplicating fact rows.
const insertReviewSQL = `
INSERT INTO reviews
  (bank_id, review_text, rating, review_date, sentiment_label, sentiment_score,
   source, thumbs_up_count, reviewer_name, app_version, review_hash)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  review_id       = LAST_INSERT_ID(review_id),
  sentiment_label = COALESCE(VALUES(sentiment_label), reviews.sentiment_label),
  sentiment_score = COALESCE(VALUES(sentiment_score), reviews.sentiment_score)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const summaryStatsSQL = `
SELECT
  (SELECT COUNT(*) FROM banks)                        AS total_banks,
  (SELECT COUNT(*) FROM reviews)                      AS total_reviews,
  (SELECT COALESCE(AVG(rating), 0) FROM reviews)      AS overall_avg_rating,
  (SELECT COUNT(DISTINCT bank_id) FROM reviews)       AS banks_with_reviews
`

const bankStatsSQL = `
SELECT b.bank_name,
       COUNT(r.review_id)                AS reviews,
       COALESCE(AVG(r.rating), 0)        AS avg_rating
FROM banks b
LEFT JOIN reviews r ON r.bank_id = b.bank_id
GROUP BY b.bank_id, b.bank_name
ORDER BY b.bank_name
`

const sentimentStatsSQL = `
SELECT b.bank_name,
       r.sentiment_label,
       COUNT(*)                          AS reviews,
       COALESCE(AVG(r.sentiment_score), 0) AS avg_score
FROM reviews r
JOIN banks b ON b.bank_id = r.bank_id
WHERE r.sentiment_label IS NOT NULL
GROUP BY b.bank_id, b.bank_name, r.sentiment_label
ORDER BY b.bank_name, r.sentiment_label
`

const ratingDistributionSQL = `
SELECT rating, COUNT(*) AS reviews
FROM reviews
GROUP BY rating
ORDER BY rating
`

const exportRowsSQL = `
SELECT r.review_id,
       r.bank_id,
       b.bank_name,
       r.review_text,
       r.rating,
       r.review_date,
       r.sentiment_label,
       r.sentiment_score,
       r.source,
       r.created_at
FROM reviews r
JOIN banks b ON b.bank_id = r.bank_id
ORDER BY r.review_date DESC, r.review_id DESC
`
