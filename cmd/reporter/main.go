package main

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"bank_reviews/internal/adapters/observability"
	"bank_reviews/internal/app"
	"bank_reviews/internal/shared"
	mysqlrepo "bank_reviews/internal/storage/mysql"
)

var (
	cfg  shared.Config
	db   *sql.DB
	repo *mysqlrepo.Repo
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reporter",
	Short: "Read-back reports over the bank reviews store",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = shared.Load()
		log.Logger = observability.NewLogger(cfg.AppEnv, "reporter")

		var err error
		db, err = sql.Open("mysql", cfg.DSN())
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		if err := db.Ping(); err != nil {
			return fmt.Errorf("ping store: %w", err)
		}
		repo = mysqlrepo.New(db)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			_ = db.Close()
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "database_export.csv", "Output CSV path")
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(sentimentCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(loadCmd)
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Overall and per-bank review statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stats, err := repo.SummaryStats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Banks:              %d\n", stats.TotalBanks)
		fmt.Printf("Reviews:            %d\n", stats.TotalReviews)
		fmt.Printf("Overall avg rating: %.2f\n", stats.OverallAvgRating)
		fmt.Printf("Banks with reviews: %d\n\n", stats.BanksWithReviews)

		banks, err := repo.BankStats(ctx)
		if err != nil {
			return err
		}
		fmt.Println("Per bank:")
		for _, b := range banks {
			fmt.Printf("  %-35s %6d reviews  avg %.2f\n", b.Bank, b.Reviews, b.AvgRating)
		}

		dist, err := repo.RatingDistribution(ctx)
		if err != nil {
			return err
		}
		fmt.Println("\nRating distribution:")
		for _, rc := range dist {
			fmt.Printf("  %d stars: %d\n", rc.Rating, rc.Reviews)
		}
		return nil
	},
}

var sentimentCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Per-bank sentiment counts and average scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := repo.SentimentStats(cmd.Context())
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Println("No classified reviews in the store yet.")
			return nil
		}
		for _, s := range stats {
			fmt.Printf("  %-35s %-8s %6d reviews  avg score %.3f\n", s.Bank, s.Label, s.Reviews, s.AvgScore)
		}
		return nil
	},
}

var exportPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all persisted reviews to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := repo.ExportRows(cmd.Context())
		if err != nil {
			return err
		}
		f, err := os.Create(exportPath)
		if err != nil {
			return err
		}
		defer f.Close()

		cw := csv.NewWriter(f)
		if err := cw.Write([]string{
			"bank_name", "review_text", "rating", "review_date",
			"sentiment_label", "sentiment_score", "source", "created_at",
		}); err != nil {
			return err
		}
		for _, r := range rows {
			label, score := "", ""
			if r.Sentiment != nil {
				label = string(r.Sentiment.Label)
				score = strconv.FormatFloat(r.Sentiment.Score, 'f', -1, 64)
			}
			if err := cw.Write([]string{
				r.BankName,
				r.Text,
				strconv.Itoa(r.Rating),
				r.Date.Format("2006-01-02"),
				label,
				score,
				r.Source,
				r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		fmt.Printf("Exported %d reviews to %s\n", len(rows), exportPath)
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <reviews.csv>",
	Short: "Load an interchange CSV into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		records, rejects, err := app.ReadCSVFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		// files from other tools may have drifted; re-apply the filters
		records, more := app.Revalidate(records)
		rejects.EmptyText += more.EmptyText
		rejects.BadRating += more.BadRating
		rejects.BadDate += more.BadDate

		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		res, err := repo.LoadBatch(ctx, records)
		if err != nil {
			return err
		}
		fmt.Printf("Read %d rows (%d rejected)\n", len(records)+rejects.Total(), rejects.Total())
		fmt.Printf("Inserted %d, duplicates %d, orphans %d, skipped %d\n",
			res.Inserted, res.Duplicates, res.Orphans, res.Skipped)
		return nil
	},
}
