package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"bank_reviews/internal/adapters/classifier"
	"bank_reviews/internal/adapters/observability"
	"bank_reviews/internal/adapters/playstore"
	"bank_reviews/internal/adapters/redisad"
	"bank_reviews/internal/adapters/statusserver"
	"bank_reviews/internal/app"
	"bank_reviews/internal/domain"
	"bank_reviews/internal/shared"
	mysqlrepo "bank_reviews/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "ingestor")

	log.Info().
		Str("base", cfg.PlayBase).
		Int("workers", cfg.Workers).
		Int("reviews", cfg.ReviewCount).
		Int("banks", len(cfg.Banks)).
		Msg("ingestor starting")

	// Store connection failures are the one fatal condition: abort
	// before any writes.
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	repo := mysqlrepo.New(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema bootstrap failed")
	}
	log.Info().Msg("db ready")

	source, err := playstore.New(cfg.PlayBase, cfg.PlayLang, cfg.PlayRegions,
		cfg.PlayRPS, cfg.PlayPageSize, cfg.PlayPageDelay)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize review source")
	}

	// The cache is optional: without it app-id resolution and the status
	// endpoint degrade, the pipeline itself does not.
	var cache domain.Cache
	if rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB); rc.Ping(ctx) == nil {
		cache = rc
	} else {
		log.Warn().Str("addr", cfg.RedisAddr).Msg("redis unreachable, running without cache")
	}

	cl := classifier.Select(ctx, cfg.ClassifierURL, cfg.ClassifierBatch, cfg.ClassifierThreshold)
	resolver := app.NewAppResolver(source, cache, cfg.CacheTTL)
	ing := app.NewIngestionService(source, cl, repo, resolver, cfg.ReviewCount)

	// ops surface while the run is in flight
	srv := statusserver.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&statusserver.Handlers{Cache: cache, Repo: repo})
	if _, err := observability.Serve(cfg.MetricsAddr, reg); err != nil {
		log.Fatal().Str("addr", cfg.MetricsAddr).Err(err).Msg("metrics server failed to start")
	}
	go func() {
		httpSrv := &http.Server{Addr: cfg.StatusAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
		log.Info().Str("addr", cfg.StatusAddr).Msg("status server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status server failed")
		}
	}()

	summary := domain.RunSummary{StartedAt: time.Now().UTC(), Classifier: cl.Name()}
	sem := semaphore.NewWeighted(int64(cfg.Workers))

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		classified []domain.NormalizedReview
	)
	for _, bank := range cfg.Banks {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Error().Err(err).Msg("run canceled")
			break
		}
		wg.Add(1)
		go func(b shared.BankApp) {
			defer wg.Done()
			defer sem.Release(1)

			run, recs, err := ing.IngestBank(ctx, b.Name, b.AppID)
			if err != nil {
				run.Err = err.Error()
				log.Error().Str("bank", b.Name).Err(err).Msg("ingest failed")
			} else {
				log.Info().Str("bank", b.Name).Int("inserted", run.Load.Inserted).Msg("ingest ok")
			}
			mu.Lock()
			summary.Banks = append(summary.Banks, run)
			classified = append(classified, recs...)
			mu.Unlock()
		}(bank)
	}
	wg.Wait()
	summary.FinishedAt = time.Now().UTC()

	report(summary, classified)

	if cfg.ExportCSV != "" {
		if err := app.WriteCSVFile(cfg.ExportCSV, classified, true); err != nil {
			log.Error().Str("path", cfg.ExportCSV).Err(err).Msg("csv export failed")
		} else {
			log.Info().Str("path", cfg.ExportCSV).Int("rows", len(classified)).Msg("csv exported")
		}
	}
	if cache != nil {
		if err := cache.Set(ctx, statusserver.LastRunKey, summary, int(cfg.CacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Msg("could not record run summary")
		}
	}
}

// report logs the run totals and the per-bank sentiment breakdown. The
// run always ends with this, even when every bank failed.
func report(s domain.RunSummary, classified []domain.NormalizedReview) {
	agg := app.Aggregate(classified)
	for bank, pct := range agg.BankPercent {
		log.Info().
			Str("bank", bank).
			Int("reviews", sumCounts(agg.ByBank[bank])).
			Float64("positive_pct", pct[domain.SentimentPositive]).
			Float64("negative_pct", pct[domain.SentimentNegative]).
			Float64("neutral_pct", pct[domain.SentimentNeutral]).
			Msg("bank sentiment")
	}
	log.Info().
		Int("scraped", s.TotalScraped()).
		Int("inserted", s.TotalInserted()).
		Dur("took", s.FinishedAt.Sub(s.StartedAt)).
		Str("classifier", s.Classifier).
		Msg("ingestion completed")
}

func sumCounts(m map[domain.SentimentLabel]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
