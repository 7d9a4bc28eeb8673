package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/licitalab/editalscan/internal/ai"
	"github.com/licitalab/editalscan/internal/async"
	"github.com/licitalab/editalscan/internal/cache"
	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/extract"
	"github.com/licitalab/editalscan/internal/ingest"
	"github.com/licitalab/editalscan/internal/intake"
	"github.com/licitalab/editalscan/internal/notify"
	"github.com/licitalab/editalscan/internal/pipeline"
	"github.com/licitalab/editalscan/internal/quality"
	"github.com/licitalab/editalscan/internal/repository"
	"github.com/licitalab/editalscan/internal/scoring"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	results := repository.NewPostgresResultStore(pool, logger)
	if err := results.Migrate(ctx); err != nil {
		logger.Error("result store migration failed", "error", err)
		os.Exit(1)
	}
	index := repository.NewPostgresDedupIndex(pool)
	if err := index.Migrate(ctx); err != nil {
		logger.Error("dedup index migration failed", "error", err)
		os.Exit(1)
	}

	var capCache cache.Cache
	if sqlCache, err := cache.OpenSQLite(cfg.Cache.Path, cfg.Cache.TTL); err != nil {
		logger.Warn("sqlite cache unavailable, using in-memory cache", "path", cfg.Cache.Path, "error", err)
		capCache = cache.NewMemory(cfg.Cache.TTL)
	} else {
		defer sqlCache.Close()
		capCache = sqlCache
	}

	params := scoring.DefaultParams()
	qualityWeights := quality.DefaultWeights()
	if cfg.Pipeline.ScoringFile != "" {
		params, err = scoring.LoadParamsFile(cfg.Pipeline.ScoringFile)
		if err != nil {
			logger.Error("failed to load scoring parameters", "file", cfg.Pipeline.ScoringFile, "error", err)
			os.Exit(1)
		}
		qualityWeights, err = quality.LoadWeightsFile(cfg.Pipeline.ScoringFile)
		if err != nil {
			logger.Error("failed to load quality weights", "file", cfg.Pipeline.ScoringFile, "error", err)
			os.Exit(1)
		}
	}

	runner := extract.NewExecRunner()
	docs := extract.NewPopplerExtractor(cfg.Capabilities.PdftotextBin, cfg.Capabilities.PdfinfoBin, runner, logger)
	ocr := extract.NewTesseractOCR(cfg.Capabilities.TesseractBin, cfg.Capabilities.TessdataDir, runner, logger)

	var tables extract.TableExtractor
	if cfg.Capabilities.TableServiceURL != "" {
		tables = extract.NewTableServiceClient(cfg.Capabilities.TableServiceURL, logger)
	} else {
		logger.Warn("no table service configured, table stages will degrade to warnings")
	}

	analyzer := ai.NewOllamaClient(cfg.Capabilities.OllamaURL, cfg.Capabilities.OllamaModel, cfg.Capabilities.AITimeout, logger)
	callbacks := notify.NewHTTPCallbackSender(cfg.Capabilities.CallbackTimeout, logger)

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Docs:      docs,
		OCR:       ocr,
		Tables:    tables,
		Analyzer:  analyzer,
		Risk:      scoring.NewRiskAnalyzer(params, logger),
		Opps:      scoring.NewOpportunityIdentifier(logger),
		Quality:   quality.NewAggregator(qualityWeights, logger),
		Results:   results,
		Callbacks: callbacks,
		Progress:  notify.NewLogSink(logger),
		Cache:     capCache,
	}, cfg.Pipeline, cfg.Capabilities, logger)

	queue := async.NewWorkerQueue(orchestrator, index, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithHardTimeout(cfg.Pipeline.HardTimeout),
		async.WithSoftTimeout(cfg.Pipeline.SoftTimeout),
		async.WithMaxAttempts(cfg.Pipeline.MaxRetries),
		async.WithRetryDelay(cfg.Pipeline.RetryDelay),
		async.WithFailureNotifier(func(job async.Job, cause error) {
			url := job.Metadata.CallbackURL
			if url == "" {
				return
			}
			go func() {
				cctx, cancel := context.WithTimeout(context.Background(), cfg.Capabilities.CallbackTimeout)
				defer cancel()
				payload := notify.FailurePayload(job.TaskID, cause, time.Now())
				if err := callbacks.Send(cctx, url, payload); err != nil {
					logger.Error("failure callback not delivered", "task_id", job.TaskID, "error", err)
				}
			}()
		}),
	)

	submitter := intake.NewService(index, queue, logger)

	if len(cfg.Intake.WatchDirs) > 0 {
		watcher := ingest.NewService(submitter, logger)
		go func() {
			err := watcher.Run(ctx, ingest.WatchConfig{
				Roots:       cfg.Intake.WatchDirs,
				InitialScan: cfg.Intake.InitialScan,
				Debounce:    2 * time.Second,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("ingest watcher stopped", "error", err)
			}
		}()
	}

	// Metrics endpoint
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metricsMux()}
	go func() {
		logger.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// gRPC server: health + reflection for operational probes
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	logger.Info("editalscand listening", "grpc_addr", cfg.Server.GRPCAddr, "watch_dirs", cfg.Intake.WatchDirs)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
	grpcServer.GracefulStop()
	_ = metricsSrv.Shutdown(drainCtx)
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
