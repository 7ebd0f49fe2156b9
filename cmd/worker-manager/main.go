// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sailmatch-workers/internal/ai/gateway"
	"sailmatch-workers/internal/assessment"
	"sailmatch-workers/internal/common/aws"
	"sailmatch-workers/internal/common/camunda"
	"sailmatch-workers/internal/common/config"
	"sailmatch-workers/internal/common/database"
	commonhttp "sailmatch-workers/internal/common/http"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/common/observability"
	"sailmatch-workers/internal/conversation"
	"sailmatch-workers/internal/notify"
	"sailmatch-workers/internal/search"
	"sailmatch-workers/internal/store"
	"sailmatch-workers/pkg/registry"

	// Data Access Workers (2)
	qe "sailmatch-workers/internal/workers/data-access/query-elasticsearch"
	qp "sailmatch-workers/internal/workers/data-access/query-postgresql"

	// Matchmaking Workers (3)
	ar "sailmatch-workers/internal/workers/matchmaking/assess-registration"
	ct "sailmatch-workers/internal/workers/matchmaking/chat-turn"
	sn "sailmatch-workers/internal/workers/matchmaking/send-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager", cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS Clients ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client failed", zap.Error(err))
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client failed", zap.Error(err))
	}
	zapLog.Info("All external service clients initialized")

	// --- Shared Services ---
	db := store.New(pg, log)
	notifier := notify.New(pg, sesClient, snsClient, cfg.Notifications, log)
	aiGateway := gateway.New(&cfg.AI, log)

	fetchImage := assessment.NewImageFetcher(commonhttp.NewClient(30 * time.Second))
	scorer := assessment.NewScorer(aiGateway, fetchImage, cfg.AI.Assessment, log)
	pipeline := assessment.NewPipeline(db, scorer, notifier, cfg.AI.Assessment, log)

	toolRegistry, err := registry.LoadRegistry(cfg.Tools.RegistryPath)
	if err != nil {
		zapLog.Fatal("tool registry load failed", zap.Error(err))
	}

	searcher := search.NewJourneySearcher(esClient.Client, log)
	executor := conversation.NewExecutor(db, searcher, log)
	sessions := conversation.NewSessionStore(
		redis.GetClient(),
		time.Duration(cfg.Chat.SessionTTLMins)*time.Minute,
		log,
	)
	orchestrator := conversation.NewOrchestrator(
		aiGateway, executor, toolRegistry, sessions, db, cfg.Chat, log,
	)

	// --- START: Register ALL 5 Workers ---
	var workers []*camunda.Worker
	addWorker := func(w *camunda.Worker) {
		if w != nil {
			workers = append(workers, w)
		}
	}

	// --- 1. Data Access Workers (2) ---
	if cfg.Workers[qp.TaskType].Enabled {
		handler := qp.NewHandler(
			&qp.Config{
				Timeout: time.Duration(cfg.Workers[qp.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		addWorker(camunda.StartWorker(zeebeClient, qp.TaskType, cfg.Workers[qp.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[qe.TaskType].Enabled {
		handler := qe.NewHandler(
			&qe.Config{
				Timeout: time.Duration(cfg.Workers[qe.TaskType].Timeout) * time.Millisecond,
			},
			esClient.Client, log,
		)
		addWorker(camunda.StartWorker(zeebeClient, qe.TaskType, cfg.Workers[qe.TaskType], handler.Handle, zapLog))
	}

	// --- 2. Matchmaking Workers (3) ---
	if cfg.Workers[ar.TaskType].Enabled {
		handler := ar.NewHandler(
			&ar.Config{
				Timeout: time.Duration(cfg.Workers[ar.TaskType].Timeout) * time.Millisecond,
			},
			pipeline, log,
		)
		addWorker(camunda.StartWorker(zeebeClient, ar.TaskType, cfg.Workers[ar.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[ct.TaskType].Enabled {
		handler := ct.NewHandler(
			&ct.Config{
				Timeout: time.Duration(cfg.Workers[ct.TaskType].Timeout) * time.Millisecond,
			},
			orchestrator, log,
		)
		addWorker(camunda.StartWorker(zeebeClient, ct.TaskType, cfg.Workers[ct.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[sn.TaskType].Enabled {
		handler, err := sn.NewHandler(
			&sn.Config{
				EmailEnabled: cfg.Notifications.Email.Enabled,
				SMSEnabled:   cfg.Notifications.SMS.Enabled,
				FromEmail:    cfg.Notifications.Email.FromEmail,
				AWSRegion:    cfg.Notifications.AWS.Region,
				Timeout:      time.Duration(cfg.Workers[sn.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		if err != nil {
			zapLog.Fatal("failed to create send-notification handler", zap.Error(err))
		}
		addWorker(camunda.StartWorker(zeebeClient, sn.TaskType, cfg.Workers[sn.TaskType], handler.Handle, zapLog))
	}

	zapLog.Info("All 5 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := camundaClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Close()
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
