// Cadence Worker — обрабатывает campaign jobs.
//
// Worker-процесс:
//   - Держит реестр очередей кампаний (queue manager)
//   - Получает jobs из RabbitMQ и обходит workflow для каждого lead
//   - Применяет error strategy кампании при сбоях
//   - Исполняет control-команды (create/pause/resume/remove)
//
// Worker-процессы масштабируются горизонтально: очереди durable,
// а control-команды приходят каждому процессу через fanout.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Cadence/internal/actions"
	"github.com/shaiso/Cadence/internal/engine"
	"github.com/shaiso/Cadence/internal/mq"
	"github.com/shaiso/Cadence/internal/queue"
	"github.com/shaiso/Cadence/internal/repo"
	"github.com/shaiso/Cadence/internal/telemetry"
	"github.com/shaiso/Cadence/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting cadence-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	store := repo.NewStore(pool)

	// RabbitMQ
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	conn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, conn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	publisher := mq.NewPublisher(conn, logger)

	// Обработка jobs
	storage := worker.NewStorage(store)
	traverser := engine.NewTraverser(actions.NewRegistry(), logger)
	processor := worker.NewProcessor(storage, traverser, publisher, logger)
	errorHandler := worker.NewErrorHandler(worker.ErrorHandlerConfig{
		Storage:   storage,
		Publisher: publisher,
		Logger:    logger,
	})

	// Реестр очередей кампаний
	manager := queue.NewManager(queue.ManagerConfig{
		Transport: queue.NewTransport(conn),
		Store:     queue.NewStore(store.Queues),
		Logger:    logger,
		Factory: func(campaignID uuid.UUID, queueName string, workerCount int) queue.JobRunner {
			return worker.New(worker.Config{
				CampaignID:   campaignID,
				QueueName:    queueName,
				Conn:         conn,
				Processor:    processor,
				ErrorHandler: errorHandler,
				Logger:       logger,
				Concurrency:  workerCount,
			})
		},
	})

	// Восстанавливаем очереди из campaign_queues
	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to rediscover queues", "error", err)
		os.Exit(1)
	}

	// Control-команды: эксклюзивная очередь процесса на fanout exchange
	controlQueue, err := mq.DeclareControlQueue(ctx, conn)
	if err != nil {
		logger.Error("failed to declare control queue", "error", err)
		os.Exit(1)
	}

	controlConsumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
		Queue:   controlQueue,
		Handler: manager.HandleControl,
	})

	go func() {
		if err := controlConsumer.Start(ctx); err != nil {
			logger.Error("control consumer stopped", "error", err)
			cancel()
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	controlConsumer.Stop()
	manager.Shutdown()
	logger.Info("cadence-worker stopped")
}
