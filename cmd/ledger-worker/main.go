// Package main 生成台账消费进程入口（ledger-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eduflow-api/internal/config"
	"eduflow-api/internal/infrastructure/messaging"
	"eduflow-api/internal/wire"
	"eduflow-api/pkg/logger"
	"eduflow-api/pkg/tracer"

	"github.com/joho/godotenv"
)

const (
	dlqCheckInterval = time.Minute
	dlqAlertAt       = 100
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal(context.Background(), "ledger-worker exited with error", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "ledger-worker",
		Version:     cfg.App.Version,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	if !cfg.Messaging.RedisStream.Enabled {
		logger.Warn(ctx, "redis stream disabled, api-gateway writes the ledger directly; nothing to consume")
	}

	worker, cleanup, err := wire.InitializeLedgerWorker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize ledger worker: %w", err)
	}
	defer cleanup()

	// 解码失败与写库失败都返回错误，由消费者重试并最终转入死信
	worker.Consumer.RegisterHandler(messaging.MessageTypeCourseEvent, func(hctx context.Context, msg *messaging.Message) error {
		ev, err := messaging.DecodeCourseEvent(msg)
		if err != nil {
			return err
		}
		return worker.Ledger.Record(hctx, ev)
	})

	if err := worker.Consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	go worker.Consumer.MonitorDLQ(ctx, dlqCheckInterval, dlqAlertAt)

	log := logger.FromContext(ctx)
	log.Info("ledger-worker started", "stream", string(messaging.StreamCourseEvents))

	<-ctx.Done()

	log.Info("ledger-worker shutting down")
	worker.Consumer.Stop()
	return nil
}
