// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"eduflow-api/internal/application/course"
	"eduflow-api/internal/application/editor"
	"eduflow-api/internal/application/export"
	"eduflow-api/internal/application/ledger"
	"eduflow-api/internal/application/workspace"
	"eduflow-api/internal/config"
	"eduflow-api/internal/domain/service"
	"eduflow-api/internal/infrastructure/aiservice"
	"eduflow-api/internal/infrastructure/backend"
	"eduflow-api/internal/infrastructure/messaging"
	"eduflow-api/internal/infrastructure/persistence/postgres"
	"eduflow-api/internal/infrastructure/persistence/redis"
	"eduflow-api/internal/interfaces/http/handler"
	"eduflow-api/internal/interfaces/http/router"
)

// LedgerWorker 台账消费进程依赖
type LedgerWorker struct {
	Postgres *postgres.Client
	Redis    *redis.Client
	Ledger   *ledger.Service
	Consumer *messaging.Consumer
}

// ProvidePostgresClient 提供 PostgreSQL 客户端，启动时同步台账表结构
func ProvidePostgresClient(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres, cfg.App.Env == "development")
	if err != nil {
		return nil, nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSelectionStore 提供活动章节存储
func ProvideSelectionStore(client *redis.Client, cfg *config.Config) *redis.SelectionStore {
	return redis.NewSelectionStore(client, cfg.Workspace.SelectionTTL)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideHTTPClient 外部服务共用的 HTTP 客户端，超时由每次请求控制
func ProvideHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// ProvideCourseStore 提供存储服务客户端
func ProvideCourseStore(cfg *config.Config, hc *http.Client) *backend.CourseStore {
	return backend.NewCourseStore(cfg.Upstream.Backend, hc)
}

// ProvideAIService 提供生成服务客户端
func ProvideAIService(cfg *config.Config, hc *http.Client) *aiservice.Client {
	return aiservice.NewClient(cfg.Upstream.AIService, hc)
}

// ProvideCachedCourses 在存储服务前加一层 Redis 读缓存
func ProvideCachedCourses(store *backend.CourseStore, cache *redis.Cache, cfg *config.Config) *redis.CachedCourseRepository {
	return redis.NewCachedCourseRepository(store, cache, cfg.Cache.CourseTTL, cfg.Cache.ListTTL)
}

// ProvideWorkspaceManager 提供工作区会话管理器
func ProvideWorkspaceManager(courses *redis.CachedCourseRepository, selections *redis.SelectionStore, cfg *config.Config) (*workspace.Manager, func()) {
	m := workspace.NewManager(courses, selections, cfg.Workspace)
	return m, m.Close
}

// ProvideGenerationEventRepository 提供台账仓储
func ProvideGenerationEventRepository(client *postgres.Client) *postgres.GenerationEventRepository {
	return postgres.NewGenerationEventRepository(client)
}

// ProvideLedgerService 提供台账服务
func ProvideLedgerService(repo *postgres.GenerationEventRepository) *ledger.Service {
	return ledger.NewService(repo)
}

func selectionLimits(cfg *config.Config) editor.Limits {
	return editor.Limits{Min: cfg.Editor.MinSelection, Max: cfg.Editor.MaxSelection}
}

// ProvideCourseService 提供动作层
//
// 订阅顺序：缓存失效、工作区刷新、台账记录。
// 启用 Redis Stream 时台账事件经由流异步写入，否则直接落库。
func ProvideCourseService(
	cfg *config.Config,
	courses *redis.CachedCourseRepository,
	ai *aiservice.Client,
	manager *workspace.Manager,
	producer *messaging.Producer,
	ledgerSvc *ledger.Service,
) *course.Service {
	observers := course.Observers{courses, manager}
	if cfg.Messaging.RedisStream.Enabled {
		observers = append(observers, messaging.NewEventPublisher(producer))
	} else {
		observers = append(observers, ledgerSvc)
	}
	return course.NewService(courses, ai, course.Options{Selection: selectionLimits(cfg)}, observers)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client, ai *aiservice.Client, store *backend.CourseStore) *handler.HealthHandler {
	upstreams := map[string]service.HealthReporter{
		"ai_service": ai,
		"store":      store,
	}
	return handler.NewHealthHandler(pg, rc, upstreams, cfg.App.Version)
}

// ProvideProxyHandler 提供浏览器代理处理器
func ProvideProxyHandler(ai *aiservice.Client, store *backend.CourseStore) *handler.ProxyHandler {
	return handler.NewProxyHandler(ai, store)
}

// ProvideEditorHandler 提供编辑器处理器
func ProvideEditorHandler(courses *course.Service, cfg *config.Config) *handler.EditorHandler {
	return handler.NewEditorHandler(courses, selectionLimits(cfg))
}

// ProvideExportHandler 提供导出处理器
func ProvideExportHandler(courses *course.Service) *handler.ExportHandler {
	return handler.NewExportHandler(courses, export.Options{})
}

// ProvideRouterDependencies 提供限流与审计依赖，关闭 Stream 时不写审计流
func ProvideRouterDependencies(cfg *config.Config, limiter *redis.RateLimiter, producer *messaging.Producer) router.Dependencies {
	deps := router.Dependencies{Limiter: limiter}
	if cfg.Messaging.RedisStream.Enabled {
		deps.Audit = producer
	}
	return deps
}

// ProvideLedgerConsumer 提供课程事件消费者
func ProvideLedgerConsumer(redisClient *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamCourseEvents,
		Group:         messaging.ConsumerGroupLedger.WithPrefix(rs.ConsumerGroupPrefix),
		ConsumerName:  consumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		},
	})
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "ledger"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
