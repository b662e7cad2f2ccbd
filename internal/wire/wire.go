//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"eduflow-api/internal/config"
	"eduflow-api/internal/infrastructure/persistence/redis"
	"eduflow-api/internal/interfaces/http/handler"
	"eduflow-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		DataSet,
		UpstreamSet,
		ApplicationSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeLedgerWorker 初始化台账消费进程
func InitializeLedgerWorker(ctx context.Context, cfg *config.Config) (*LedgerWorker, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		ProvideRedisClient,
		ProvideGenerationEventRepository,
		ProvideLedgerService,
		ProvideLedgerConsumer,
		wire.Struct(new(LedgerWorker), "*"),
	)
	return nil, nil, nil
}

// DataSet PostgreSQL 与 Redis 提供者集合
var DataSet = wire.NewSet(
	ProvidePostgresClient,
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	ProvideSelectionStore,
	ProvideMessagingProducer,
	ProvideGenerationEventRepository,
)

// UpstreamSet 外部服务客户端
var UpstreamSet = wire.NewSet(
	ProvideHTTPClient,
	ProvideCourseStore,
	ProvideAIService,
	ProvideCachedCourses,
)

// ApplicationSet 应用层
var ApplicationSet = wire.NewSet(
	ProvideLedgerService,
	ProvideWorkspaceManager,
	ProvideCourseService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	ProvideProxyHandler,
	handler.NewCourseHandler,
	handler.NewChapterHandler,
	ProvideEditorHandler,
	handler.NewWorkspaceHandler,
	ProvideExportHandler,
	handler.NewLedgerHandler,
	wire.Struct(new(router.Handlers), "*"),
	ProvideRouterDependencies,
	router.New,
)
