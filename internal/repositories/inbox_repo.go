package repositories

import (
	outboxpkg "github.com/bionicotaku/lingo-utils/outbox"
	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	"github.com/bionicotaku/lingo-utils/outbox/store"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InboxRepository 包装 media schema 下的 inbox_events 存储。
// 消费端的去重与状态流转由 inbox.Runner 直接驱动底层 store 完成，
// 本仓库只负责按配置的 schema 构造并暴露该 store。
type InboxRepository struct {
	delegate *store.Repository
}

// NewInboxRepository 基于连接池构造 InboxRepository。
// schema 解析失败时回退到默认 search_path，保证 worker 仍可启动。
func NewInboxRepository(db *pgxpool.Pool, logger log.Logger, cfg outboxcfg.Config) *InboxRepository {
	storeRepo, err := outboxpkg.NewRepository(db, logger, outboxpkg.RepositoryOptions{Schema: cfg.Schema})
	if err != nil {
		log.NewHelper(logger).Errorw("msg", "init inbox repository failed", "error", err)
		storeRepo = store.NewRepository(db, logger)
	}
	return &InboxRepository{delegate: storeRepo}
}

// Shared 返回底层 store，供 inbox.Runner 做事件簿记。
func (r *InboxRepository) Shared() *store.Repository {
	return r.delegate
}
