package repositories

import (
	"context"
	"fmt"
	"time"

	outboxpkg "github.com/bionicotaku/lingo-utils/outbox"
	outboxcfg "github.com/bionicotaku/lingo-utils/outbox/config"
	"github.com/bionicotaku/lingo-utils/outbox/store"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxMessage 描述需要写入 outbox_events 的事件数据。
type OutboxMessage struct {
	EventID       uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	Headers       []byte
	AvailableAt   time.Time
}

// OutboxRepository 提供写入 Outbox 表的能力，确保与 TxManager Session 协作。
// 发布侧（扫描/重试/上报）委托给共享 store.Repository。
type OutboxRepository struct {
	pool     *pgxpool.Pool
	schema   string
	delegate *store.Repository
	log      *log.Helper
}

// NewOutboxRepository 构造 OutboxRepository。
func NewOutboxRepository(db *pgxpool.Pool, logger log.Logger, cfg outboxcfg.Config) *OutboxRepository {
	schema := cfg.Schema
	if schema == "" {
		schema = "media"
	}
	storeRepo, err := outboxpkg.NewRepository(db, logger, outboxpkg.RepositoryOptions{Schema: schema})
	if err != nil {
		log.NewHelper(logger).Errorw("msg", "init outbox repository failed", "error", err)
		storeRepo = store.NewRepository(db, logger)
	}
	return &OutboxRepository{
		pool:     db,
		schema:   schema,
		delegate: storeRepo,
		log:      log.NewHelper(logger),
	}
}

// Enqueue 在指定事务内插入 Outbox 事件。
func (r *OutboxRepository) Enqueue(ctx context.Context, sess txmanager.Session, msg OutboxMessage) error {
	availableAt := msg.AvailableAt.UTC()
	if availableAt.IsZero() {
		availableAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.outbox_events (
			event_id, aggregate_type, aggregate_id, event_type, payload, headers, available_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.schema)

	_, err := queryTarget(r.pool, sess).Exec(ctx, query,
		msg.EventID,
		msg.AggregateType,
		msg.AggregateID,
		msg.EventType,
		msg.Payload,
		msg.Headers,
		availableAt,
	)
	if err != nil {
		r.log.WithContext(ctx).Errorf("insert outbox event failed: event_id=%s err=%v", msg.EventID, err)
		return fmt.Errorf("insert outbox event: %w", err)
	}

	r.log.WithContext(ctx).Debugf("outbox event enqueued: aggregate=%s id=%s type=%s", msg.AggregateType, msg.AggregateID, msg.EventType)
	return nil
}

// Shared 暴露底层 store.Repository，供 Outbox Publisher Runner 使用。
func (r *OutboxRepository) Shared() *store.Repository {
	return r.delegate
}
