// Package repositories 提供数据访问层实现，负责与持久化存储交互。
// 该层实现 Service 层定义的 Repository 接口，隔离底层存储细节。
package repositories

import (
	"context"
	"errors"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// 数据层哨兵错误，由 Service 层映射为对外错误码。
var (
	// ErrVideoNotFound 表示视频记录不存在。
	ErrVideoNotFound = errors.New("video not found")
	// ErrUploadNotFound 表示平台发布记录不存在。
	ErrUploadNotFound = errors.New("video upload not found")
	// ErrVariantNotFound 表示转码记录不存在。
	ErrVariantNotFound = errors.New("video variant not found")
	// ErrResizeNotFound 表示重制记录不存在。
	ErrResizeNotFound = errors.New("video resize not found")
)

// querier 抽象连接池与事务共有的查询能力。
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// queryTarget 在事务会话存在时返回事务绑定的执行器，否则返回连接池。
func queryTarget(pool *pgxpool.Pool, sess txmanager.Session) querier {
	if sess != nil {
		return sess.Tx()
	}
	return pool
}

// ProviderSet 暴露 Repository 层的构造函数供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewVideoRepository,
	NewUploadRepository,
	NewVariantRepository,
	NewResizeRepository,
	NewProgressRepository,
	NewOutboxRepository,
	NewInboxRepository,
)
