package repositories

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressRepository 封装 media.processing_progress 表的访问逻辑。
// 每个 (video_id, stage, platform) 组合只保留一行，由 upsert 维护。
type ProgressRepository struct {
	pool *pgxpool.Pool
	log  *log.Helper
}

// NewProgressRepository 构造 ProgressRepository。
func NewProgressRepository(pool *pgxpool.Pool, logger log.Logger) *ProgressRepository {
	return &ProgressRepository{
		pool: pool,
		log:  log.NewHelper(logger),
	}
}

// Upsert 写入或覆盖一条进度记录，后写胜出。
// platform 以空字符串入库表示全局阶段，避免 NULL 参与唯一约束。
func (r *ProgressRepository) Upsert(ctx context.Context, sess txmanager.Session, p *po.ProcessingProgress) error {
	query := `
		INSERT INTO media.processing_progress (video_id, stage, platform, percent, message, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (video_id, stage, platform) DO UPDATE
		SET percent = EXCLUDED.percent,
			message = EXCLUDED.message,
			updated_at = now()
	`

	platform := ""
	if p.Platform != nil {
		platform = string(*p.Platform)
	}

	_, err := queryTarget(r.pool, sess).Exec(ctx, query, p.VideoID, p.Stage, platform, p.Percent, p.Message)
	if err != nil {
		r.log.WithContext(ctx).Errorf("upsert progress failed: video_id=%s stage=%s err=%v", p.VideoID, p.Stage, err)
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// ListByVideo 查询指定视频的全部进度记录。
func (r *ProgressRepository) ListByVideo(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) ([]*po.ProcessingProgress, error) {
	query := `
		SELECT video_id, stage, platform, percent, message, updated_at
		FROM media.processing_progress
		WHERE video_id = $1
		ORDER BY stage, platform
	`

	rows, err := queryTarget(r.pool, sess).Query(ctx, query, videoID)
	if err != nil {
		r.log.WithContext(ctx).Errorf("list progress failed: video_id=%s err=%v", videoID, err)
		return nil, fmt.Errorf("query progress by video: %w", err)
	}
	defer rows.Close()

	var records []*po.ProcessingProgress
	for rows.Next() {
		var p po.ProcessingProgress
		var platform string
		if err := rows.Scan(&p.VideoID, &p.Stage, &platform, &p.Percent, &p.Message, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress row: %w", err)
		}
		if platform != "" {
			value := po.Platform(platform)
			p.Platform = &value
		}
		records = append(records, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress rows: %w", err)
	}
	return records, nil
}
