package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VideoRepository 封装 media.videos 表的访问逻辑。
type VideoRepository struct {
	pool *pgxpool.Pool
	log  *log.Helper
}

// NewVideoRepository 构造 VideoRepository。
func NewVideoRepository(pool *pgxpool.Pool, logger log.Logger) *VideoRepository {
	return &VideoRepository{
		pool: pool,
		log:  log.NewHelper(logger),
	}
}

const videoColumns = `
	video_id, user_id, created_at, updated_at,
	title, description, status,
	file_url, file_size, content_hash,
	duration_micros, resolution, thumbnails, thumbnail_index,
	error_message
`

func scanVideo(row pgx.Row) (*po.Video, error) {
	var v po.Video
	err := row.Scan(
		&v.VideoID, &v.UserID, &v.CreatedAt, &v.UpdatedAt,
		&v.Title, &v.Description, &v.Status,
		&v.FileURL, &v.FileSize, &v.ContentHash,
		&v.DurationMicros, &v.Resolution, &v.Thumbnails, &v.ThumbnailIndex,
		&v.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create 创建新视频记录。
// 使用 INSERT ... RETURNING 获取数据库生成的时间戳。
func (r *VideoRepository) Create(ctx context.Context, sess txmanager.Session, v *po.Video) (*po.Video, error) {
	query := `
		INSERT INTO media.videos (video_id, user_id, title, description, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := queryTarget(r.pool, sess).QueryRow(ctx, query,
		v.VideoID,
		v.UserID,
		v.Title,
		v.Description,
		v.Status,
	).Scan(&v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		r.log.WithContext(ctx).Errorf("create video failed: video_id=%s err=%v", v.VideoID, err)
		return nil, fmt.Errorf("insert video: %w", err)
	}

	r.log.WithContext(ctx).Infof("created video: video_id=%s", v.VideoID)
	return v, nil
}

// GetByID 根据 video_id 查询视频记录。
// 查询不到时返回 ErrVideoNotFound。
func (r *VideoRepository) GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM media.videos WHERE video_id = $1`

	v, err := scanVideo(queryTarget(r.pool, sess).QueryRow(ctx, query, videoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("get video by id failed: video_id=%s err=%v", videoID, err)
		return nil, fmt.Errorf("query video by id: %w", err)
	}
	return v, nil
}

// GetByContentHash 根据内容哈希查询同一用户的视频，用于重复上传检测。
func (r *VideoRepository) GetByContentHash(ctx context.Context, sess txmanager.Session, userID uuid.UUID, hash string) (*po.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM media.videos
		WHERE user_id = $1 AND content_hash = $2
		ORDER BY created_at
		LIMIT 1
	`

	v, err := scanVideo(queryTarget(r.pool, sess).QueryRow(ctx, query, userID, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("get video by content hash failed: user_id=%s err=%v", userID, err)
		return nil, fmt.Errorf("query video by content hash: %w", err)
	}
	return v, nil
}

// CountByUserSince 统计用户自指定时间起创建的视频数量，用于配额检查。
func (r *VideoRepository) CountByUserSince(ctx context.Context, sess txmanager.Session, userID uuid.UUID, since time.Time) (int64, error) {
	query := `SELECT count(*) FROM media.videos WHERE user_id = $1 AND created_at >= $2`

	var count int64
	err := queryTarget(r.pool, sess).QueryRow(ctx, query, userID, since.UTC()).Scan(&count)
	if err != nil {
		r.log.WithContext(ctx).Errorf("count videos by user failed: user_id=%s err=%v", userID, err)
		return 0, fmt.Errorf("count videos by user: %w", err)
	}
	return count, nil
}

// SetFileInfo 补写上传完成后的文件路径、大小与内容哈希。
func (r *VideoRepository) SetFileInfo(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, fileURL string, fileSize *int64, contentHash *string) error {
	query := `
		UPDATE media.videos
		SET file_url = $2, file_size = $3, content_hash = $4
		WHERE video_id = $1
		RETURNING video_id
	`

	var id uuid.UUID
	err := queryTarget(r.pool, sess).QueryRow(ctx, query, videoID, fileURL, fileSize, contentHash).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("set video file info failed: video_id=%s err=%v", videoID, err)
		return fmt.Errorf("set video file info: %w", err)
	}
	return nil
}

// SetProbeResult 补写媒体探测得到的时长与分辨率。
func (r *VideoRepository) SetProbeResult(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, durationMicros int64, resolution string) error {
	query := `
		UPDATE media.videos
		SET duration_micros = $2, resolution = $3
		WHERE video_id = $1
		RETURNING video_id
	`

	var id uuid.UUID
	err := queryTarget(r.pool, sess).QueryRow(ctx, query, videoID, durationMicros, resolution).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("set probe result failed: video_id=%s err=%v", videoID, err)
		return fmt.Errorf("set probe result: %w", err)
	}
	return nil
}

// ReplaceThumbnails 覆盖自动缩略图列表并把选中下标归零。
func (r *VideoRepository) ReplaceThumbnails(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, thumbnails []string) error {
	query := `
		UPDATE media.videos
		SET thumbnails = $2, thumbnail_index = 0
		WHERE video_id = $1
		RETURNING video_id
	`

	var id uuid.UUID
	err := queryTarget(r.pool, sess).QueryRow(ctx, query, videoID, thumbnails).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("replace thumbnails failed: video_id=%s err=%v", videoID, err)
		return fmt.Errorf("replace thumbnails: %w", err)
	}
	return nil
}

// SetStatus 更新总体状态及错误信息。
func (r *VideoRepository) SetStatus(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, status po.VideoStatus, errorMessage *string) error {
	query := `
		UPDATE media.videos
		SET status = $2, error_message = $3
		WHERE video_id = $1
		RETURNING video_id
	`

	var id uuid.UUID
	err := queryTarget(r.pool, sess).QueryRow(ctx, query, videoID, status, errorMessage).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("set video status failed: video_id=%s status=%s err=%v", videoID, status, err)
		return fmt.Errorf("set video status: %w", err)
	}

	r.log.WithContext(ctx).Infof("video status updated: video_id=%s status=%s", videoID, status)
	return nil
}
