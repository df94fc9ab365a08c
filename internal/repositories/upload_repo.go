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

// UploadRepository 封装 media.video_uploads 表的访问逻辑。
type UploadRepository struct {
	pool *pgxpool.Pool
	log  *log.Helper
}

// NewUploadRepository 构造 UploadRepository。
func NewUploadRepository(pool *pgxpool.Pool, logger log.Logger) *UploadRepository {
	return &UploadRepository{
		pool: pool,
		log:  log.NewHelper(logger),
	}
}

const uploadColumns = `
	upload_id, video_id, platform, status,
	platform_video_id, platform_url, error_message, published_at,
	meta_title, meta_description, meta_tags, meta_visibility, meta_thumbnail_url,
	created_at, updated_at
`

func scanUpload(row pgx.Row) (*po.VideoUpload, error) {
	var u po.VideoUpload
	err := row.Scan(
		&u.UploadID, &u.VideoID, &u.Platform, &u.Status,
		&u.PlatformVideoID, &u.PlatformURL, &u.ErrorMessage, &u.PublishedAt,
		&u.Meta.Title, &u.Meta.Description, &u.Meta.Tags, &u.Meta.Visibility, &u.Meta.ThumbnailURL,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUploadInput 描述预建平台发布记录所需的字段。
type CreateUploadInput struct {
	VideoID  uuid.UUID
	Platform po.Platform
	Meta     po.PlatformMeta
}

// Create 预建一条平台发布记录，初始状态为 uploading。
func (r *UploadRepository) Create(ctx context.Context, sess txmanager.Session, input CreateUploadInput) (*po.VideoUpload, error) {
	query := `
		INSERT INTO media.video_uploads (
			upload_id, video_id, platform, status,
			meta_title, meta_description, meta_tags, meta_visibility, meta_thumbnail_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + uploadColumns

	uploadID := uuid.New()
	upload, err := scanUpload(queryTarget(r.pool, sess).QueryRow(ctx, query,
		uploadID,
		input.VideoID,
		input.Platform,
		po.UploadStatusUploading,
		input.Meta.Title,
		input.Meta.Description,
		input.Meta.Tags,
		input.Meta.Visibility,
		input.Meta.ThumbnailURL,
	))
	if err != nil {
		r.log.WithContext(ctx).Errorf("create upload failed: video_id=%s platform=%s err=%v", input.VideoID, input.Platform, err)
		return nil, fmt.Errorf("insert video upload: %w", err)
	}

	r.log.WithContext(ctx).Infof("created upload: upload_id=%s video_id=%s platform=%s", upload.UploadID, input.VideoID, input.Platform)
	return upload, nil
}

// GetByID 根据 upload_id 查询发布记录。
func (r *UploadRepository) GetByID(ctx context.Context, sess txmanager.Session, uploadID uuid.UUID) (*po.VideoUpload, error) {
	query := `SELECT ` + uploadColumns + ` FROM media.video_uploads WHERE upload_id = $1`

	upload, err := scanUpload(queryTarget(r.pool, sess).QueryRow(ctx, query, uploadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		r.log.WithContext(ctx).Errorf("get upload by id failed: upload_id=%s err=%v", uploadID, err)
		return nil, fmt.Errorf("query upload by id: %w", err)
	}
	return upload, nil
}

// ListByVideo 查询指定视频的全部平台发布记录。
func (r *UploadRepository) ListByVideo(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) ([]*po.VideoUpload, error) {
	query := `SELECT ` + uploadColumns + ` FROM media.video_uploads WHERE video_id = $1 ORDER BY created_at`

	rows, err := queryTarget(r.pool, sess).Query(ctx, query, videoID)
	if err != nil {
		r.log.WithContext(ctx).Errorf("list uploads failed: video_id=%s err=%v", videoID, err)
		return nil, fmt.Errorf("query uploads by video: %w", err)
	}
	defer rows.Close()

	var uploads []*po.VideoUpload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload row: %w", err)
		}
		uploads = append(uploads, upload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upload rows: %w", err)
	}
	return uploads, nil
}

// MarkProcessing 将发布记录标记为 processing，并记录平台侧标识。
func (r *UploadRepository) MarkProcessing(ctx context.Context, sess txmanager.Session, uploadID uuid.UUID, platformVideoID, platformURL *string) error {
	query := `
		UPDATE media.video_uploads
		SET status = $2, platform_video_id = $3, platform_url = $4, error_message = NULL
		WHERE upload_id = $1
		RETURNING upload_id
	`
	return r.execUpdate(ctx, sess, query, "mark upload processing", uploadID, po.UploadStatusProcessing, platformVideoID, platformURL)
}

// MarkTerminal 将 processing 中的发布记录推进到终态（published / rejected / failed）。
func (r *UploadRepository) MarkTerminal(ctx context.Context, sess txmanager.Session, uploadID uuid.UUID, status po.UploadStatus, errorMessage *string, publishedAt *time.Time) error {
	query := `
		UPDATE media.video_uploads
		SET status = $2, error_message = $3, published_at = $4
		WHERE upload_id = $1
		RETURNING upload_id
	`
	return r.execUpdate(ctx, sess, query, "mark upload terminal", uploadID, status, errorMessage, publishedAt)
}

// MarkFailed 将发布记录标记为 failed 并记录原因。
func (r *UploadRepository) MarkFailed(ctx context.Context, sess txmanager.Session, uploadID uuid.UUID, message string) error {
	query := `
		UPDATE media.video_uploads
		SET status = $2, error_message = $3
		WHERE upload_id = $1
		RETURNING upload_id
	`
	return r.execUpdate(ctx, sess, query, "mark upload failed", uploadID, po.UploadStatusFailed, message)
}

// ResetForRetry 清空错误与平台侧引用，状态回到 uploading。
// 状态前置校验由 Service 层完成。
func (r *UploadRepository) ResetForRetry(ctx context.Context, sess txmanager.Session, uploadID uuid.UUID) error {
	query := `
		UPDATE media.video_uploads
		SET status = $2, error_message = NULL, platform_video_id = NULL, platform_url = NULL, published_at = NULL
		WHERE upload_id = $1
		RETURNING upload_id
	`
	return r.execUpdate(ctx, sess, query, "reset upload for retry", uploadID, po.UploadStatusUploading)
}

func (r *UploadRepository) execUpdate(ctx context.Context, sess txmanager.Session, query, op string, uploadID uuid.UUID, args ...any) error {
	queryArgs := append([]any{uploadID}, args...)

	var id uuid.UUID
	err := queryTarget(r.pool, sess).QueryRow(ctx, query, queryArgs...).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUploadNotFound
		}
		r.log.WithContext(ctx).Errorf("%s failed: upload_id=%s err=%v", op, uploadID, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
