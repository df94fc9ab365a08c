package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResizeRepository 封装 media.video_resizes 表的访问逻辑。
type ResizeRepository struct {
	pool *pgxpool.Pool
	log  *log.Helper
}

// NewResizeRepository 构造 ResizeRepository。
func NewResizeRepository(pool *pgxpool.Pool, logger log.Logger) *ResizeRepository {
	return &ResizeRepository{
		pool: pool,
		log:  log.NewHelper(logger),
	}
}

const resizeColumns = `
	resize_id, user_id, video_id, aspect_ratio, target_width, target_height,
	status, output_url, output_size, error_message, created_at, updated_at
`

func scanResize(row pgx.Row) (*po.VideoResize, error) {
	var v po.VideoResize
	err := row.Scan(
		&v.ResizeID, &v.UserID, &v.VideoID, &v.AspectRatio, &v.TargetWidth, &v.TargetHeight,
		&v.Status, &v.OutputURL, &v.OutputSize, &v.ErrorMessage, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create 登记一条重制任务，初始状态为 pending。
func (r *ResizeRepository) Create(ctx context.Context, sess txmanager.Session, resize *po.VideoResize) (*po.VideoResize, error) {
	query := `
		INSERT INTO media.video_resizes (
			resize_id, user_id, video_id, aspect_ratio, target_width, target_height, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := queryTarget(r.pool, sess).QueryRow(ctx, query,
		resize.ResizeID,
		resize.UserID,
		resize.VideoID,
		resize.AspectRatio,
		resize.TargetWidth,
		resize.TargetHeight,
		resize.Status,
	).Scan(&resize.CreatedAt, &resize.UpdatedAt)

	if err != nil {
		r.log.WithContext(ctx).Errorf("create resize failed: video_id=%s ratio=%s err=%v", resize.VideoID, resize.AspectRatio, err)
		return nil, fmt.Errorf("insert resize: %w", err)
	}
	return resize, nil
}

// GetByID 根据 resize_id 查询重制任务。
func (r *ResizeRepository) GetByID(ctx context.Context, sess txmanager.Session, resizeID uuid.UUID) (*po.VideoResize, error) {
	query := `SELECT ` + resizeColumns + ` FROM media.video_resizes WHERE resize_id = $1`

	resize, err := scanResize(queryTarget(r.pool, sess).QueryRow(ctx, query, resizeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResizeNotFound
		}
		r.log.WithContext(ctx).Errorf("get resize by id failed: resize_id=%s err=%v", resizeID, err)
		return nil, fmt.Errorf("query resize by id: %w", err)
	}
	return resize, nil
}

// MarkProcessing 将重制任务标记为 processing。
func (r *ResizeRepository) MarkProcessing(ctx context.Context, sess txmanager.Session, resizeID uuid.UUID) error {
	query := `
		UPDATE media.video_resizes
		SET status = $2
		WHERE resize_id = $1
		RETURNING resize_id
	`
	return r.execUpdate(ctx, sess, query, "mark resize processing", resizeID, po.VariantStatusProcessing)
}

// MarkCompleted 将重制任务标记为 completed 并回写产物信息。
func (r *ResizeRepository) MarkCompleted(ctx context.Context, sess txmanager.Session, resizeID uuid.UUID, outputURL string, outputSize int64) error {
	query := `
		UPDATE media.video_resizes
		SET status = $2, output_url = $3, output_size = $4, error_message = NULL
		WHERE resize_id = $1
		RETURNING resize_id
	`
	return r.execUpdate(ctx, sess, query, "mark resize completed", resizeID, po.VariantStatusCompleted, outputURL, outputSize)
}

// MarkFailed 将重制任务标记为 failed 并记录原因。
func (r *ResizeRepository) MarkFailed(ctx context.Context, sess txmanager.Session, resizeID uuid.UUID, message string) error {
	query := `
		UPDATE media.video_resizes
		SET status = $2, error_message = $3
		WHERE resize_id = $1
		RETURNING resize_id
	`
	return r.execUpdate(ctx, sess, query, "mark resize failed", resizeID, po.VariantStatusFailed, message)
}

func (r *ResizeRepository) execUpdate(ctx context.Context, sess txmanager.Session, query, op string, resizeID uuid.UUID, args ...any) error {
	queryArgs := append([]any{resizeID}, args...)

	var id uuid.UUID
	err := queryTarget(r.pool, sess).QueryRow(ctx, query, queryArgs...).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResizeNotFound
		}
		r.log.WithContext(ctx).Errorf("%s failed: resize_id=%s err=%v", op, resizeID, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
