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

// VariantRepository 封装 media.video_variants 表的访问逻辑。
type VariantRepository struct {
	pool *pgxpool.Pool
	log  *log.Helper
}

// NewVariantRepository 构造 VariantRepository。
func NewVariantRepository(pool *pgxpool.Pool, logger log.Logger) *VariantRepository {
	return &VariantRepository{
		pool: pool,
		log:  log.NewHelper(logger),
	}
}

const variantColumns = `
	variant_id, video_id, platform, status,
	output_object, width, height, bitrate_kbps, error_message,
	created_at, updated_at
`

func scanVariant(row pgx.Row) (*po.VideoVariant, error) {
	var v po.VideoVariant
	err := row.Scan(
		&v.VariantID, &v.VideoID, &v.Platform, &v.Status,
		&v.OutputObject, &v.Width, &v.Height, &v.BitrateKbps, &v.ErrorMessage,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// UpsertPending 为「视频 × 平台」创建或重置转码记录。
// 同一组合重复扇出时复用既有行：状态回到 pending，产物与错误清空。
func (r *VariantRepository) UpsertPending(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, platform po.Platform) (*po.VideoVariant, error) {
	query := `
		INSERT INTO media.video_variants (variant_id, video_id, platform, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (video_id, platform) DO UPDATE
		SET status = EXCLUDED.status,
			output_object = NULL,
			width = NULL,
			height = NULL,
			bitrate_kbps = NULL,
			error_message = NULL
		RETURNING ` + variantColumns

	variant, err := scanVariant(queryTarget(r.pool, sess).QueryRow(ctx, query,
		uuid.New(), videoID, platform, po.VariantStatusPending,
	))
	if err != nil {
		r.log.WithContext(ctx).Errorf("upsert variant failed: video_id=%s platform=%s err=%v", videoID, platform, err)
		return nil, fmt.Errorf("upsert variant: %w", err)
	}
	return variant, nil
}

// GetByID 根据 variant_id 查询转码记录。
func (r *VariantRepository) GetByID(ctx context.Context, sess txmanager.Session, variantID uuid.UUID) (*po.VideoVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM media.video_variants WHERE variant_id = $1`

	variant, err := scanVariant(queryTarget(r.pool, sess).QueryRow(ctx, query, variantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		r.log.WithContext(ctx).Errorf("get variant by id failed: variant_id=%s err=%v", variantID, err)
		return nil, fmt.Errorf("query variant by id: %w", err)
	}
	return variant, nil
}

// ListByVideo 查询指定视频的全部转码记录。
func (r *VariantRepository) ListByVideo(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) ([]*po.VideoVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM media.video_variants WHERE video_id = $1 ORDER BY created_at`

	rows, err := queryTarget(r.pool, sess).Query(ctx, query, videoID)
	if err != nil {
		r.log.WithContext(ctx).Errorf("list variants failed: video_id=%s err=%v", videoID, err)
		return nil, fmt.Errorf("query variants by video: %w", err)
	}
	defer rows.Close()

	var variants []*po.VideoVariant
	for rows.Next() {
		variant, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		variants = append(variants, variant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}
	return variants, nil
}

// MarkProcessing 将转码记录标记为 processing。
func (r *VariantRepository) MarkProcessing(ctx context.Context, sess txmanager.Session, variantID uuid.UUID) error {
	query := `
		UPDATE media.video_variants
		SET status = $2
		WHERE variant_id = $1
		RETURNING variant_id
	`
	return r.execUpdate(ctx, sess, query, "mark variant processing", variantID, po.VariantStatusProcessing)
}

// MarkCompletedInput 描述转码成功后的产物信息。
type MarkCompletedInput struct {
	VariantID    uuid.UUID
	OutputObject string
	Width        int32
	Height       int32
	BitrateKbps  int32
}

// MarkCompleted 将转码记录标记为 completed 并回写产物元数据。
func (r *VariantRepository) MarkCompleted(ctx context.Context, sess txmanager.Session, input MarkCompletedInput) error {
	query := `
		UPDATE media.video_variants
		SET status = $2, output_object = $3, width = $4, height = $5, bitrate_kbps = $6, error_message = NULL
		WHERE variant_id = $1
		RETURNING variant_id
	`
	return r.execUpdate(ctx, sess, query, "mark variant completed",
		input.VariantID, po.VariantStatusCompleted, input.OutputObject, input.Width, input.Height, input.BitrateKbps)
}

// MarkFailed 将转码记录标记为 failed 并记录原因。
func (r *VariantRepository) MarkFailed(ctx context.Context, sess txmanager.Session, variantID uuid.UUID, message string) error {
	query := `
		UPDATE media.video_variants
		SET status = $2, error_message = $3
		WHERE variant_id = $1
		RETURNING variant_id
	`
	return r.execUpdate(ctx, sess, query, "mark variant failed", variantID, po.VariantStatusFailed, message)
}

func (r *VariantRepository) execUpdate(ctx context.Context, sess txmanager.Session, query, op string, variantID uuid.UUID, args ...any) error {
	queryArgs := append([]any{variantID}, args...)

	var id uuid.UUID
	err := queryTarget(r.pool, sess).QueryRow(ctx, query, queryArgs...).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVariantNotFound
		}
		r.log.WithContext(ctx).Errorf("%s failed: variant_id=%s err=%v", op, variantID, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
