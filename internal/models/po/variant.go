package po

import (
	"time"

	"github.com/google/uuid"
)

// VariantStatus 表示转码/重制任务的执行状态。
type VariantStatus string

// 转码状态常量定义
const (
	VariantStatusPending    VariantStatus = "pending"    // 已登记，等待执行
	VariantStatusProcessing VariantStatus = "processing" // 执行中
	VariantStatusCompleted  VariantStatus = "completed"  // 执行成功（终态）
	VariantStatusFailed     VariantStatus = "failed"     // 执行失败（终态，可重试）
)

// VideoVariant 描述 media.video_variants 表中一条「视频 × 平台」转码产物记录。
type VideoVariant struct {
	VariantID    uuid.UUID     `db:"variant_id"`
	VideoID      uuid.UUID     `db:"video_id"`
	Platform     Platform      `db:"platform"`
	Status       VariantStatus `db:"status"`
	OutputObject *string       `db:"output_object"` // 转码产物对象路径
	Width        *int32        `db:"width"`
	Height       *int32        `db:"height"`
	BitrateKbps  *int32        `db:"bitrate_kbps"`
	ErrorMessage *string       `db:"error_message"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
}
