package po

import (
	"time"

	"github.com/google/uuid"
)

// AspectRatio 表示重制任务的目标宽高比。
type AspectRatio string

// 宽高比常量定义
const (
	AspectRatioVertical  AspectRatio = "9:16"
	AspectRatioSquare    AspectRatio = "1:1"
	AspectRatioPortrait  AspectRatio = "4:5"
	AspectRatioLandscape AspectRatio = "16:9"
)

// VideoResize 描述 media.video_resizes 表中一条按比例重制的记录。
type VideoResize struct {
	ResizeID     uuid.UUID     `db:"resize_id"`
	UserID       uuid.UUID     `db:"user_id"`
	VideoID      uuid.UUID     `db:"video_id"`
	AspectRatio  AspectRatio   `db:"aspect_ratio"`
	TargetWidth  int32         `db:"target_width"`
	TargetHeight int32         `db:"target_height"`
	Status       VariantStatus `db:"status"`
	OutputURL    *string       `db:"output_url"`
	OutputSize   *int64        `db:"output_size"`
	ErrorMessage *string       `db:"error_message"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
}
