package po

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingStage 标识进度记录所属的处理阶段。
type ProcessingStage string

// 处理阶段常量定义
const (
	StageUpload    ProcessingStage = "upload"
	StageProbe     ProcessingStage = "probe"
	StageThumbnail ProcessingStage = "thumbnail"
	StageTranscode ProcessingStage = "transcode"
	StagePublish   ProcessingStage = "publish"
	StageResize    ProcessingStage = "resize"
)

// ProcessingProgress 描述 media.processing_progress 表中一条进度记录。
// 主键为 (video_id, stage, platform)，platform 为空表示全局阶段。
type ProcessingProgress struct {
	VideoID   uuid.UUID       `db:"video_id"`
	Stage     ProcessingStage `db:"stage"`
	Platform  *Platform       `db:"platform"`
	Percent   int32           `db:"percent"` // 0-100
	Message   *string         `db:"message"`
	UpdatedAt time.Time       `db:"updated_at"`
}
