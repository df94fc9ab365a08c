// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射数据库表结构，不直接暴露给上层业务逻辑。
package po

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus 表示视频的总体生命周期状态
type VideoStatus string

// 视频状态常量定义
const (
	VideoStatusDraft      VideoStatus = "draft"      // 记录已创建但上传未完成
	VideoStatusUploading  VideoStatus = "uploading"  // 发布请求已受理，等待平台任务推进
	VideoStatusProcessing VideoStatus = "processing" // 任一平台发布仍在进行
	VideoStatusPublished  VideoStatus = "published"  // 全部平台发布成功
	VideoStatusFailed     VideoStatus = "failed"     // 全部平台进入终态失败
)

// Video 表示 media.videos 表的数据库实体。
// 映射视频的完整生命周期：上传 → 后处理 → 转码 → 多平台发布。
type Video struct {
	VideoID     uuid.UUID   `db:"video_id"`    // 主键（UUID v4）
	UserID      uuid.UUID   `db:"user_id"`     // 上传者用户 ID
	CreatedAt   time.Time   `db:"created_at"`  // 记录创建时间
	UpdatedAt   time.Time   `db:"updated_at"`  // 最近更新时间（触发器自动维护）
	Title       string      `db:"title"`       // 视频标题（必填）
	Description *string     `db:"description"` // 视频描述（可选）
	Status      VideoStatus `db:"status"`      // 总体状态（由上传行聚合推导）

	// 上传完成后补写
	FileURL     *string `db:"file_url"`     // 原始文件对象路径（GCS）
	FileSize    *int64  `db:"file_size"`    // 原始文件大小（字节）
	ContentHash *string `db:"content_hash"` // 内容哈希，用于重复检测

	// 后处理（探测/缩略图）完成后补写
	DurationMicros *int64   `db:"duration_micros"` // 视频时长（微秒）
	Resolution     *string  `db:"resolution"`      // 原始分辨率（如 "3840x2160"）
	Thumbnails     []string `db:"thumbnails"`      // 自动生成缩略图 URL 列表（text[]）
	ThumbnailIndex int32    `db:"thumbnail_index"` // 已选中缩略图下标，重新生成后归零

	// 错误与审计
	ErrorMessage *string `db:"error_message"` // 最近一次失败原因
}
