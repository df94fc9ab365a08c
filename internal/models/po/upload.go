package po

import (
	"time"

	"github.com/google/uuid"
)

// UploadStatus 表示单个平台发布记录的状态。
type UploadStatus string

// 平台发布状态常量定义
const (
	UploadStatusUploading  UploadStatus = "uploading"  // 已受理，尚未提交到平台
	UploadStatusProcessing UploadStatus = "processing" // 已提交，等待平台确认
	UploadStatusPublished  UploadStatus = "published"  // 平台确认发布成功（终态）
	UploadStatusFailed     UploadStatus = "failed"     // 发布失败（终态，可重试）
	UploadStatusRejected   UploadStatus = "rejected"   // 平台拒绝（终态，可重试）
)

// IsTerminal 判断状态是否为终态。
func (s UploadStatus) IsTerminal() bool {
	switch s {
	case UploadStatusPublished, UploadStatusFailed, UploadStatusRejected:
		return true
	default:
		return false
	}
}

// IsRetryable 判断状态是否允许重试。
func (s UploadStatus) IsRetryable() bool {
	return s == UploadStatusFailed || s == UploadStatusRejected
}

// PlatformMeta 描述面向单个平台的发布元数据，随上传记录 1:1 存储。
type PlatformMeta struct {
	Title        string   `db:"meta_title"`         // 平台侧标题
	Description  *string  `db:"meta_description"`   // 平台侧描述
	Tags         []string `db:"meta_tags"`          // 平台侧标签（text[]）
	Visibility   string   `db:"meta_visibility"`    // public / unlisted / private
	ThumbnailURL *string  `db:"meta_thumbnail_url"` // 覆盖默认缩略图的 URL
}

// VideoUpload 描述 media.video_uploads 表中一条「视频 × 平台」发布记录。
type VideoUpload struct {
	UploadID        uuid.UUID    `db:"upload_id"`
	VideoID         uuid.UUID    `db:"video_id"`
	Platform        Platform     `db:"platform"`
	Status          UploadStatus `db:"status"`
	PlatformVideoID *string      `db:"platform_video_id"` // 平台侧视频标识
	PlatformURL     *string      `db:"platform_url"`      // 平台侧访问地址
	ErrorMessage    *string      `db:"error_message"`
	PublishedAt     *time.Time   `db:"published_at"`
	Meta            PlatformMeta
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}
