package services

import (
	"context"
	"errors"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"

	"github.com/google/uuid"
)

// 本文件声明管线依赖的外部协作方契约。
// 编解码、平台上传协议与额度扣费均由外部实现，这里只约定边界。

// ProbeResult 描述媒体探测得到的基础属性。
type ProbeResult struct {
	DurationMicros int64
	Width          int32
	Height         int32
}

// MediaProbe 抽取本地媒体文件的时长与分辨率。
type MediaProbe interface {
	Probe(ctx context.Context, localPath string) (*ProbeResult, error)
}

// Thumbnailer 基于本地媒体文件生成候选缩略图，返回可访问的 URL 列表。
type Thumbnailer interface {
	Generate(ctx context.Context, localPath string, videoID uuid.UUID) ([]string, error)
}

// TranscodeSpec 是平台的目标编码参数。
type TranscodeSpec struct {
	Width       int32
	Height      int32
	BitrateKbps int32
}

// TranscodeJob 描述一次面向平台规格的转码请求。
type TranscodeJob struct {
	VideoID  uuid.UUID
	Platform po.Platform
	FileURL  string
	Spec     TranscodeSpec
}

// TranscodeOutput 描述转码产物。
type TranscodeOutput struct {
	OutputObject string
	Width        int32
	Height       int32
	BitrateKbps  int32
}

// ResizeJob 描述一次按比例重制请求，输入输出均为本地路径。
type ResizeJob struct {
	SourcePath string
	OutputPath string
	Width      int32
	Height     int32
}

// Transcoder 执行平台转码与按比例重制。
type Transcoder interface {
	Transcode(ctx context.Context, job TranscodeJob) (*TranscodeOutput, error)
	Resize(ctx context.Context, job ResizeJob) error
}

// PublishJob 描述一次平台发布请求。
type PublishJob struct {
	Upload  *po.VideoUpload
	Video   *po.Video
	FileURL string
}

// PublishOutcome 描述平台受理后的标识信息。
type PublishOutcome struct {
	PlatformVideoID string
	PlatformURL     string
}

// PlatformPublisher 将视频提交到单个外部平台。
type PlatformPublisher interface {
	Platform() po.Platform
	Publish(ctx context.Context, job PublishJob) (*PublishOutcome, error)
}

// Storage 抽象对象存储访问，用于源文件下载与产物回传。
type Storage interface {
	Download(ctx context.Context, fileURL, destPath string) error
	Upload(ctx context.Context, localPath, objectName string) (url string, size int64, err error)
	Delete(ctx context.Context, objectName string) error
}

// ErrInsufficientCredit 表示用户额度不足，由 CreditLedger 实现返回。
var ErrInsufficientCredit = errors.New("insufficient credit")

// CreditLedger 抽象额度扣费，扣费失败时任何记录都不得落库。
type CreditLedger interface {
	Charge(ctx context.Context, userID uuid.UUID, amount int64, reason string) error
}

// PlatformLinks 提供用户已绑定平台的只读查询，绑定关系由外部系统维护。
type PlatformLinks interface {
	ListLinked(ctx context.Context, userID uuid.UUID) ([]po.Platform, error)
}
