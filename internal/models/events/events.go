// Package events 提供领域事件构造与元数据辅助函数，统一事件命名与属性。
package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// 事件类型常量，作为 Pub/Sub attributes 与 inbox 路由的依据。
const (
	TypeUploadCompleted    = "media.upload.completed"
	TypeTranscodeRequested = "media.transcode.requested"
	TypePublishRequested   = "media.publish.requested"
	TypeResizeRequested    = "media.resize.requested"
	TypeProbeCompleted     = "media.probe.completed"
	TypePublishFinished    = "media.publish.finished"
)

const (
	// AggregateTypeVideo 标识视频聚合类型，供 Outbox headers / attributes 使用。
	AggregateTypeVideo = "video"
	// AggregateTypeResize 标识重制任务聚合类型。
	AggregateTypeResize = "resize"
	// SchemaVersionV1 描述事件载荷的当前 schema 版本。
	SchemaVersionV1 = "v1"
)

var (
	// ErrInvalidEventID 表示未提供合法的事件 ID。
	ErrInvalidEventID = errors.New("event builder: event id is required")
	// ErrInvalidAggregateID 表示未提供合法的聚合 ID。
	ErrInvalidAggregateID = errors.New("event builder: aggregate id is required")
	// ErrNilPayload 表示事件载荷为空。
	ErrNilPayload = errors.New("event builder: payload is nil")
)

// UploadCompleted 描述上传完成事件的业务载荷。
// Platforms 为上传者已绑定的平台列表，可能为空。
type UploadCompleted struct {
	VideoID   string   `json:"video_id"`
	UserID    string   `json:"user_id"`
	FileURL   string   `json:"file_url"`
	Platforms []string `json:"platforms"`
}

// TranscodeRequested 描述转码扇出事件的业务载荷。
// OccurredAt 为 RFC3339 时间戳，消费端用于计算事件滞后。
type TranscodeRequested struct {
	VideoID    string   `json:"video_id"`
	UserID     string   `json:"user_id"`
	FileURL    string   `json:"file_url"`
	Platforms  []string `json:"platforms"`
	OccurredAt string   `json:"occurred_at,omitempty"`
}

// PublishRequested 描述发布扇出事件的业务载荷。
// UploadIDs 对应已预建的 video_uploads 记录。
type PublishRequested struct {
	VideoID   string   `json:"video_id"`
	UserID    string   `json:"user_id"`
	FileURL   string   `json:"file_url"`
	UploadIDs []string `json:"upload_ids"`
}

// ResizeRequested 描述按比例重制事件的业务载荷。
type ResizeRequested struct {
	ResizeID string `json:"resize_id"`
	VideoID  string `json:"video_id"`
	UserID   string `json:"user_id"`
}

// ProbeCompleted 描述媒体探测完成的通知载荷。
type ProbeCompleted struct {
	VideoID        string `json:"video_id"`
	DurationMicros int64  `json:"duration_micros"`
	Resolution     string `json:"resolution"`
}

// PublishFinished 描述单平台发布结束的通知载荷。
type PublishFinished struct {
	UploadID    string  `json:"upload_id"`
	VideoID     string  `json:"video_id"`
	Platform    string  `json:"platform"`
	Status      string  `json:"status"`
	PlatformURL *string `json:"platform_url,omitempty"`
}

// Envelope 聚合一条待入 Outbox 的领域事件及其元数据。
type Envelope struct {
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	OccurredAt    time.Time
	Payload       any
}

// NewEnvelope 以新生成的事件 ID 构造事件信封。
func NewEnvelope(eventType string, aggregateType string, aggregateID uuid.UUID, occurredAt time.Time, payload any) (*Envelope, error) {
	if aggregateID == uuid.Nil {
		return nil, ErrInvalidAggregateID
	}
	if payload == nil {
		return nil, ErrNilPayload
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return &Envelope{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		OccurredAt:    occurredAt.UTC(),
		Payload:       payload,
	}, nil
}

// PlatformStrings 将平台列表转换为字符串切片，供事件载荷使用。
func PlatformStrings[T ~string](platforms []T) []string {
	if len(platforms) == 0 {
		return nil
	}
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, string(p))
	}
	return out
}
