// Package transcoding 消费转码请求事件，按平台扇出执行转码。
package transcoding

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event 表示从转码请求消息中解析出的关键信息。
// OccurredAt 缺失或非法时为零值，仅影响滞后指标。
type Event struct {
	VideoID    uuid.UUID
	UserID     uuid.UUID
	FileURL    string
	Platforms  []string
	OccurredAt time.Time
}

type transcodeRequestedMessage struct {
	VideoID    string   `json:"video_id"`
	UserID     string   `json:"user_id"`
	FileURL    string   `json:"file_url"`
	Platforms  []string `json:"platforms"`
	OccurredAt string   `json:"occurred_at"`
}

type eventDecoder struct{}

func newDecoder() *eventDecoder {
	return &eventDecoder{}
}

// Decode 将 Pub/Sub 消息数据解析为 Event。
func (d *eventDecoder) Decode(data []byte) (*Event, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("transcoding: empty payload")
	}

	var msg transcodeRequestedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("transcoding: decode transcode request payload: %w", err)
	}

	videoID, err := uuid.Parse(msg.VideoID)
	if err != nil {
		return nil, fmt.Errorf("transcoding: parse video id: %w", err)
	}
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		return nil, fmt.Errorf("transcoding: parse user id: %w", err)
	}
	if msg.FileURL == "" {
		return nil, fmt.Errorf("transcoding: missing file url")
	}
	if len(msg.Platforms) == 0 {
		return nil, fmt.Errorf("transcoding: missing target platforms")
	}

	var occurredAt time.Time
	if msg.OccurredAt != "" {
		if parsed, parseErr := time.Parse(time.RFC3339Nano, msg.OccurredAt); parseErr == nil {
			occurredAt = parsed
		}
	}

	return &Event{
		VideoID:    videoID,
		UserID:     userID,
		FileURL:    msg.FileURL,
		Platforms:  msg.Platforms,
		OccurredAt: occurredAt,
	}, nil
}
