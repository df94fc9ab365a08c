// Package postprocess 消费上传完成事件，执行探测与缩略图流水线。
package postprocess

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Event 表示从上传完成消息中解析出的关键信息。
type Event struct {
	VideoID   uuid.UUID
	UserID    uuid.UUID
	FileURL   string
	Platforms []string
}

type uploadCompletedMessage struct {
	VideoID   string   `json:"video_id"`
	UserID    string   `json:"user_id"`
	FileURL   string   `json:"file_url"`
	Platforms []string `json:"platforms"`
}

type eventDecoder struct{}

func newDecoder() *eventDecoder {
	return &eventDecoder{}
}

// Decode 将 Pub/Sub 消息数据解析为 Event。
func (d *eventDecoder) Decode(data []byte) (*Event, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("postprocess: empty payload")
	}

	var msg uploadCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("postprocess: decode upload completed payload: %w", err)
	}

	videoID, err := uuid.Parse(msg.VideoID)
	if err != nil {
		return nil, fmt.Errorf("postprocess: parse video id: %w", err)
	}
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		return nil, fmt.Errorf("postprocess: parse user id: %w", err)
	}
	if msg.FileURL == "" {
		return nil, fmt.Errorf("postprocess: missing file url")
	}

	return &Event{
		VideoID:   videoID,
		UserID:    userID,
		FileURL:   msg.FileURL,
		Platforms: msg.Platforms,
	}, nil
}
