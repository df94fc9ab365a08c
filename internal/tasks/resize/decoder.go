// Package resize 消费画幅重制请求事件并执行重制。
package resize

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Event 表示从重制请求消息中解析出的关键信息。
type Event struct {
	ResizeID uuid.UUID
	VideoID  uuid.UUID
	UserID   uuid.UUID
}

type resizeRequestedMessage struct {
	ResizeID string `json:"resize_id"`
	VideoID  string `json:"video_id"`
	UserID   string `json:"user_id"`
}

type eventDecoder struct{}

func newDecoder() *eventDecoder {
	return &eventDecoder{}
}

// Decode 将 Pub/Sub 消息数据解析为 Event。
func (d *eventDecoder) Decode(data []byte) (*Event, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("resize: empty payload")
	}

	var msg resizeRequestedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("resize: decode resize request payload: %w", err)
	}

	resizeID, err := uuid.Parse(msg.ResizeID)
	if err != nil {
		return nil, fmt.Errorf("resize: parse resize id: %w", err)
	}
	videoID, err := uuid.Parse(msg.VideoID)
	if err != nil {
		return nil, fmt.Errorf("resize: parse video id: %w", err)
	}
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		return nil, fmt.Errorf("resize: parse user id: %w", err)
	}

	return &Event{
		ResizeID: resizeID,
		VideoID:  videoID,
		UserID:   userID,
	}, nil
}
