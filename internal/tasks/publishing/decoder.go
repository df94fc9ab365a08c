// Package publishing 消费发布请求事件，按平台扇出提交发布。
package publishing

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Event 表示从发布请求消息中解析出的关键信息。
type Event struct {
	VideoID   uuid.UUID
	UserID    uuid.UUID
	FileURL   string
	UploadIDs []uuid.UUID
}

type publishRequestedMessage struct {
	VideoID   string   `json:"video_id"`
	UserID    string   `json:"user_id"`
	FileURL   string   `json:"file_url"`
	UploadIDs []string `json:"upload_ids"`
}

type eventDecoder struct{}

func newDecoder() *eventDecoder {
	return &eventDecoder{}
}

// Decode 将 Pub/Sub 消息数据解析为 Event。
func (d *eventDecoder) Decode(data []byte) (*Event, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("publishing: empty payload")
	}

	var msg publishRequestedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("publishing: decode publish request payload: %w", err)
	}

	videoID, err := uuid.Parse(msg.VideoID)
	if err != nil {
		return nil, fmt.Errorf("publishing: parse video id: %w", err)
	}
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		return nil, fmt.Errorf("publishing: parse user id: %w", err)
	}
	if msg.FileURL == "" {
		return nil, fmt.Errorf("publishing: missing file url")
	}
	if len(msg.UploadIDs) == 0 {
		return nil, fmt.Errorf("publishing: missing upload ids")
	}

	uploadIDs := make([]uuid.UUID, 0, len(msg.UploadIDs))
	for _, raw := range msg.UploadIDs {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("publishing: parse upload id %q: %w", raw, parseErr)
		}
		uploadIDs = append(uploadIDs, id)
	}

	return &Event{
		VideoID:   videoID,
		UserID:    userID,
		FileURL:   msg.FileURL,
		UploadIDs: uploadIDs,
	}, nil
}
