package transcoding

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDecoder_Decode(t *testing.T) {
	videoID := uuid.New()
	userID := uuid.New()
	occurredAt := time.Date(2026, 4, 1, 12, 30, 0, 0, time.UTC)
	data, _ := json.Marshal(map[string]any{
		"video_id":    videoID.String(),
		"user_id":     userID.String(),
		"file_url":    "gs://bucket/raw_videos/u/v.mp4",
		"platforms":   []string{"youtube"},
		"occurred_at": occurredAt.Format(time.RFC3339Nano),
	})

	evt, err := newDecoder().Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if evt.VideoID != videoID || evt.UserID != userID {
		t.Fatalf("unexpected ids: %+v", evt)
	}
	if len(evt.Platforms) != 1 || evt.Platforms[0] != "youtube" {
		t.Fatalf("unexpected platforms: %v", evt.Platforms)
	}
	if !evt.OccurredAt.Equal(occurredAt) {
		t.Fatalf("unexpected occurred at: %v", evt.OccurredAt)
	}
}

func TestDecoder_DecodeToleratesMissingOccurredAt(t *testing.T) {
	cases := []struct {
		name       string
		occurredAt any
	}{
		{"absent", nil},
		{"invalid", "not-a-timestamp"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := map[string]any{
				"video_id":  uuid.New().String(),
				"user_id":   uuid.New().String(),
				"file_url":  "gs://bucket/raw_videos/u/v.mp4",
				"platforms": []string{"tiktok"},
			}
			if tc.occurredAt != nil {
				msg["occurred_at"] = tc.occurredAt
			}
			data, _ := json.Marshal(msg)
			evt, err := newDecoder().Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !evt.OccurredAt.IsZero() {
				t.Fatalf("expected zero occurred at, got %v", evt.OccurredAt)
			}
		})
	}
}

func TestDecoder_DecodeRejectsInvalidInput(t *testing.T) {
	valid := map[string]any{
		"video_id":  uuid.New().String(),
		"user_id":   uuid.New().String(),
		"file_url":  "gs://bucket/raw_videos/u/v.mp4",
		"platforms": []string{"youtube"},
	}

	cases := []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"bad video id", func(m map[string]any) { m["video_id"] = "nope" }},
		{"bad user id", func(m map[string]any) { m["user_id"] = "nope" }},
		{"missing file url", func(m map[string]any) { delete(m, "file_url") }},
		{"missing platforms", func(m map[string]any) { delete(m, "platforms") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := make(map[string]any, len(valid))
			for k, v := range valid {
				msg[k] = v
			}
			tc.mutate(msg)
			data, _ := json.Marshal(msg)
			if _, err := newDecoder().Decode(data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDecoder_DecodeEmptyPayload(t *testing.T) {
	if _, err := newDecoder().Decode(nil); err == nil {
		t.Fatal("expected error")
	}
}
