package postprocess

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestDecoder_Decode(t *testing.T) {
	videoID := uuid.New()
	userID := uuid.New()
	data, _ := json.Marshal(map[string]any{
		"video_id":  videoID.String(),
		"user_id":   userID.String(),
		"file_url":  "gs://bucket/raw_videos/u/v.mp4",
		"platforms": []string{"youtube", "tiktok"},
	})

	evt, err := newDecoder().Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if evt.VideoID != videoID || evt.UserID != userID {
		t.Fatalf("unexpected ids: %+v", evt)
	}
	if evt.FileURL != "gs://bucket/raw_videos/u/v.mp4" {
		t.Fatalf("unexpected file url: %s", evt.FileURL)
	}
	if len(evt.Platforms) != 2 {
		t.Fatalf("unexpected platforms: %v", evt.Platforms)
	}
}

func TestDecoder_DecodeAllowsEmptyPlatforms(t *testing.T) {
	data, _ := json.Marshal(map[string]any{
		"video_id": uuid.New().String(),
		"user_id":  uuid.New().String(),
		"file_url": "gs://bucket/raw_videos/u/v.mp4",
	})

	evt, err := newDecoder().Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(evt.Platforms) != 0 {
		t.Fatalf("expected no platforms, got %v", evt.Platforms)
	}
}

func TestDecoder_DecodeRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty payload", nil},
		{"not json", []byte("{")},
		{"bad video id", []byte(`{"video_id":"nope","user_id":"` + uuid.New().String() + `","file_url":"gs://b/o"}`)},
		{"bad user id", []byte(`{"video_id":"` + uuid.New().String() + `","user_id":"nope","file_url":"gs://b/o"}`)},
		{"missing file url", []byte(`{"video_id":"` + uuid.New().String() + `","user_id":"` + uuid.New().String() + `"}`)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := newDecoder().Decode(tc.data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
