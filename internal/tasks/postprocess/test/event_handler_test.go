package postprocess_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"
	"github.com/bionicotaku/lingo-services-media/internal/tasks/postprocess"

	"github.com/bionicotaku/lingo-utils/outbox/store"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestEventHandlerRunsPipeline(t *testing.T) {
	videos := newFakeVideoRepo()
	outboxRepo := &fakeOutboxRepo{}
	handler := newHandler(t, videos, outboxRepo)

	videoID := uuid.New()
	userID := uuid.New()
	evt := &postprocess.Event{
		VideoID:   videoID,
		UserID:    userID,
		FileURL:   "gs://media-bucket/videos/" + videoID.String() + "/source.mp4",
		Platforms: []string{"youtube", "myspace", "tiktok"},
	}

	err := handler.Handle(context.Background(), fakeSession{}, evt, &store.InboxEvent{EventType: events.TypeUploadCompleted})
	require.NoError(t, err)

	probe, ok := videos.probeResult(videoID)
	require.True(t, ok)
	require.Equal(t, int64(120_000_000), probe.durationMicros)
	require.Equal(t, "1920x1080", probe.resolution)

	thumbs, ok := videos.thumbnails(videoID)
	require.True(t, ok)
	require.Len(t, thumbs, 2)

	fanout := outboxRepo.byType(events.TypeTranscodeRequested)
	require.Len(t, fanout, 1)

	var payload events.TranscodeRequested
	require.NoError(t, json.Unmarshal(fanout[0].Payload, &payload))
	require.Equal(t, videoID.String(), payload.VideoID)
	require.Equal(t, userID.String(), payload.UserID)
	// 未知平台在解扇出前被过滤掉。
	require.Equal(t, []string{"youtube", "tiktok"}, payload.Platforms)
}

func TestEventHandlerIgnoresForeignEventTypes(t *testing.T) {
	videos := newFakeVideoRepo()
	outboxRepo := &fakeOutboxRepo{}
	handler := newHandler(t, videos, outboxRepo)

	evt := &postprocess.Event{
		VideoID: uuid.New(),
		UserID:  uuid.New(),
		FileURL: "gs://media-bucket/videos/x/source.mp4",
	}

	err := handler.Handle(context.Background(), fakeSession{}, evt, &store.InboxEvent{EventType: events.TypePublishFinished})
	require.NoError(t, err)
	require.Empty(t, videos.probeCalls())
	require.Empty(t, outboxRepo.byType(events.TypeTranscodeRequested))
}

func TestEventHandlerRejectsMissingPayload(t *testing.T) {
	videos := newFakeVideoRepo()
	handler := newHandler(t, videos, &fakeOutboxRepo{})

	err := handler.Handle(context.Background(), fakeSession{}, nil, &store.InboxEvent{EventType: events.TypeUploadCompleted})
	require.Error(t, err)

	err = handler.Handle(context.Background(), fakeSession{}, &postprocess.Event{VideoID: uuid.New()}, nil)
	require.Error(t, err)
}

func newHandler(t *testing.T, videos *fakeVideoRepo, outboxRepo *fakeOutboxRepo) *postprocess.Handler {
	t.Helper()
	logger := log.NewStdLogger(io.Discard)
	progress := services.NewProgressService(fakeProgressRepo{}, logger)
	pipeline, err := services.NewPostProcessService(videos, fakeStorage{}, fakeProbe{}, fakeThumbnailer{}, progress, outboxRepo, logger)
	require.NoError(t, err)
	return postprocess.NewHandler(pipeline, logger)
}

type probeRecord struct {
	durationMicros int64
	resolution     string
}

type fakeVideoRepo struct {
	mu     sync.Mutex
	probes map[uuid.UUID]probeRecord
	thumbs map[uuid.UUID][]string
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{
		probes: make(map[uuid.UUID]probeRecord),
		thumbs: make(map[uuid.UUID][]string),
	}
}

func (r *fakeVideoRepo) SetProbeResult(_ context.Context, _ txmanager.Session, videoID uuid.UUID, durationMicros int64, resolution string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes[videoID] = probeRecord{durationMicros: durationMicros, resolution: resolution}
	return nil
}

func (r *fakeVideoRepo) ReplaceThumbnails(_ context.Context, _ txmanager.Session, videoID uuid.UUID, thumbnails []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.thumbs[videoID] = append([]string(nil), thumbnails...)
	return nil
}

func (r *fakeVideoRepo) probeResult(videoID uuid.UUID) (probeRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.probes[videoID]
	return rec, ok
}

func (r *fakeVideoRepo) thumbnails(videoID uuid.UUID) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	urls, ok := r.thumbs[videoID]
	return urls, ok
}

func (r *fakeVideoRepo) probeCalls() map[uuid.UUID]probeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]probeRecord, len(r.probes))
	for k, v := range r.probes {
		out[k] = v
	}
	return out
}

type fakeOutboxRepo struct {
	mu       sync.Mutex
	messages []repositories.OutboxMessage
}

func (r *fakeOutboxRepo) Enqueue(_ context.Context, _ txmanager.Session, msg repositories.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeOutboxRepo) byType(eventType string) []repositories.OutboxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repositories.OutboxMessage
	for _, msg := range r.messages {
		if msg.EventType == eventType {
			out = append(out, msg)
		}
	}
	return out
}

type fakeProgressRepo struct{}

func (fakeProgressRepo) Upsert(context.Context, txmanager.Session, *po.ProcessingProgress) error {
	return nil
}

func (fakeProgressRepo) ListByVideo(context.Context, txmanager.Session, uuid.UUID) ([]*po.ProcessingProgress, error) {
	return nil, nil
}

type fakeStorage struct{}

func (fakeStorage) Download(context.Context, string, string) error { return nil }

func (fakeStorage) Upload(_ context.Context, _ string, objectName string) (string, int64, error) {
	return "gs://media-bucket/" + objectName, 0, nil
}

func (fakeStorage) Delete(context.Context, string) error { return nil }

type fakeProbe struct{}

func (fakeProbe) Probe(context.Context, string) (*services.ProbeResult, error) {
	return &services.ProbeResult{DurationMicros: 120_000_000, Width: 1920, Height: 1080}, nil
}

type fakeThumbnailer struct{}

func (fakeThumbnailer) Generate(_ context.Context, _ string, videoID uuid.UUID) ([]string, error) {
	prefix := "gs://media-bucket/thumbnails/" + videoID.String()
	return []string{prefix + "/0.jpg", prefix + "/1.jpg"}, nil
}

type fakeSession struct{}

func (fakeSession) Tx() pgx.Tx { return nil }

func (fakeSession) Context() context.Context { return context.Background() }
