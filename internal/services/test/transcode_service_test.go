package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/bionicotaku/lingo-utils/txmanager"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/google/uuid"
)

type variantRepoStub struct {
	mu        sync.Mutex
	variants  map[uuid.UUID]*po.VideoVariant
	variant   *po.VideoVariant
	completed []repositories.MarkCompletedInput
	failed    map[uuid.UUID]string
}

func newVariantRepoStub() *variantRepoStub {
	return &variantRepoStub{
		variants: make(map[uuid.UUID]*po.VideoVariant),
		failed:   make(map[uuid.UUID]string),
	}
}

func (s *variantRepoStub) UpsertPending(_ context.Context, _ txmanager.Session, videoID uuid.UUID, platform po.Platform) (*po.VideoVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	variant := &po.VideoVariant{
		VariantID: uuid.New(),
		VideoID:   videoID,
		Platform:  platform,
		Status:    po.VariantStatusPending,
	}
	s.variants[variant.VariantID] = variant
	return variant, nil
}

func (s *variantRepoStub) GetByID(_ context.Context, _ txmanager.Session, variantID uuid.UUID) (*po.VideoVariant, error) {
	if s.variant != nil && s.variant.VariantID == variantID {
		return s.variant, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.variants[variantID]; ok {
		return v, nil
	}
	return nil, repositories.ErrVariantNotFound
}

func (s *variantRepoStub) MarkProcessing(_ context.Context, _ txmanager.Session, variantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.variants[variantID]; ok {
		v.Status = po.VariantStatusProcessing
	}
	return nil
}

func (s *variantRepoStub) MarkCompleted(_ context.Context, _ txmanager.Session, input repositories.MarkCompletedInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, input)
	if v, ok := s.variants[input.VariantID]; ok {
		v.Status = po.VariantStatusCompleted
	}
	return nil
}

func (s *variantRepoStub) MarkFailed(_ context.Context, _ txmanager.Session, variantID uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[variantID] = message
	if v, ok := s.variants[variantID]; ok {
		v.Status = po.VariantStatusFailed
	}
	return nil
}

type transcodeVideoRepoStub struct {
	video *po.Video
}

func (s *transcodeVideoRepoStub) GetByID(_ context.Context, _ txmanager.Session, _ uuid.UUID) (*po.Video, error) {
	if s.video == nil {
		return nil, repositories.ErrVideoNotFound
	}
	return s.video, nil
}

type transcoderStub struct {
	mu        sync.Mutex
	jobs      []services.TranscodeJob
	failFor   map[po.Platform]error
	resizeErr error
}

func (s *transcoderStub) Transcode(_ context.Context, job services.TranscodeJob) (*services.TranscodeOutput, error) {
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	if err, ok := s.failFor[job.Platform]; ok {
		return nil, err
	}
	return &services.TranscodeOutput{
		OutputObject: "transcoded_videos/" + job.VideoID.String() + "/" + string(job.Platform) + ".mp4",
		Width:        job.Spec.Width,
		Height:       job.Spec.Height,
		BitrateKbps:  job.Spec.BitrateKbps,
	}, nil
}

func (s *transcoderStub) Resize(_ context.Context, _ services.ResizeJob) error { return s.resizeErr }

func newTranscodeService(t *testing.T, variants *variantRepoStub, videos *transcodeVideoRepoStub, worker *transcoderStub, outbox *outboxRepoStub) *services.TranscodeService {
	t.Helper()
	progress := services.NewProgressService(&progressRepoStub{}, testLogger())
	svc, err := services.NewTranscodeService(variants, videos, worker, progress, outbox, testLogger())
	if err != nil {
		t.Fatalf("NewTranscodeService: %v", err)
	}
	return svc
}

func TestTranscodeService_FanOutAllPlatforms(t *testing.T) {
	variants := newVariantRepoStub()
	worker := &transcoderStub{}
	svc := newTranscodeService(t, variants, &transcodeVideoRepoStub{}, worker, &outboxRepoStub{})

	err := svc.Run(context.Background(), services.TranscodeInput{
		VideoID:   uuid.New(),
		UserID:    uuid.New(),
		FileURL:   "gs://bucket/raw/v.mp4",
		Platforms: []po.Platform{po.PlatformYouTube, po.PlatformTikTok, po.PlatformTwitter},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(worker.jobs) != 3 {
		t.Fatalf("expected 3 transcode jobs, got %d", len(worker.jobs))
	}
	if len(variants.completed) != 3 {
		t.Fatalf("expected 3 completed variants, got %d", len(variants.completed))
	}
	for _, v := range variants.variants {
		if v.Status != po.VariantStatusCompleted {
			t.Fatalf("expected variant %s completed, got %s", v.Platform, v.Status)
		}
	}
}

func TestTranscodeService_SingleFailureDoesNotBlockOthers(t *testing.T) {
	variants := newVariantRepoStub()
	worker := &transcoderStub{failFor: map[po.Platform]error{po.PlatformTikTok: errors.New("encoder crashed")}}
	svc := newTranscodeService(t, variants, &transcodeVideoRepoStub{}, worker, &outboxRepoStub{})

	err := svc.Run(context.Background(), services.TranscodeInput{
		VideoID:   uuid.New(),
		UserID:    uuid.New(),
		FileURL:   "gs://bucket/raw/v.mp4",
		Platforms: []po.Platform{po.PlatformYouTube, po.PlatformTikTok},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(variants.completed) != 1 {
		t.Fatalf("expected 1 completed variant, got %d", len(variants.completed))
	}
	if len(variants.failed) != 1 {
		t.Fatalf("expected 1 failed variant, got %d", len(variants.failed))
	}
	for _, msg := range variants.failed {
		if msg == "" {
			t.Fatal("expected failure message recorded")
		}
	}
}

func TestTranscodeService_SkipsUnknownPlatform(t *testing.T) {
	variants := newVariantRepoStub()
	worker := &transcoderStub{}
	svc := newTranscodeService(t, variants, &transcodeVideoRepoStub{}, worker, &outboxRepoStub{})

	err := svc.Run(context.Background(), services.TranscodeInput{
		VideoID:   uuid.New(),
		UserID:    uuid.New(),
		FileURL:   "gs://bucket/raw/v.mp4",
		Platforms: []po.Platform{"myspace"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(worker.jobs) != 0 {
		t.Fatalf("expected no jobs for unknown platform, got %d", len(worker.jobs))
	}
}

func TestTranscodeService_RetryRequiresFailedState(t *testing.T) {
	variants := newVariantRepoStub()
	variants.variant = &po.VideoVariant{
		VariantID: uuid.New(),
		VideoID:   uuid.New(),
		Platform:  po.PlatformYouTube,
		Status:    po.VariantStatusCompleted,
	}
	svc := newTranscodeService(t, variants, &transcodeVideoRepoStub{}, &transcoderStub{}, &outboxRepoStub{})

	err := svc.RetryVariant(context.Background(), variants.variant.VariantID)
	if err == nil {
		t.Fatal("expected error")
	}
	if kerr := kerrors.FromError(err); kerr == nil || kerr.Reason != services.ReasonRetryConflict {
		t.Fatalf("expected retry conflict, got %v", err)
	}
}

func TestTranscodeService_RetryEnqueuesSinglePlatformEvent(t *testing.T) {
	videoID := uuid.New()
	variants := newVariantRepoStub()
	variants.variant = &po.VideoVariant{
		VariantID: uuid.New(),
		VideoID:   videoID,
		Platform:  po.PlatformTikTok,
		Status:    po.VariantStatusFailed,
	}
	videos := &transcodeVideoRepoStub{video: &po.Video{
		VideoID: videoID,
		UserID:  uuid.New(),
		FileURL: ptr("gs://bucket/raw/v.mp4"),
	}}
	outbox := &outboxRepoStub{}
	svc := newTranscodeService(t, variants, videos, &transcoderStub{}, outbox)

	if err := svc.RetryVariant(context.Background(), variants.variant.VariantID); err != nil {
		t.Fatalf("RetryVariant: %v", err)
	}
	if len(outbox.messages) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(outbox.messages))
	}
	if outbox.messages[0].EventType != events.TypeTranscodeRequested {
		t.Fatalf("unexpected event type: %s", outbox.messages[0].EventType)
	}
	var payload events.TranscodeRequested
	if err := json.Unmarshal(outbox.messages[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Platforms) != 1 || payload.Platforms[0] != string(po.PlatformTikTok) {
		t.Fatalf("expected single tiktok platform, got %v", payload.Platforms)
	}
	if _, err := time.Parse(time.RFC3339Nano, payload.OccurredAt); err != nil {
		t.Fatalf("expected parseable occurred_at, got %q", payload.OccurredAt)
	}
}

func TestTranscodeService_RetryUnknownVariant(t *testing.T) {
	svc := newTranscodeService(t, newVariantRepoStub(), &transcodeVideoRepoStub{}, &transcoderStub{}, &outboxRepoStub{})

	err := svc.RetryVariant(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if kerr := kerrors.FromError(err); kerr == nil || kerr.Reason != services.ReasonVariantNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
