package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
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

type stubSigner struct {
	url     string
	expires time.Time
	err     error
	calls   int
}

func (s *stubSigner) SignedResumableInitURL(_ context.Context, _ string, _ string, _ string, _ time.Duration) (string, time.Time, error) {
	s.calls++
	return s.url, s.expires, s.err
}

type uploadVideoRepoStub struct {
	created   *po.Video
	video     *po.Video
	duplicate *po.Video
	count     int64
	countErr  error
	fileURL   string
}

func (s *uploadVideoRepoStub) Create(_ context.Context, _ txmanager.Session, v *po.Video) (*po.Video, error) {
	s.created = v
	return v, nil
}

func (s *uploadVideoRepoStub) GetByID(_ context.Context, _ txmanager.Session, _ uuid.UUID) (*po.Video, error) {
	if s.video == nil {
		return nil, repositories.ErrVideoNotFound
	}
	return s.video, nil
}

func (s *uploadVideoRepoStub) GetByContentHash(_ context.Context, _ txmanager.Session, _ uuid.UUID, _ string) (*po.Video, error) {
	if s.duplicate == nil {
		return nil, repositories.ErrVideoNotFound
	}
	return s.duplicate, nil
}

func (s *uploadVideoRepoStub) CountByUserSince(_ context.Context, _ txmanager.Session, _ uuid.UUID, _ time.Time) (int64, error) {
	return s.count, s.countErr
}

func (s *uploadVideoRepoStub) SetFileInfo(_ context.Context, _ txmanager.Session, _ uuid.UUID, fileURL string, _ *int64, _ *string) error {
	s.fileURL = fileURL
	return nil
}

type platformLinksStub struct {
	platforms []po.Platform
	err       error
}

func (s *platformLinksStub) ListLinked(_ context.Context, _ uuid.UUID) ([]po.Platform, error) {
	return s.platforms, s.err
}

func newUploadService(t *testing.T, repo *uploadVideoRepoStub, signer services.UploadSigner, links services.PlatformLinks, outbox *outboxRepoStub) *services.UploadService {
	t.Helper()
	svc, err := services.NewUploadService(repo, signer, links, outbox, noopTxManager{}, services.UploadConfig{
		Bucket:       "bucket",
		SignedURLTTL: 15 * time.Minute,
		MaxFileSize:  1 << 30,
		MonthlyLimit: 10,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}
	return svc
}

func TestUploadService_InitiateSignsObjectPath(t *testing.T) {
	repo := &uploadVideoRepoStub{}
	signer := &stubSigner{url: "https://signed.example", expires: time.Now().Add(15 * time.Minute)}
	svc := newUploadService(t, repo, signer, &platformLinksStub{}, &outboxRepoStub{})

	result, err := svc.InitiateUpload(context.Background(), services.InitiateUploadInput{
		UserID:      uuid.New(),
		Filename:    "holiday.mp4",
		SizeBytes:   2048,
		ContentType: "video/mp4",
	})
	if err != nil {
		t.Fatalf("InitiateUpload: %v", err)
	}
	if result.UploadURL != signer.url {
		t.Fatalf("unexpected upload url: %s", result.UploadURL)
	}
	if result.VideoID == uuid.Nil {
		t.Fatal("expected generated video id")
	}
	if repo.created == nil {
		t.Fatal("expected draft video created")
	}
	if repo.created.Title != "holiday" {
		t.Fatalf("expected title derived from filename, got %q", repo.created.Title)
	}
	if repo.created.Status != po.VideoStatusDraft {
		t.Fatalf("expected draft status, got %s", repo.created.Status)
	}
}

func TestUploadService_InitiateRejectsUnsupportedExtension(t *testing.T) {
	svc := newUploadService(t, &uploadVideoRepoStub{}, &stubSigner{url: "https://signed"}, &platformLinksStub{}, &outboxRepoStub{})

	_, err := svc.InitiateUpload(context.Background(), services.InitiateUploadInput{
		UserID:      uuid.New(),
		Filename:    "document.pdf",
		SizeBytes:   2048,
		ContentType: "video/mp4",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if kerr := kerrors.FromError(err); kerr == nil || kerr.Reason != services.ReasonUploadInvalid {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadService_InitiateRejectsOversizedFile(t *testing.T) {
	svc := newUploadService(t, &uploadVideoRepoStub{}, &stubSigner{url: "https://signed"}, &platformLinksStub{}, &outboxRepoStub{})

	_, err := svc.InitiateUpload(context.Background(), services.InitiateUploadInput{
		UserID:      uuid.New(),
		Filename:    "big.mp4",
		SizeBytes:   (1 << 30) + 1,
		ContentType: "video/mp4",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if kerr := kerrors.FromError(err); kerr == nil || kerr.Reason != services.ReasonUploadInvalid {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadService_InitiateEnforcesMonthlyQuota(t *testing.T) {
	repo := &uploadVideoRepoStub{count: 10}
	svc := newUploadService(t, repo, &stubSigner{url: "https://signed"}, &platformLinksStub{}, &outboxRepoStub{})

	_, err := svc.InitiateUpload(context.Background(), services.InitiateUploadInput{
		UserID:      uuid.New(),
		Filename:    "clip.mov",
		SizeBytes:   2048,
		ContentType: "video/quicktime",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if kerr := kerrors.FromError(err); kerr == nil || kerr.Reason != services.ReasonUploadQuotaReached {
		t.Fatalf("expected quota error, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("expected no draft created when quota exceeded")
	}
}

func TestUploadService_InitiateSignerFailure(t *testing.T) {
	svc := newUploadService(t, &uploadVideoRepoStub{}, &stubSigner{err: errors.New("sign failure")}, &platformLinksStub{}, &outboxRepoStub{})

	_, err := svc.InitiateUpload(context.Background(), services.InitiateUploadInput{
		UserID:      uuid.New(),
		Filename:    "clip.mp4",
		SizeBytes:   2048,
		ContentType: "video/mp4",
	})
	if err == nil {
		t.Fatal("expected error when signer fails")
	}
	if !strings.Contains(err.Error(), "sign resumable init url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUploadService_CompleteUnknownVideo(t *testing.T) {
	svc := newUploadService(t, &uploadVideoRepoStub{}, &stubSigner{url: "https://signed"}, &platformLinksStub{}, &outboxRepoStub{})

	_, err := svc.CompleteUpload(context.Background(), services.CompleteUploadInput{
		VideoID: uuid.New(),
		FileURL: "gs://bucket/raw_videos/u/v.mp4",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if kerr := kerrors.FromError(err); kerr == nil || kerr.Reason != services.ReasonVideoNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUploadService_CompleteDuplicateContent(t *testing.T) {
	userID := uuid.New()
	videoID := uuid.New()
	repo := &uploadVideoRepoStub{
		video:     &po.Video{VideoID: videoID, UserID: userID, Status: po.VideoStatusDraft},
		duplicate: &po.Video{VideoID: uuid.New(), UserID: userID},
	}
	svc := newUploadService(t, repo, &stubSigner{url: "https://signed"}, &platformLinksStub{}, &outboxRepoStub{})

	_, err := svc.CompleteUpload(context.Background(), services.CompleteUploadInput{
		VideoID:     videoID,
		FileURL:     "gs://bucket/raw_videos/u/v.mp4",
		ContentHash: ptr("deadbeef"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if kerr := kerrors.FromError(err); kerr == nil || kerr.Reason != services.ReasonDuplicateContent {
		t.Fatalf("expected duplicate conflict, got %v", err)
	}
}

func TestUploadService_CompleteSameVideoRecallbackIsIdempotent(t *testing.T) {
	userID := uuid.New()
	videoID := uuid.New()
	video := &po.Video{VideoID: videoID, UserID: userID, Status: po.VideoStatusDraft}
	repo := &uploadVideoRepoStub{video: video, duplicate: video}
	outbox := &outboxRepoStub{}
	svc := newUploadService(t, repo, &stubSigner{url: "https://signed"}, &platformLinksStub{}, outbox)

	result, err := svc.CompleteUpload(context.Background(), services.CompleteUploadInput{
		VideoID:     videoID,
		FileURL:     "gs://bucket/raw_videos/u/v.mp4",
		ContentHash: ptr("deadbeef"),
	})
	if err != nil {
		t.Fatalf("CompleteUpload: %v", err)
	}
	if result.VideoID != videoID {
		t.Fatalf("unexpected video id: %s", result.VideoID)
	}
}

func TestUploadService_CompleteEnqueuesUploadCompletedEvent(t *testing.T) {
	userID := uuid.New()
	videoID := uuid.New()
	repo := &uploadVideoRepoStub{video: &po.Video{VideoID: videoID, UserID: userID, Status: po.VideoStatusDraft}}
	links := &platformLinksStub{platforms: []po.Platform{po.PlatformYouTube, po.PlatformTikTok}}
	outbox := &outboxRepoStub{}
	svc := newUploadService(t, repo, &stubSigner{url: "https://signed"}, links, outbox)

	result, err := svc.CompleteUpload(context.Background(), services.CompleteUploadInput{
		VideoID:  videoID,
		FileURL:  "gs://bucket/raw_videos/u/v.mp4",
		FileSize: ptrInt64(4096),
	})
	if err != nil {
		t.Fatalf("CompleteUpload: %v", err)
	}
	if len(result.Platforms) != 2 {
		t.Fatalf("expected 2 linked platforms, got %d", len(result.Platforms))
	}
	if repo.fileURL != "gs://bucket/raw_videos/u/v.mp4" {
		t.Fatalf("expected file info persisted, got %q", repo.fileURL)
	}
	if len(outbox.messages) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(outbox.messages))
	}
	msg := outbox.messages[0]
	if msg.EventType != events.TypeUploadCompleted {
		t.Fatalf("unexpected event type: %s", msg.EventType)
	}
	if msg.AggregateID != videoID {
		t.Fatalf("unexpected aggregate id: %s", msg.AggregateID)
	}
	var payload events.UploadCompleted
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.FileURL != "gs://bucket/raw_videos/u/v.mp4" || len(payload.Platforms) != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestUploadService_CompleteOutboxFailureRollsUp(t *testing.T) {
	videoID := uuid.New()
	repo := &uploadVideoRepoStub{video: &po.Video{VideoID: videoID, UserID: uuid.New(), Status: po.VideoStatusDraft}}
	outbox := &outboxRepoStub{err: errors.New("outbox insert failed")}
	svc := newUploadService(t, repo, &stubSigner{url: "https://signed"}, &platformLinksStub{}, outbox)

	_, err := svc.CompleteUpload(context.Background(), services.CompleteUploadInput{
		VideoID: videoID,
		FileURL: "gs://bucket/raw_videos/u/v.mp4",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if kerr := kerrors.FromError(err); kerr == nil || kerr.Reason != services.ReasonPersistenceFailed {
		t.Fatalf("expected persistence failure, got %v", err)
	}
}
