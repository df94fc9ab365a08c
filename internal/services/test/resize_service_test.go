package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/bionicotaku/lingo-utils/txmanager"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/google/uuid"
)

type resizeRepoStub struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*po.VideoResize
	created   []*po.VideoResize
	completed map[uuid.UUID]string
	failed    map[uuid.UUID]string
}

func newResizeRepoStub() *resizeRepoStub {
	return &resizeRepoStub{
		records:   make(map[uuid.UUID]*po.VideoResize),
		completed: make(map[uuid.UUID]string),
		failed:    make(map[uuid.UUID]string),
	}
}

func (s *resizeRepoStub) add(record *po.VideoResize) *po.VideoResize {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ResizeID] = record
	return record
}

func (s *resizeRepoStub) Create(_ context.Context, _ txmanager.Session, resize *po.VideoResize) (*po.VideoResize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[resize.ResizeID] = resize
	s.created = append(s.created, resize)
	return resize, nil
}

func (s *resizeRepoStub) GetByID(_ context.Context, _ txmanager.Session, resizeID uuid.UUID) (*po.VideoResize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[resizeID]; ok {
		return r, nil
	}
	return nil, repositories.ErrResizeNotFound
}

func (s *resizeRepoStub) MarkProcessing(_ context.Context, _ txmanager.Session, resizeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[resizeID]; ok {
		r.Status = po.VariantStatusProcessing
	}
	return nil
}

func (s *resizeRepoStub) MarkCompleted(_ context.Context, _ txmanager.Session, resizeID uuid.UUID, outputURL string, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[resizeID] = outputURL
	if r, ok := s.records[resizeID]; ok {
		r.Status = po.VariantStatusCompleted
	}
	return nil
}

func (s *resizeRepoStub) MarkFailed(_ context.Context, _ txmanager.Session, resizeID uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[resizeID] = message
	if r, ok := s.records[resizeID]; ok {
		r.Status = po.VariantStatusFailed
	}
	return nil
}

type resizeVideoRepoStub struct {
	video *po.Video
}

func (s *resizeVideoRepoStub) GetByID(_ context.Context, _ txmanager.Session, _ uuid.UUID) (*po.Video, error) {
	if s.video == nil {
		return nil, repositories.ErrVideoNotFound
	}
	return s.video, nil
}

type storageStub struct {
	downloadErr error
	uploadURL   string
	uploadSize  int64
	uploadErr   error
}

func (s *storageStub) Download(_ context.Context, _ string, _ string) error { return s.downloadErr }

func (s *storageStub) Upload(_ context.Context, _ string, objectName string) (string, int64, error) {
	if s.uploadErr != nil {
		return "", 0, s.uploadErr
	}
	if s.uploadURL != "" {
		return s.uploadURL, s.uploadSize, nil
	}
	return "gs://bucket/" + objectName, s.uploadSize, nil
}

func (s *storageStub) Delete(_ context.Context, _ string) error { return nil }

type creditLedgerStub struct {
	charges []int64
	err     error
}

func (s *creditLedgerStub) Charge(_ context.Context, _ uuid.UUID, amount int64, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.charges = append(s.charges, amount)
	return nil
}

func newResizeService(t *testing.T, resizes *resizeRepoStub, videos *resizeVideoRepoStub, storage *storageStub, worker *transcoderStub, credits *creditLedgerStub, outbox *outboxRepoStub) *services.ResizeService {
	t.Helper()
	progress := services.NewProgressService(&progressRepoStub{}, testLogger())
	svc, err := services.NewResizeService(resizes, videos, storage, worker, credits, progress, outbox, noopTxManager{}, services.ResizeConfig{CreditCost: 2}, testLogger())
	if err != nil {
		t.Fatalf("NewResizeService: %v", err)
	}
	return svc
}

func readyVideo(videoID uuid.UUID) *po.Video {
	return &po.Video{
		VideoID: videoID,
		UserID:  uuid.New(),
		Status:  po.VideoStatusPublished,
		FileURL: ptr("gs://bucket/raw/v.mp4"),
	}
}

func TestResizeService_RequestDedupesRatiosAndChargesOnce(t *testing.T) {
	videoID := uuid.New()
	resizes := newResizeRepoStub()
	credits := &creditLedgerStub{}
	outbox := &outboxRepoStub{}
	svc := newResizeService(t, resizes, &resizeVideoRepoStub{video: readyVideo(videoID)}, &storageStub{}, &transcoderStub{}, credits, outbox)

	created, err := svc.RequestResize(context.Background(), services.RequestResizeInput{
		UserID:  uuid.New(),
		VideoID: videoID,
		Ratios:  []po.AspectRatio{po.AspectRatioVertical, po.AspectRatioSquare, po.AspectRatioVertical},
	})
	if err != nil {
		t.Fatalf("RequestResize: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 records after dedupe, got %d", len(created))
	}
	if len(credits.charges) != 1 || credits.charges[0] != 4 {
		t.Fatalf("expected single charge of 4 credits, got %v", credits.charges)
	}
	if len(outbox.messages) != 2 {
		t.Fatalf("expected one event per ratio, got %d", len(outbox.messages))
	}
	for _, msg := range outbox.messages {
		if msg.EventType != events.TypeResizeRequested {
			t.Fatalf("unexpected event type: %s", msg.EventType)
		}
	}
	if created[0].TargetWidth != 1080 || created[0].TargetHeight != 1920 {
		t.Fatalf("unexpected vertical target size: %dx%d", created[0].TargetWidth, created[0].TargetHeight)
	}
}

func TestResizeService_RequestFiltersUnsupportedRatios(t *testing.T) {
	videoID := uuid.New()
	resizes := newResizeRepoStub()
	credits := &creditLedgerStub{}
	outbox := &outboxRepoStub{}
	svc := newResizeService(t, resizes, &resizeVideoRepoStub{video: readyVideo(videoID)}, &storageStub{}, &transcoderStub{}, credits, outbox)

	created, err := svc.RequestResize(context.Background(), services.RequestResizeInput{
		UserID:  uuid.New(),
		VideoID: videoID,
		Ratios:  []po.AspectRatio{po.AspectRatioVertical, "21:9"},
	})
	if err != nil {
		t.Fatalf("RequestResize: %v", err)
	}
	if len(created) != 1 || created[0].AspectRatio != po.AspectRatioVertical {
		t.Fatalf("expected only the supported ratio created, got %+v", created)
	}
	// 只按有效比例计费。
	if len(credits.charges) != 1 || credits.charges[0] != 2 {
		t.Fatalf("expected charge for 1 ratio, got %v", credits.charges)
	}
	if len(outbox.messages) != 1 {
		t.Fatalf("expected 1 resize event, got %d", len(outbox.messages))
	}
}

func TestResizeService_RequestRejectsUnknownRatio(t *testing.T) {
	svc := newResizeService(t, newResizeRepoStub(), &resizeVideoRepoStub{}, &storageStub{}, &transcoderStub{}, &creditLedgerStub{}, &outboxRepoStub{})

	_, err := svc.RequestResize(context.Background(), services.RequestResizeInput{
		UserID:  uuid.New(),
		VideoID: uuid.New(),
		Ratios:  []po.AspectRatio{"21:9"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if kerr := kerrors.FromError(err); kerr == nil || kerr.Reason != services.ReasonResizeInvalid {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResizeService_InsufficientCreditCreatesNothing(t *testing.T) {
	videoID := uuid.New()
	resizes := newResizeRepoStub()
	credits := &creditLedgerStub{err: services.ErrInsufficientCredit}
	svc := newResizeService(t, resizes, &resizeVideoRepoStub{video: readyVideo(videoID)}, &storageStub{}, &transcoderStub{}, credits, &outboxRepoStub{})

	_, err := svc.RequestResize(context.Background(), services.RequestResizeInput{
		UserID:  uuid.New(),
		VideoID: videoID,
		Ratios:  []po.AspectRatio{po.AspectRatioSquare},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if kerr := kerrors.FromError(err); kerr == nil || kerr.Reason != services.ReasonInsufficientCredit {
		t.Fatalf("expected insufficient credit, got %v", err)
	}
	if len(resizes.created) != 0 {
		t.Fatalf("expected no records created when charge fails, got %d", len(resizes.created))
	}
}

func TestResizeService_RequestRequiresSourceFile(t *testing.T) {
	videoID := uuid.New()
	videos := &resizeVideoRepoStub{video: &po.Video{VideoID: videoID, Status: po.VideoStatusDraft}}
	svc := newResizeService(t, newResizeRepoStub(), videos, &storageStub{}, &transcoderStub{}, &creditLedgerStub{}, &outboxRepoStub{})

	_, err := svc.RequestResize(context.Background(), services.RequestResizeInput{
		UserID:  uuid.New(),
		VideoID: videoID,
		Ratios:  []po.AspectRatio{po.AspectRatioSquare},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !kerrors.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestResizeService_HandleSkipsCompletedRecord(t *testing.T) {
	videoID := uuid.New()
	resizes := newResizeRepoStub()
	record := resizes.add(&po.VideoResize{
		ResizeID:    uuid.New(),
		VideoID:     videoID,
		AspectRatio: po.AspectRatioSquare,
		Status:      po.VariantStatusCompleted,
	})
	worker := &transcoderStub{}
	svc := newResizeService(t, resizes, &resizeVideoRepoStub{video: readyVideo(videoID)}, &storageStub{}, worker, &creditLedgerStub{}, &outboxRepoStub{})

	if err := svc.HandleResize(context.Background(), record.ResizeID); err != nil {
		t.Fatalf("HandleResize: %v", err)
	}
	if len(resizes.completed) != 0 {
		t.Fatal("expected no rewrite of completed record")
	}
}

func TestResizeService_HandleCompletesAndUploads(t *testing.T) {
	videoID := uuid.New()
	resizes := newResizeRepoStub()
	record := resizes.add(&po.VideoResize{
		ResizeID:     uuid.New(),
		VideoID:      videoID,
		AspectRatio:  po.AspectRatioVertical,
		TargetWidth:  1080,
		TargetHeight: 1920,
		Status:       po.VariantStatusPending,
	})
	storage := &storageStub{uploadSize: 2048}
	svc := newResizeService(t, resizes, &resizeVideoRepoStub{video: readyVideo(videoID)}, storage, &transcoderStub{}, &creditLedgerStub{}, &outboxRepoStub{})

	if err := svc.HandleResize(context.Background(), record.ResizeID); err != nil {
		t.Fatalf("HandleResize: %v", err)
	}
	url, ok := resizes.completed[record.ResizeID]
	if !ok {
		t.Fatal("expected record completed")
	}
	if url == "" {
		t.Fatal("expected output url persisted")
	}
}

func TestResizeService_HandleWorkerFailureMarksRecord(t *testing.T) {
	videoID := uuid.New()
	resizes := newResizeRepoStub()
	record := resizes.add(&po.VideoResize{
		ResizeID:    uuid.New(),
		VideoID:     videoID,
		AspectRatio: po.AspectRatioSquare,
		Status:      po.VariantStatusPending,
	})
	worker := &transcoderStub{resizeErr: errors.New("scale filter failed")}
	svc := newResizeService(t, resizes, &resizeVideoRepoStub{video: readyVideo(videoID)}, &storageStub{}, worker, &creditLedgerStub{}, &outboxRepoStub{})

	if err := svc.HandleResize(context.Background(), record.ResizeID); err != nil {
		t.Fatalf("expected failure absorbed, got %v", err)
	}
	if msg, ok := resizes.failed[record.ResizeID]; !ok || msg == "" {
		t.Fatal("expected failure persisted on record")
	}
}

func TestResizeService_HandleUnknownRecordDropped(t *testing.T) {
	svc := newResizeService(t, newResizeRepoStub(), &resizeVideoRepoStub{}, &storageStub{}, &transcoderStub{}, &creditLedgerStub{}, &outboxRepoStub{})

	if err := svc.HandleResize(context.Background(), uuid.New()); err != nil {
		t.Fatalf("expected missing record dropped, got %v", err)
	}
}
