package services_test

import (
	"context"
	"testing"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/uuid"
)

func uploadsWith(statuses ...po.UploadStatus) []*po.VideoUpload {
	out := make([]*po.VideoUpload, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, &po.VideoUpload{
			UploadID: uuid.New(),
			VideoID:  uuid.New(),
			Platform: po.PlatformYouTube,
			Status:   status,
		})
	}
	return out
}

func TestComputeVideoStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []po.UploadStatus
		want     po.VideoStatus
	}{
		{"empty", nil, po.VideoStatusUploading},
		{"all published", []po.UploadStatus{po.UploadStatusPublished, po.UploadStatusPublished}, po.VideoStatusPublished},
		{"all failed", []po.UploadStatus{po.UploadStatusFailed, po.UploadStatusFailed}, po.VideoStatusFailed},
		{"failed and rejected", []po.UploadStatus{po.UploadStatusFailed, po.UploadStatusRejected}, po.VideoStatusFailed},
		{"one processing", []po.UploadStatus{po.UploadStatusPublished, po.UploadStatusProcessing}, po.VideoStatusProcessing},
		{"processing beats failed", []po.UploadStatus{po.UploadStatusFailed, po.UploadStatusProcessing}, po.VideoStatusProcessing},
		{"pending submission", []po.UploadStatus{po.UploadStatusUploading, po.UploadStatusPublished}, po.VideoStatusUploading},
		{"mixed terminal", []po.UploadStatus{po.UploadStatusPublished, po.UploadStatusFailed}, po.VideoStatusUploading},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := services.ComputeVideoStatus(uploadsWith(tc.statuses...))
			if got != tc.want {
				t.Fatalf("ComputeVideoStatus(%v) = %s, want %s", tc.statuses, got, tc.want)
			}
		})
	}
}

type statusVideoRepoStub struct {
	video     *po.Video
	setStatus *po.VideoStatus
	setErrMsg *string
	err       error
}

func (s *statusVideoRepoStub) GetByID(_ context.Context, _ txmanager.Session, _ uuid.UUID) (*po.Video, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.video == nil {
		return nil, repositories.ErrVideoNotFound
	}
	return s.video, nil
}

func (s *statusVideoRepoStub) SetStatus(_ context.Context, _ txmanager.Session, _ uuid.UUID, status po.VideoStatus, errorMessage *string) error {
	s.setStatus = &status
	s.setErrMsg = errorMessage
	return nil
}

type statusUploadRepoStub struct {
	uploads []*po.VideoUpload
	err     error
}

func (s *statusUploadRepoStub) ListByVideo(_ context.Context, _ txmanager.Session, _ uuid.UUID) ([]*po.VideoUpload, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.uploads, nil
}

func TestStatusService_RecomputePersistsChange(t *testing.T) {
	videoID := uuid.New()
	videos := &statusVideoRepoStub{video: &po.Video{VideoID: videoID, Status: po.VideoStatusProcessing}}
	uploads := &statusUploadRepoStub{uploads: uploadsWith(po.UploadStatusPublished, po.UploadStatusPublished)}
	svc := services.NewStatusService(videos, uploads, testLogger())

	status, err := svc.Recompute(context.Background(), videoID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if status != po.VideoStatusPublished {
		t.Fatalf("expected published, got %s", status)
	}
	if videos.setStatus == nil || *videos.setStatus != po.VideoStatusPublished {
		t.Fatalf("expected status persisted, got %+v", videos.setStatus)
	}
}

func TestStatusService_RecomputeNoUploadsKeepsCurrent(t *testing.T) {
	videoID := uuid.New()
	videos := &statusVideoRepoStub{video: &po.Video{VideoID: videoID, Status: po.VideoStatusDraft}}
	svc := services.NewStatusService(videos, &statusUploadRepoStub{}, testLogger())

	status, err := svc.Recompute(context.Background(), videoID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if status != po.VideoStatusDraft {
		t.Fatalf("expected draft unchanged, got %s", status)
	}
	if videos.setStatus != nil {
		t.Fatalf("expected no status write, got %s", *videos.setStatus)
	}
}

func TestStatusService_RecomputeUnchangedSkipsWrite(t *testing.T) {
	videoID := uuid.New()
	videos := &statusVideoRepoStub{video: &po.Video{VideoID: videoID, Status: po.VideoStatusProcessing}}
	uploads := &statusUploadRepoStub{uploads: uploadsWith(po.UploadStatusProcessing)}
	svc := services.NewStatusService(videos, uploads, testLogger())

	status, err := svc.Recompute(context.Background(), videoID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if status != po.VideoStatusProcessing {
		t.Fatalf("expected processing, got %s", status)
	}
	if videos.setStatus != nil {
		t.Fatalf("expected no status write on unchanged status")
	}
}

func TestStatusService_RecomputeFailedCarriesErrorMessage(t *testing.T) {
	videoID := uuid.New()
	failed := uploadsWith(po.UploadStatusFailed, po.UploadStatusRejected)
	failed[1].ErrorMessage = ptr("platform rejected the upload")
	videos := &statusVideoRepoStub{video: &po.Video{VideoID: videoID, Status: po.VideoStatusProcessing}}
	svc := services.NewStatusService(videos, &statusUploadRepoStub{uploads: failed}, testLogger())

	status, err := svc.Recompute(context.Background(), videoID)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if status != po.VideoStatusFailed {
		t.Fatalf("expected failed, got %s", status)
	}
	if videos.setErrMsg == nil || *videos.setErrMsg != "platform rejected the upload" {
		t.Fatalf("expected first upload error message persisted, got %+v", videos.setErrMsg)
	}
}
