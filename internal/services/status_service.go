package services

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// ComputeVideoStatus 基于全部平台发布记录推导视频总体状态。
// 纯函数：全部 published → published；全部终态失败（failed/rejected）→ failed；
// 任一 processing → processing；否则 uploading。
func ComputeVideoStatus(uploads []*po.VideoUpload) po.VideoStatus {
	if len(uploads) == 0 {
		return po.VideoStatusUploading
	}

	allPublished := true
	allTerminalFailed := true
	anyProcessing := false

	for _, u := range uploads {
		if u.Status != po.UploadStatusPublished {
			allPublished = false
		}
		if !u.Status.IsRetryable() {
			allTerminalFailed = false
		}
		if u.Status == po.UploadStatusProcessing {
			anyProcessing = true
		}
	}

	switch {
	case allPublished:
		return po.VideoStatusPublished
	case allTerminalFailed:
		return po.VideoStatusFailed
	case anyProcessing:
		return po.VideoStatusProcessing
	default:
		return po.VideoStatusUploading
	}
}

// StatusVideoRepo 抽象状态回写所需的视频持久化操作。
type StatusVideoRepo interface {
	GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
	SetStatus(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, status po.VideoStatus, errorMessage *string) error
}

// StatusUploadRepo 抽象状态推导所需的发布记录查询。
type StatusUploadRepo interface {
	ListByVideo(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) ([]*po.VideoUpload, error)
}

// StatusService 负责在扇出任务汇合后重算并回写视频总体状态。
type StatusService struct {
	videos  StatusVideoRepo
	uploads StatusUploadRepo
	log     *log.Helper
}

// NewStatusService 构造 StatusService。
func NewStatusService(videos StatusVideoRepo, uploads StatusUploadRepo, logger log.Logger) *StatusService {
	return &StatusService{
		videos:  videos,
		uploads: uploads,
		log:     log.NewHelper(logger),
	}
}

// Recompute 重新读取全部发布记录并推导总体状态，有变化时落库。
// 必须基于新读取的记录推导，禁止使用缓存或增量维护的中间值。
func (s *StatusService) Recompute(ctx context.Context, videoID uuid.UUID) (po.VideoStatus, error) {
	uploads, err := s.uploads.ListByVideo(ctx, nil, videoID)
	if err != nil {
		return "", fmt.Errorf("list uploads for status: %w", err)
	}

	video, err := s.videos.GetByID(ctx, nil, videoID)
	if err != nil {
		return "", fmt.Errorf("load video for status: %w", err)
	}

	if len(uploads) == 0 {
		return video.Status, nil
	}

	computed := ComputeVideoStatus(uploads)
	if computed == video.Status {
		return computed, nil
	}

	var errorMessage *string
	if computed == po.VideoStatusFailed {
		for _, u := range uploads {
			if u.ErrorMessage != nil {
				errorMessage = u.ErrorMessage
				break
			}
		}
	}

	if err := s.videos.SetStatus(ctx, nil, videoID, computed, errorMessage); err != nil {
		return "", fmt.Errorf("persist video status: %w", err)
	}

	s.log.WithContext(ctx).Infof("video status recomputed: video_id=%s from=%s to=%s", videoID, video.Status, computed)
	return computed, nil
}
