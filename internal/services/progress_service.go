package services

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// ProgressRepo 抽象进度记录的持久化操作。
type ProgressRepo interface {
	Upsert(ctx context.Context, sess txmanager.Session, p *po.ProcessingProgress) error
	ListByVideo(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) ([]*po.ProcessingProgress, error)
}

// RecordProgressInput 描述一次进度上报。
type RecordProgressInput struct {
	VideoID  uuid.UUID
	Stage    po.ProcessingStage
	Platform *po.Platform
	Percent  int32
	Message  string
}

// ProgressService 维护分阶段进度记录，同键后写胜出。
type ProgressService struct {
	repo ProgressRepo
	log  *log.Helper
}

// NewProgressService 构造 ProgressService。
func NewProgressService(repo ProgressRepo, logger log.Logger) *ProgressService {
	return &ProgressService{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// Record 上报进度，百分比收敛到 [0, 100]。
// 进度仅用于展示，落库失败时记录日志但不中断上层任务。
func (s *ProgressService) Record(ctx context.Context, input RecordProgressInput) {
	percent := input.Percent
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	progress := &po.ProcessingProgress{
		VideoID:  input.VideoID,
		Stage:    input.Stage,
		Platform: input.Platform,
		Percent:  percent,
	}
	if input.Message != "" {
		msg := truncateMessage(input.Message)
		progress.Message = &msg
	}

	if err := s.repo.Upsert(ctx, nil, progress); err != nil {
		s.log.WithContext(ctx).Warnf("record progress failed: video_id=%s stage=%s err=%v", input.VideoID, input.Stage, err)
	}
}

// List 返回指定视频的全部进度记录。
func (s *ProgressService) List(ctx context.Context, videoID uuid.UUID) ([]*po.ProcessingProgress, error) {
	records, err := s.repo.ListByVideo(ctx, nil, videoID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return records, nil
}
