package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// resizeSpec 定义某个画幅比例的目标尺寸。
type resizeSpec struct {
	Width  int32
	Height int32
}

// resizeSpecs 是支持的画幅比例及其目标尺寸。
var resizeSpecs = map[po.AspectRatio]resizeSpec{
	po.AspectRatioVertical:  {Width: 1080, Height: 1920},
	po.AspectRatioSquare:    {Width: 1080, Height: 1080},
	po.AspectRatioPortrait:  {Width: 1080, Height: 1350},
	po.AspectRatioLandscape: {Width: 1920, Height: 1080},
}

// ResizeRepo 抽象重制记录读写。
type ResizeRepo interface {
	Create(ctx context.Context, sess txmanager.Session, resize *po.VideoResize) (*po.VideoResize, error)
	GetByID(ctx context.Context, sess txmanager.Session, resizeID uuid.UUID) (*po.VideoResize, error)
	MarkProcessing(ctx context.Context, sess txmanager.Session, resizeID uuid.UUID) error
	MarkCompleted(ctx context.Context, sess txmanager.Session, resizeID uuid.UUID, outputURL string, outputSize int64) error
	MarkFailed(ctx context.Context, sess txmanager.Session, resizeID uuid.UUID, message string) error
}

// ResizeVideoRepo 抽象重制阶段需要的视频读取。
type ResizeVideoRepo interface {
	GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
}

// ResizeConfig 是重制功能的运行参数。
type ResizeConfig struct {
	CreditCost int64 // 每个比例消耗的点数
}

// RequestResizeInput 描述一次按比例重制请求。
type RequestResizeInput struct {
	UserID  uuid.UUID
	VideoID uuid.UUID
	Ratios  []po.AspectRatio
}

// ResizeService 负责画幅重制的受理与执行。
// 受理前先扣点:扣点失败则不创建任何记录(fail-closed);
// 扣点成功后在一个事务里创建记录并按比例登记执行事件。
type ResizeService struct {
	resizes  ResizeRepo
	videos   ResizeVideoRepo
	storage  Storage
	worker   Transcoder
	credits  CreditLedger
	progress *ProgressService
	outbox   OutboxWriter
	tx       txmanager.Manager
	cfg      ResizeConfig
	log      *log.Helper
	now      func() time.Time
}

// NewResizeService 构造 ResizeService。
func NewResizeService(resizes ResizeRepo, videos ResizeVideoRepo, storage Storage, worker Transcoder, credits CreditLedger, progress *ProgressService, outbox OutboxWriter, tx txmanager.Manager, cfg ResizeConfig, logger log.Logger) (*ResizeService, error) {
	switch {
	case resizes == nil:
		return nil, errors.New("resize service: resize repository is required")
	case videos == nil:
		return nil, errors.New("resize service: video repository is required")
	case storage == nil:
		return nil, errors.New("resize service: storage is required")
	case worker == nil:
		return nil, errors.New("resize service: transcoder is required")
	case credits == nil:
		return nil, errors.New("resize service: credit ledger is required")
	case progress == nil:
		return nil, errors.New("resize service: progress service is required")
	case outbox == nil:
		return nil, errors.New("resize service: outbox writer is required")
	case tx == nil:
		return nil, errors.New("resize service: transaction manager is required")
	}
	if cfg.CreditCost <= 0 {
		cfg.CreditCost = 1
	}
	return &ResizeService{
		resizes:  resizes,
		videos:   videos,
		storage:  storage,
		worker:   worker,
		credits:  credits,
		progress: progress,
		outbox:   outbox,
		tx:       tx,
		cfg:      cfg,
		log:      log.NewHelper(logger),
		now:      time.Now,
	}, nil
}

// RequestResize 受理一次重制请求。不支持的比例跳过,去重后按有效数量整批扣点,
// 然后为每个比例创建记录并登记独立的执行事件。
func (s *ResizeService) RequestResize(ctx context.Context, input RequestResizeInput) ([]*po.VideoResize, error) {
	if input.UserID == uuid.Nil {
		return nil, kerrors.BadRequest(ReasonResizeInvalid, "user id is required")
	}
	if input.VideoID == uuid.Nil {
		return nil, kerrors.BadRequest(ReasonResizeInvalid, "video id is required")
	}

	seen := make(map[po.AspectRatio]bool, len(input.Ratios))
	ratios := make([]po.AspectRatio, 0, len(input.Ratios))
	for _, ratio := range input.Ratios {
		if _, ok := resizeSpecs[ratio]; !ok {
			s.log.WithContext(ctx).Warnf("resize: skip unsupported aspect ratio: video_id=%s ratio=%s", input.VideoID, ratio)
			continue
		}
		if seen[ratio] {
			continue
		}
		seen[ratio] = true
		ratios = append(ratios, ratio)
	}
	if len(ratios) == 0 {
		return nil, kerrors.BadRequest(ReasonResizeInvalid, "no supported aspect ratio requested")
	}

	video, err := s.videos.GetByID(ctx, nil, input.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, kerrors.NotFound(ReasonVideoNotFound, fmt.Sprintf("video %s not found", input.VideoID))
		}
		return nil, fmt.Errorf("request resize: load video: %w", err)
	}
	if video.FileURL == nil || *video.FileURL == "" {
		return nil, kerrors.Conflict(ReasonResizeInvalid, fmt.Sprintf("video %s has no uploaded file", input.VideoID))
	}

	total := s.cfg.CreditCost * int64(len(ratios))
	if err := s.credits.Charge(ctx, input.UserID, total, "video_resize"); err != nil {
		if errors.Is(err, ErrInsufficientCredit) {
			return nil, kerrors.New(429, ReasonInsufficientCredit, fmt.Sprintf("insufficient credit: need %d", total))
		}
		return nil, fmt.Errorf("request resize: charge credit: %w", err)
	}

	created := make([]*po.VideoResize, 0, len(ratios))
	err = s.tx.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		for _, ratio := range ratios {
			spec := resizeSpecs[ratio]
			record, createErr := s.resizes.Create(txCtx, sess, &po.VideoResize{
				ResizeID:     uuid.New(),
				UserID:       input.UserID,
				VideoID:      input.VideoID,
				AspectRatio:  ratio,
				TargetWidth:  spec.Width,
				TargetHeight: spec.Height,
				Status:       po.VariantStatusPending,
			})
			if createErr != nil {
				return fmt.Errorf("create resize for %s: %w", ratio, createErr)
			}
			created = append(created, record)

			payload := events.ResizeRequested{
				ResizeID: record.ResizeID.String(),
				VideoID:  input.VideoID.String(),
				UserID:   input.UserID.String(),
			}
			envelope, envErr := events.NewEnvelope(events.TypeResizeRequested, events.AggregateTypeResize, record.ResizeID, s.now().UTC(), payload)
			if envErr != nil {
				return fmt.Errorf("build resize event for %s: %w", ratio, envErr)
			}
			if enqErr := enqueueEnvelope(txCtx, s.outbox, sess, envelope); enqErr != nil {
				return fmt.Errorf("enqueue resize event for %s: %w", ratio, enqErr)
			}
		}
		return nil
	})
	if err != nil {
		s.log.WithContext(ctx).Errorf("request resize failed after charge: video_id=%s user_id=%s err=%v", input.VideoID, input.UserID, err)
		return nil, kerrors.InternalServer(ReasonPersistenceFailed, "failed to accept resize request")
	}

	s.log.WithContext(ctx).Infof("resize accepted: video_id=%s ratios=%d cost=%d", input.VideoID, len(ratios), total)
	return created, nil
}

// HandleResize 执行单条重制任务。已完成的记录直接跳过,保证重投递幂等;
// 执行失败落到记录上并返回 nil,避免无休止重投递。
func (s *ResizeService) HandleResize(ctx context.Context, resizeID uuid.UUID) error {
	record, err := s.resizes.GetByID(ctx, nil, resizeID)
	if err != nil {
		if errors.Is(err, repositories.ErrResizeNotFound) {
			s.log.WithContext(ctx).Warnf("resize: record gone, dropping: resize_id=%s", resizeID)
			return nil
		}
		return fmt.Errorf("resize: load record: %w", err)
	}
	if record.Status == po.VariantStatusCompleted {
		s.log.WithContext(ctx).Infof("resize: already completed, skipping: resize_id=%s", resizeID)
		return nil
	}

	video, err := s.videos.GetByID(ctx, nil, record.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			s.failResize(ctx, record, "source video not found")
			return nil
		}
		return fmt.Errorf("resize: load video: %w", err)
	}
	if video.FileURL == nil || *video.FileURL == "" {
		s.failResize(ctx, record, "source video has no file")
		return nil
	}

	if err := s.resizes.MarkProcessing(ctx, nil, resizeID); err != nil {
		return fmt.Errorf("resize: mark processing: %w", err)
	}
	s.progress.Record(ctx, RecordProgressInput{VideoID: record.VideoID, Stage: po.StageResize, Percent: 0})

	tmpDir, err := os.MkdirTemp("", "resize-"+resizeID.String()+"-")
	if err != nil {
		s.failResize(ctx, record, fmt.Sprintf("create temp dir: %v", err))
		return nil
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			s.log.WithContext(ctx).Warnf("resize: cleanup temp dir failed: dir=%s err=%v", tmpDir, rmErr)
		}
	}()

	sourcePath := filepath.Join(tmpDir, "source"+filepath.Ext(*video.FileURL))
	if err := s.storage.Download(ctx, *video.FileURL, sourcePath); err != nil {
		s.failResize(ctx, record, fmt.Sprintf("download source: %v", err))
		return nil
	}

	outputPath := filepath.Join(tmpDir, "output.mp4")
	err = s.worker.Resize(ctx, ResizeJob{
		SourcePath: sourcePath,
		OutputPath: outputPath,
		Width:      record.TargetWidth,
		Height:     record.TargetHeight,
	})
	if err != nil {
		s.failResize(ctx, record, fmt.Sprintf("resize failed: %v", err))
		return nil
	}

	objectName := fmt.Sprintf("resized_videos/%s/%s.mp4", record.VideoID, resizeID)
	outputURL, outputSize, err := s.storage.Upload(ctx, outputPath, objectName)
	if err != nil {
		s.failResize(ctx, record, fmt.Sprintf("upload output: %v", err))
		return nil
	}

	if err := s.resizes.MarkCompleted(ctx, nil, resizeID, outputURL, outputSize); err != nil {
		return fmt.Errorf("resize: mark completed: %w", err)
	}
	s.progress.Record(ctx, RecordProgressInput{VideoID: record.VideoID, Stage: po.StageResize, Percent: 100})

	s.log.WithContext(ctx).Infof("resize done: resize_id=%s ratio=%s size=%d", resizeID, record.AspectRatio, outputSize)
	return nil
}

func (s *ResizeService) failResize(ctx context.Context, record *po.VideoResize, message string) {
	truncated := truncateMessage(message)
	if err := s.resizes.MarkFailed(ctx, nil, record.ResizeID, truncated); err != nil {
		s.log.WithContext(ctx).Errorf("resize: mark failed failed: resize_id=%s err=%v", record.ResizeID, err)
	}
	s.progress.Record(ctx, RecordProgressInput{
		VideoID: record.VideoID,
		Stage:   po.StageResize,
		Percent: 100,
		Message: truncated,
	})
}
