package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// platformSpecs 定义各平台的目标编码参数。
var platformSpecs = map[po.Platform]TranscodeSpec{
	po.PlatformYouTube:   {Width: 1920, Height: 1080, BitrateKbps: 8000},
	po.PlatformTikTok:    {Width: 1080, Height: 1920, BitrateKbps: 6000},
	po.PlatformInstagram: {Width: 1080, Height: 1350, BitrateKbps: 5000},
	po.PlatformTwitter:   {Width: 1280, Height: 720, BitrateKbps: 5000},
}

// SpecForPlatform 返回平台的转码参数,未知平台返回 false。
func SpecForPlatform(platform po.Platform) (TranscodeSpec, bool) {
	spec, ok := platformSpecs[platform]
	return spec, ok
}

// TranscodeVariantRepo 抽象转码记录的读写。
type TranscodeVariantRepo interface {
	UpsertPending(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, platform po.Platform) (*po.VideoVariant, error)
	GetByID(ctx context.Context, sess txmanager.Session, variantID uuid.UUID) (*po.VideoVariant, error)
	MarkProcessing(ctx context.Context, sess txmanager.Session, variantID uuid.UUID) error
	MarkCompleted(ctx context.Context, sess txmanager.Session, input repositories.MarkCompletedInput) error
	MarkFailed(ctx context.Context, sess txmanager.Session, variantID uuid.UUID, message string) error
}

// TranscodeVideoRepo 抽象转码阶段需要的视频读取。
type TranscodeVideoRepo interface {
	GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
}

// TranscodeInput 描述一次转码扇出请求。
type TranscodeInput struct {
	VideoID   uuid.UUID
	UserID    uuid.UUID
	FileURL   string
	Platforms []po.Platform
}

// TranscodeService 负责按平台扇出转码。每个平台独立推进:
// 单个平台失败只标记自身记录,不影响其余平台,也不中止整批任务。
type TranscodeService struct {
	variants   TranscodeVariantRepo
	videos     TranscodeVideoRepo
	transcoder Transcoder
	progress   *ProgressService
	outbox     OutboxWriter
	log        *log.Helper
	now        func() time.Time
}

// NewTranscodeService 构造 TranscodeService。
func NewTranscodeService(variants TranscodeVariantRepo, videos TranscodeVideoRepo, transcoder Transcoder, progress *ProgressService, outbox OutboxWriter, logger log.Logger) (*TranscodeService, error) {
	switch {
	case variants == nil:
		return nil, errors.New("transcode service: variant repository is required")
	case videos == nil:
		return nil, errors.New("transcode service: video repository is required")
	case transcoder == nil:
		return nil, errors.New("transcode service: transcoder is required")
	case progress == nil:
		return nil, errors.New("transcode service: progress service is required")
	case outbox == nil:
		return nil, errors.New("transcode service: outbox writer is required")
	}
	return &TranscodeService{
		variants:   variants,
		videos:     videos,
		transcoder: transcoder,
		progress:   progress,
		outbox:     outbox,
		log:        log.NewHelper(logger),
		now:        time.Now,
	}, nil
}

// Run 先把全部目标平台的转码记录重置为 pending(重投递时已完成记录也会被重新执行),
// 再并发执行各平台转码。所有 goroutine 都返回 nil,失败只落到各自的记录上。
func (s *TranscodeService) Run(ctx context.Context, input TranscodeInput) error {
	if input.VideoID == uuid.Nil {
		return fmt.Errorf("transcode: video id is required")
	}
	if input.FileURL == "" {
		return fmt.Errorf("transcode: file url is required")
	}

	type armed struct {
		variant *po.VideoVariant
		spec    TranscodeSpec
	}
	targets := make([]armed, 0, len(input.Platforms))
	for _, platform := range input.Platforms {
		spec, ok := SpecForPlatform(platform)
		if !ok {
			s.log.WithContext(ctx).Warnf("transcode: skip unknown platform: video_id=%s platform=%s", input.VideoID, platform)
			continue
		}
		variant, err := s.variants.UpsertPending(ctx, nil, input.VideoID, platform)
		if err != nil {
			return fmt.Errorf("transcode: arm variant %s/%s: %w", input.VideoID, platform, err)
		}
		targets = append(targets, armed{variant: variant, spec: spec})
	}
	if len(targets) == 0 {
		s.log.WithContext(ctx).Infof("transcode: no eligible platforms: video_id=%s", input.VideoID)
		return nil
	}

	var g errgroup.Group
	for _, target := range targets {
		variant := target.variant
		spec := target.spec
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.log.WithContext(ctx).Errorf("transcode worker panic: variant_id=%s platform=%s err=%v", variant.VariantID, variant.Platform, r)
					s.failVariant(ctx, variant, fmt.Sprintf("transcode panic: %v", r))
				}
			}()
			s.transcodeOne(ctx, input, variant, spec)
			return nil
		})
	}
	_ = g.Wait()

	s.log.WithContext(ctx).Infof("transcode fan-out done: video_id=%s platforms=%d", input.VideoID, len(targets))
	return nil
}

// RetryVariant 重新触发单个失败平台的转码。仅 failed 记录可重试。
func (s *TranscodeService) RetryVariant(ctx context.Context, variantID uuid.UUID) error {
	if variantID == uuid.Nil {
		return kerrors.BadRequest(ReasonVariantNotFound, "variant id is required")
	}

	variant, err := s.variants.GetByID(ctx, nil, variantID)
	if err != nil {
		if errors.Is(err, repositories.ErrVariantNotFound) {
			return kerrors.NotFound(ReasonVariantNotFound, fmt.Sprintf("variant %s not found", variantID))
		}
		return fmt.Errorf("transcode retry: load variant: %w", err)
	}
	if variant.Status != po.VariantStatusFailed {
		return kerrors.Conflict(ReasonRetryConflict, fmt.Sprintf("variant %s is %s, only failed variants can be retried", variantID, variant.Status))
	}

	video, err := s.videos.GetByID(ctx, nil, variant.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return kerrors.NotFound(ReasonVideoNotFound, fmt.Sprintf("video %s not found", variant.VideoID))
		}
		return fmt.Errorf("transcode retry: load video: %w", err)
	}
	if video.FileURL == nil || *video.FileURL == "" {
		return kerrors.Conflict(ReasonRetryConflict, fmt.Sprintf("video %s has no source file", variant.VideoID))
	}

	if _, err := s.variants.UpsertPending(ctx, nil, variant.VideoID, variant.Platform); err != nil {
		return fmt.Errorf("transcode retry: reset variant: %w", err)
	}

	occurredAt := s.now().UTC()
	payload := events.TranscodeRequested{
		VideoID:    variant.VideoID.String(),
		UserID:     video.UserID.String(),
		FileURL:    *video.FileURL,
		Platforms:  []string{string(variant.Platform)},
		OccurredAt: occurredAt.Format(time.RFC3339Nano),
	}
	envelope, err := events.NewEnvelope(events.TypeTranscodeRequested, events.AggregateTypeVideo, variant.VideoID, occurredAt, payload)
	if err != nil {
		return fmt.Errorf("transcode retry: build event: %w", err)
	}
	if err := enqueueEnvelope(ctx, s.outbox, nil, envelope); err != nil {
		return fmt.Errorf("transcode retry: enqueue event: %w", err)
	}

	s.log.WithContext(ctx).Infof("transcode retry queued: variant_id=%s video_id=%s platform=%s", variantID, variant.VideoID, variant.Platform)
	return nil
}

// transcodeOne 执行单个平台的转码。所有失败都吸收为记录上的 failed 状态。
func (s *TranscodeService) transcodeOne(ctx context.Context, input TranscodeInput, variant *po.VideoVariant, spec TranscodeSpec) {
	platform := variant.Platform

	if err := s.variants.MarkProcessing(ctx, nil, variant.VariantID); err != nil {
		s.log.WithContext(ctx).Errorf("transcode: mark processing failed: variant_id=%s err=%v", variant.VariantID, err)
		return
	}
	s.progress.Record(ctx, RecordProgressInput{VideoID: input.VideoID, Stage: po.StageTranscode, Platform: &platform, Percent: 0})

	output, err := s.transcoder.Transcode(ctx, TranscodeJob{
		VideoID:  input.VideoID,
		Platform: platform,
		FileURL:  input.FileURL,
		Spec:     spec,
	})
	if err != nil {
		s.log.WithContext(ctx).Warnf("transcode failed: variant_id=%s platform=%s err=%v", variant.VariantID, platform, err)
		s.failVariant(ctx, variant, fmt.Sprintf("transcode failed: %v", err))
		return
	}

	err = s.variants.MarkCompleted(ctx, nil, repositories.MarkCompletedInput{
		VariantID:    variant.VariantID,
		OutputObject: output.OutputObject,
		Width:        output.Width,
		Height:       output.Height,
		BitrateKbps:  output.BitrateKbps,
	})
	if err != nil {
		s.log.WithContext(ctx).Errorf("transcode: mark completed failed: variant_id=%s err=%v", variant.VariantID, err)
		s.failVariant(ctx, variant, fmt.Sprintf("persist transcode output failed: %v", err))
		return
	}

	s.progress.Record(ctx, RecordProgressInput{VideoID: input.VideoID, Stage: po.StageTranscode, Platform: &platform, Percent: 100})
}

func (s *TranscodeService) failVariant(ctx context.Context, variant *po.VideoVariant, message string) {
	if err := s.variants.MarkFailed(ctx, nil, variant.VariantID, truncateMessage(message)); err != nil {
		s.log.WithContext(ctx).Errorf("transcode: mark failed failed: variant_id=%s err=%v", variant.VariantID, err)
	}
	platform := variant.Platform
	s.progress.Record(ctx, RecordProgressInput{
		VideoID:  variant.VideoID,
		Stage:    po.StageTranscode,
		Platform: &platform,
		Percent:  100,
		Message:  truncateMessage(message),
	})
}
