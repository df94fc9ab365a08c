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

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// PostProcessVideoRepo 抽象后处理阶段需要的视频回写操作。
type PostProcessVideoRepo interface {
	SetProbeResult(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, durationMicros int64, resolution string) error
	ReplaceThumbnails(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, thumbnails []string) error
}

// PostProcessInput 描述一次上传完成后的后处理请求。
type PostProcessInput struct {
	VideoID   uuid.UUID
	UserID    uuid.UUID
	FileURL   string
	Platforms []po.Platform
}

// PostProcessService 实现上传后的串行后处理：下载源文件 → 媒体探测 → 缩略图。
// 探测与缩略图失败均不阻断流程，仅记录失败进度；下载失败则中止并交由重投递。
type PostProcessService struct {
	videos   PostProcessVideoRepo
	storage  Storage
	probe    MediaProbe
	thumbs   Thumbnailer
	progress *ProgressService
	outbox   OutboxWriter
	log      *log.Helper
	now      func() time.Time
}

// NewPostProcessService 构造 PostProcessService。
func NewPostProcessService(videos PostProcessVideoRepo, storage Storage, probe MediaProbe, thumbs Thumbnailer, progress *ProgressService, outbox OutboxWriter, logger log.Logger) (*PostProcessService, error) {
	switch {
	case videos == nil:
		return nil, errors.New("postprocess service: video repository is required")
	case storage == nil:
		return nil, errors.New("postprocess service: storage is required")
	case probe == nil:
		return nil, errors.New("postprocess service: media probe is required")
	case thumbs == nil:
		return nil, errors.New("postprocess service: thumbnailer is required")
	case progress == nil:
		return nil, errors.New("postprocess service: progress service is required")
	case outbox == nil:
		return nil, errors.New("postprocess service: outbox writer is required")
	}
	return &PostProcessService{
		videos:   videos,
		storage:  storage,
		probe:    probe,
		thumbs:   thumbs,
		progress: progress,
		outbox:   outbox,
		log:      log.NewHelper(logger),
		now:      time.Now,
	}, nil
}

// Process 执行完整的后处理流水线。
// 源文件只下载一次，探测与缩略图共用同一本地副本；临时目录在所有路径上清理。
// 事件携带非空平台列表时，流水线结束后登记转码扇出事件，保证后处理先于转码。
func (s *PostProcessService) Process(ctx context.Context, input PostProcessInput) error {
	if input.VideoID == uuid.Nil {
		return fmt.Errorf("postprocess: video id is required")
	}
	if input.FileURL == "" {
		return fmt.Errorf("postprocess: file url is required")
	}

	tmpDir, err := os.MkdirTemp("", "postprocess-"+input.VideoID.String()+"-")
	if err != nil {
		return fmt.Errorf("postprocess: create temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			s.log.WithContext(ctx).Warnf("postprocess: cleanup temp dir failed: dir=%s err=%v", tmpDir, rmErr)
		}
	}()

	localPath := filepath.Join(tmpDir, "source"+filepath.Ext(input.FileURL))
	if err := s.storage.Download(ctx, input.FileURL, localPath); err != nil {
		s.progress.Record(ctx, RecordProgressInput{
			VideoID: input.VideoID,
			Stage:   po.StageProbe,
			Percent: 0,
			Message: fmt.Sprintf("download failed: %v", err),
		})
		return fmt.Errorf("postprocess: download source: %w", err)
	}

	s.runProbe(ctx, input, localPath)
	s.runThumbnails(ctx, input, localPath)

	if len(input.Platforms) == 0 {
		s.log.WithContext(ctx).Infof("postprocess done, no linked platforms: video_id=%s", input.VideoID)
		return nil
	}

	occurredAt := s.now().UTC()
	payload := events.TranscodeRequested{
		VideoID:    input.VideoID.String(),
		UserID:     input.UserID.String(),
		FileURL:    input.FileURL,
		Platforms:  events.PlatformStrings(input.Platforms),
		OccurredAt: occurredAt.Format(time.RFC3339Nano),
	}
	envelope, err := events.NewEnvelope(events.TypeTranscodeRequested, events.AggregateTypeVideo, input.VideoID, occurredAt, payload)
	if err != nil {
		return fmt.Errorf("postprocess: build transcode event: %w", err)
	}
	if err := enqueueEnvelope(ctx, s.outbox, nil, envelope); err != nil {
		return fmt.Errorf("postprocess: enqueue transcode event: %w", err)
	}

	s.log.WithContext(ctx).Infof("postprocess done: video_id=%s platforms=%d", input.VideoID, len(input.Platforms))
	return nil
}

// runProbe 执行媒体探测阶段，失败时记录进度后继续。
func (s *PostProcessService) runProbe(ctx context.Context, input PostProcessInput, localPath string) {
	s.progress.Record(ctx, RecordProgressInput{VideoID: input.VideoID, Stage: po.StageProbe, Percent: 0})

	result, err := s.probe.Probe(ctx, localPath)
	if err != nil {
		s.log.WithContext(ctx).Warnf("probe failed: video_id=%s err=%v", input.VideoID, err)
		s.progress.Record(ctx, RecordProgressInput{
			VideoID: input.VideoID,
			Stage:   po.StageProbe,
			Percent: 100,
			Message: fmt.Sprintf("probe failed: %v", err),
		})
		return
	}

	resolution := fmt.Sprintf("%dx%d", result.Width, result.Height)
	if err := s.videos.SetProbeResult(ctx, nil, input.VideoID, result.DurationMicros, resolution); err != nil {
		s.log.WithContext(ctx).Warnf("persist probe result failed: video_id=%s err=%v", input.VideoID, err)
		s.progress.Record(ctx, RecordProgressInput{
			VideoID: input.VideoID,
			Stage:   po.StageProbe,
			Percent: 100,
			Message: fmt.Sprintf("persist probe result failed: %v", err),
		})
		return
	}

	s.progress.Record(ctx, RecordProgressInput{VideoID: input.VideoID, Stage: po.StageProbe, Percent: 100})

	payload := events.ProbeCompleted{
		VideoID:        input.VideoID.String(),
		DurationMicros: result.DurationMicros,
		Resolution:     resolution,
	}
	envelope, err := events.NewEnvelope(events.TypeProbeCompleted, events.AggregateTypeVideo, input.VideoID, s.now().UTC(), payload)
	if err == nil {
		if enqErr := enqueueEnvelope(ctx, s.outbox, nil, envelope); enqErr != nil {
			s.log.WithContext(ctx).Warnf("enqueue probe notification failed: video_id=%s err=%v", input.VideoID, enqErr)
		}
	}
}

// runThumbnails 执行缩略图阶段，成功时整组替换并把选中下标归零。
func (s *PostProcessService) runThumbnails(ctx context.Context, input PostProcessInput, localPath string) {
	s.progress.Record(ctx, RecordProgressInput{VideoID: input.VideoID, Stage: po.StageThumbnail, Percent: 0})

	urls, err := s.thumbs.Generate(ctx, localPath, input.VideoID)
	if err != nil {
		s.log.WithContext(ctx).Warnf("thumbnail generation failed: video_id=%s err=%v", input.VideoID, err)
		s.progress.Record(ctx, RecordProgressInput{
			VideoID: input.VideoID,
			Stage:   po.StageThumbnail,
			Percent: 100,
			Message: fmt.Sprintf("thumbnail generation failed: %v", err),
		})
		return
	}

	if err := s.videos.ReplaceThumbnails(ctx, nil, input.VideoID, urls); err != nil {
		s.log.WithContext(ctx).Warnf("persist thumbnails failed: video_id=%s err=%v", input.VideoID, err)
		s.progress.Record(ctx, RecordProgressInput{
			VideoID: input.VideoID,
			Stage:   po.StageThumbnail,
			Percent: 100,
			Message: fmt.Sprintf("persist thumbnails failed: %v", err),
		})
		return
	}

	s.progress.Record(ctx, RecordProgressInput{VideoID: input.VideoID, Stage: po.StageThumbnail, Percent: 100})
}
