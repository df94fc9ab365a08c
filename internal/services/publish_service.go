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

// PublisherRegistry 按平台索引已注册的发布适配器。
type PublisherRegistry struct {
	publishers map[po.Platform]PlatformPublisher
}

// NewPublisherRegistry 构造注册表。重复的平台以后注册者为准。
func NewPublisherRegistry(publishers []PlatformPublisher) *PublisherRegistry {
	byPlatform := make(map[po.Platform]PlatformPublisher, len(publishers))
	for _, p := range publishers {
		if p == nil {
			continue
		}
		byPlatform[p.Platform()] = p
	}
	return &PublisherRegistry{publishers: byPlatform}
}

// Lookup 返回平台对应的发布适配器。
func (r *PublisherRegistry) Lookup(platform po.Platform) (PlatformPublisher, bool) {
	p, ok := r.publishers[platform]
	return p, ok
}

// PublishUploadRepo 抽象发布记录读写。
type PublishUploadRepo interface {
	Create(ctx context.Context, sess txmanager.Session, input repositories.CreateUploadInput) (*po.VideoUpload, error)
	GetByID(ctx context.Context, sess txmanager.Session, uploadID uuid.UUID) (*po.VideoUpload, error)
	MarkProcessing(ctx context.Context, sess txmanager.Session, uploadID uuid.UUID, platformVideoID, platformURL *string) error
	MarkTerminal(ctx context.Context, sess txmanager.Session, uploadID uuid.UUID, status po.UploadStatus, errorMessage *string, publishedAt *time.Time) error
	MarkFailed(ctx context.Context, sess txmanager.Session, uploadID uuid.UUID, message string) error
	ResetForRetry(ctx context.Context, sess txmanager.Session, uploadID uuid.UUID) error
}

// PublishVideoRepo 抽象发布阶段需要的视频读取。
type PublishVideoRepo interface {
	GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
}

// PublishConfig 是发布请求中单个平台的配置。
type PublishConfig struct {
	Platform po.Platform
	Meta     po.PlatformMeta
}

// RequestPublishInput 描述一次多平台发布请求。
type RequestPublishInput struct {
	VideoID uuid.UUID
	UserID  uuid.UUID
	Configs []PublishConfig
}

// ConfirmPublishInput 描述平台侧回调的最终结果。
type ConfirmPublishInput struct {
	UploadID        uuid.UUID
	Outcome         po.UploadStatus // published / rejected / failed
	PlatformVideoID *string
	PlatformURL     *string
	ErrorMessage    *string
}

// PublishService 负责发布请求受理与按平台扇出提交。
// 受理阶段在一个事务里创建全部发布记录并登记扇出事件;
// 扇出阶段各平台互不影响,失败只落到各自的记录。
type PublishService struct {
	uploads  PublishUploadRepo
	videos   PublishVideoRepo
	registry *PublisherRegistry
	status   *StatusService
	progress *ProgressService
	outbox   OutboxWriter
	tx       txmanager.Manager
	log      *log.Helper
	now      func() time.Time
}

// NewPublishService 构造 PublishService。
func NewPublishService(uploads PublishUploadRepo, videos PublishVideoRepo, registry *PublisherRegistry, status *StatusService, progress *ProgressService, outbox OutboxWriter, tx txmanager.Manager, logger log.Logger) (*PublishService, error) {
	switch {
	case uploads == nil:
		return nil, errors.New("publish service: upload repository is required")
	case videos == nil:
		return nil, errors.New("publish service: video repository is required")
	case registry == nil:
		return nil, errors.New("publish service: publisher registry is required")
	case status == nil:
		return nil, errors.New("publish service: status service is required")
	case progress == nil:
		return nil, errors.New("publish service: progress service is required")
	case outbox == nil:
		return nil, errors.New("publish service: outbox writer is required")
	case tx == nil:
		return nil, errors.New("publish service: transaction manager is required")
	}
	return &PublishService{
		uploads:  uploads,
		videos:   videos,
		registry: registry,
		status:   status,
		progress: progress,
		outbox:   outbox,
		tx:       tx,
		log:      log.NewHelper(logger),
		now:      time.Now,
	}, nil
}

// RequestPublish 受理一次多平台发布:为每个平台创建发布记录,
// 并在同一事务内登记扇出事件。视频必须已有源文件。
func (s *PublishService) RequestPublish(ctx context.Context, input RequestPublishInput) ([]*po.VideoUpload, error) {
	if input.VideoID == uuid.Nil {
		return nil, kerrors.BadRequest(ReasonPublishInvalid, "video id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, kerrors.BadRequest(ReasonPublishInvalid, "user id is required")
	}
	if len(input.Configs) == 0 {
		return nil, kerrors.BadRequest(ReasonPublishInvalid, "at least one platform config is required")
	}
	seen := make(map[po.Platform]bool, len(input.Configs))
	for _, cfg := range input.Configs {
		if !cfg.Platform.IsValid() {
			return nil, kerrors.BadRequest(ReasonPublishInvalid, fmt.Sprintf("unknown platform %q", cfg.Platform))
		}
		if seen[cfg.Platform] {
			return nil, kerrors.BadRequest(ReasonPublishInvalid, fmt.Sprintf("duplicate platform %q", cfg.Platform))
		}
		seen[cfg.Platform] = true
	}

	video, err := s.videos.GetByID(ctx, nil, input.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, kerrors.NotFound(ReasonVideoNotFound, fmt.Sprintf("video %s not found", input.VideoID))
		}
		return nil, fmt.Errorf("request publish: load video: %w", err)
	}
	if video.FileURL == nil || *video.FileURL == "" {
		return nil, kerrors.Conflict(ReasonPublishInvalid, fmt.Sprintf("video %s has no uploaded file", input.VideoID))
	}

	created := make([]*po.VideoUpload, 0, len(input.Configs))
	err = s.tx.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		uploadIDs := make([]string, 0, len(input.Configs))
		for _, cfg := range input.Configs {
			upload, createErr := s.uploads.Create(txCtx, sess, repositories.CreateUploadInput{
				VideoID:  input.VideoID,
				Platform: cfg.Platform,
				Meta:     cfg.Meta,
			})
			if createErr != nil {
				return fmt.Errorf("create upload for %s: %w", cfg.Platform, createErr)
			}
			created = append(created, upload)
			uploadIDs = append(uploadIDs, upload.UploadID.String())
		}

		payload := events.PublishRequested{
			VideoID:   input.VideoID.String(),
			UserID:    input.UserID.String(),
			FileURL:   *video.FileURL,
			UploadIDs: uploadIDs,
		}
		envelope, envErr := events.NewEnvelope(events.TypePublishRequested, events.AggregateTypeVideo, input.VideoID, s.now().UTC(), payload)
		if envErr != nil {
			return fmt.Errorf("build publish event: %w", envErr)
		}
		return enqueueEnvelope(txCtx, s.outbox, sess, envelope)
	})
	if err != nil {
		s.log.WithContext(ctx).Errorf("request publish failed: video_id=%s err=%v", input.VideoID, err)
		return nil, kerrors.InternalServer(ReasonPersistenceFailed, "failed to accept publish request")
	}

	s.log.WithContext(ctx).Infof("publish accepted: video_id=%s platforms=%d", input.VideoID, len(created))
	return created, nil
}

// HandlePublishRequested 按发布记录扇出提交。已离开 uploading 状态的记录
// 直接跳过,保证事件重投递幂等;未注册适配器的平台标记失败后继续。
func (s *PublishService) HandlePublishRequested(ctx context.Context, videoID uuid.UUID, fileURL string, uploadIDs []uuid.UUID) error {
	video, err := s.videos.GetByID(ctx, nil, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			s.log.WithContext(ctx).Warnf("publish fan-out: video gone, dropping: video_id=%s", videoID)
			return nil
		}
		return fmt.Errorf("publish fan-out: load video: %w", err)
	}

	var g errgroup.Group
	for _, uploadID := range uploadIDs {
		id := uploadID
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.log.WithContext(ctx).Errorf("publish worker panic: upload_id=%s err=%v", id, r)
					s.failUpload(ctx, id, videoID, nil, fmt.Sprintf("publish panic: %v", r))
				}
			}()
			s.publishOne(ctx, video, fileURL, id)
			return nil
		})
	}
	_ = g.Wait()

	if _, err := s.status.Recompute(ctx, videoID); err != nil {
		s.log.WithContext(ctx).Warnf("publish fan-out: recompute status failed: video_id=%s err=%v", videoID, err)
	}
	return nil
}

// ConfirmPublish 记录平台侧的最终结果。仅 processing 状态可确认。
func (s *PublishService) ConfirmPublish(ctx context.Context, input ConfirmPublishInput) (*po.VideoUpload, error) {
	if input.UploadID == uuid.Nil {
		return nil, kerrors.BadRequest(ReasonUploadNotFound, "upload id is required")
	}
	switch input.Outcome {
	case po.UploadStatusPublished, po.UploadStatusRejected, po.UploadStatusFailed:
	default:
		return nil, kerrors.BadRequest(ReasonPublishInvalid, fmt.Sprintf("invalid outcome %q", input.Outcome))
	}

	upload, err := s.uploads.GetByID(ctx, nil, input.UploadID)
	if err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return nil, kerrors.NotFound(ReasonUploadNotFound, fmt.Sprintf("upload %s not found", input.UploadID))
		}
		return nil, fmt.Errorf("confirm publish: load upload: %w", err)
	}
	if upload.Status != po.UploadStatusProcessing {
		return nil, kerrors.Conflict(ReasonRetryConflict, fmt.Sprintf("upload %s is %s, only processing uploads can be confirmed", input.UploadID, upload.Status))
	}

	var publishedAt *time.Time
	if input.Outcome == po.UploadStatusPublished {
		now := s.now().UTC()
		publishedAt = &now
	}
	var errorMessage *string
	if input.ErrorMessage != nil {
		truncated := truncateMessage(*input.ErrorMessage)
		errorMessage = &truncated
	}
	if err := s.uploads.MarkTerminal(ctx, nil, input.UploadID, input.Outcome, errorMessage, publishedAt); err != nil {
		return nil, fmt.Errorf("confirm publish: mark terminal: %w", err)
	}

	if _, err := s.status.Recompute(ctx, upload.VideoID); err != nil {
		s.log.WithContext(ctx).Warnf("confirm publish: recompute status failed: video_id=%s err=%v", upload.VideoID, err)
	}
	s.notifyFinished(ctx, upload.UploadID, upload.VideoID, upload.Platform, input.Outcome, input.PlatformURL)

	refreshed, err := s.uploads.GetByID(ctx, nil, input.UploadID)
	if err != nil {
		return nil, fmt.Errorf("confirm publish: reload upload: %w", err)
	}
	s.log.WithContext(ctx).Infof("publish confirmed: upload_id=%s platform=%s outcome=%s", input.UploadID, upload.Platform, input.Outcome)
	return refreshed, nil
}

// RetryUpload 重新触发单个失败的发布记录。仅可重试终态(failed/rejected)。
func (s *PublishService) RetryUpload(ctx context.Context, uploadID uuid.UUID) error {
	if uploadID == uuid.Nil {
		return kerrors.BadRequest(ReasonUploadNotFound, "upload id is required")
	}

	upload, err := s.uploads.GetByID(ctx, nil, uploadID)
	if err != nil {
		if errors.Is(err, repositories.ErrUploadNotFound) {
			return kerrors.NotFound(ReasonUploadNotFound, fmt.Sprintf("upload %s not found", uploadID))
		}
		return fmt.Errorf("retry upload: load upload: %w", err)
	}
	if !upload.Status.IsRetryable() {
		return kerrors.Conflict(ReasonRetryConflict, fmt.Sprintf("upload %s is %s, only failed or rejected uploads can be retried", uploadID, upload.Status))
	}

	video, err := s.videos.GetByID(ctx, nil, upload.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return kerrors.NotFound(ReasonVideoNotFound, fmt.Sprintf("video %s not found", upload.VideoID))
		}
		return fmt.Errorf("retry upload: load video: %w", err)
	}
	if video.FileURL == nil || *video.FileURL == "" {
		return kerrors.Conflict(ReasonRetryConflict, fmt.Sprintf("video %s has no source file", upload.VideoID))
	}

	if err := s.uploads.ResetForRetry(ctx, nil, uploadID); err != nil {
		return fmt.Errorf("retry upload: reset: %w", err)
	}

	payload := events.PublishRequested{
		VideoID:   upload.VideoID.String(),
		UserID:    video.UserID.String(),
		FileURL:   *video.FileURL,
		UploadIDs: []string{uploadID.String()},
	}
	envelope, err := events.NewEnvelope(events.TypePublishRequested, events.AggregateTypeVideo, upload.VideoID, s.now().UTC(), payload)
	if err != nil {
		return fmt.Errorf("retry upload: build event: %w", err)
	}
	if err := enqueueEnvelope(ctx, s.outbox, nil, envelope); err != nil {
		return fmt.Errorf("retry upload: enqueue event: %w", err)
	}

	// 聚合状态不在这里回写:重试扇出自身的 fan-in 会重新归约。
	s.log.WithContext(ctx).Infof("publish retry queued: upload_id=%s platform=%s", uploadID, upload.Platform)
	return nil
}

// publishOne 提交单条发布记录。所有失败都吸收为记录上的 failed 状态。
func (s *PublishService) publishOne(ctx context.Context, video *po.Video, fileURL string, uploadID uuid.UUID) {
	upload, err := s.uploads.GetByID(ctx, nil, uploadID)
	if err != nil {
		s.log.WithContext(ctx).Errorf("publish: load upload failed: upload_id=%s err=%v", uploadID, err)
		return
	}
	if upload.Status != po.UploadStatusUploading {
		s.log.WithContext(ctx).Infof("publish: skip upload in state %s: upload_id=%s", upload.Status, uploadID)
		return
	}

	platform := upload.Platform
	defer func() {
		if r := recover(); r != nil {
			s.log.WithContext(ctx).Errorf("publish worker panic: upload_id=%s platform=%s err=%v", uploadID, platform, r)
			s.failUpload(ctx, uploadID, upload.VideoID, &platform, fmt.Sprintf("publish panic: %v", r))
		}
	}()

	publisher, ok := s.registry.Lookup(platform)
	if !ok {
		s.failUpload(ctx, uploadID, upload.VideoID, &platform, fmt.Sprintf("unsupported platform: %s", platform))
		return
	}

	s.progress.Record(ctx, RecordProgressInput{VideoID: upload.VideoID, Stage: po.StagePublish, Platform: &platform, Percent: 0})

	outcome, err := publisher.Publish(ctx, PublishJob{Upload: upload, Video: video, FileURL: fileURL})
	if err != nil {
		s.log.WithContext(ctx).Warnf("publish failed: upload_id=%s platform=%s err=%v", uploadID, platform, err)
		s.failUpload(ctx, uploadID, upload.VideoID, &platform, fmt.Sprintf("publish failed: %v", err))
		return
	}

	var platformVideoID, platformURL *string
	if outcome.PlatformVideoID != "" {
		platformVideoID = &outcome.PlatformVideoID
	}
	if outcome.PlatformURL != "" {
		platformURL = &outcome.PlatformURL
	}
	if err := s.uploads.MarkProcessing(ctx, nil, uploadID, platformVideoID, platformURL); err != nil {
		s.log.WithContext(ctx).Errorf("publish: mark processing failed: upload_id=%s err=%v", uploadID, err)
		s.failUpload(ctx, uploadID, upload.VideoID, &platform, fmt.Sprintf("persist publish submission failed: %v", err))
		return
	}

	s.progress.Record(ctx, RecordProgressInput{VideoID: upload.VideoID, Stage: po.StagePublish, Platform: &platform, Percent: 100})
	s.notifyFinished(ctx, uploadID, upload.VideoID, platform, po.UploadStatusProcessing, platformURL)
}

func (s *PublishService) failUpload(ctx context.Context, uploadID, videoID uuid.UUID, platform *po.Platform, message string) {
	truncated := truncateMessage(message)
	if err := s.uploads.MarkFailed(ctx, nil, uploadID, truncated); err != nil {
		s.log.WithContext(ctx).Errorf("publish: mark failed failed: upload_id=%s err=%v", uploadID, err)
	}
	s.progress.Record(ctx, RecordProgressInput{
		VideoID:  videoID,
		Stage:    po.StagePublish,
		Platform: platform,
		Percent:  100,
		Message:  truncated,
	})
	if platform != nil {
		s.notifyFinished(ctx, uploadID, videoID, *platform, po.UploadStatusFailed, nil)
	}
}

// notifyFinished 登记单平台发布结果通知(提交成功/终态均发),失败只记日志。
func (s *PublishService) notifyFinished(ctx context.Context, uploadID, videoID uuid.UUID, platform po.Platform, status po.UploadStatus, platformURL *string) {
	payload := events.PublishFinished{
		UploadID:    uploadID.String(),
		VideoID:     videoID.String(),
		Platform:    string(platform),
		Status:      string(status),
		PlatformURL: platformURL,
	}
	envelope, err := events.NewEnvelope(events.TypePublishFinished, events.AggregateTypeVideo, videoID, s.now().UTC(), payload)
	if err != nil {
		s.log.WithContext(ctx).Warnf("publish notification build failed: upload_id=%s err=%v", uploadID, err)
		return
	}
	if err := enqueueEnvelope(ctx, s.outbox, nil, envelope); err != nil {
		s.log.WithContext(ctx).Warnf("publish notification enqueue failed: upload_id=%s err=%v", uploadID, err)
	}
}
