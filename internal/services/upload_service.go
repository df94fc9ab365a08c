package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/models/events"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// UploadSigner 定义生成 Resumable Upload 签名 URL 的能力。
type UploadSigner interface {
	SignedResumableInitURL(ctx context.Context, bucket, objectName, contentType string, ttl time.Duration) (string, time.Time, error)
}

// UploadVideoRepo 抽象上传用例所需的视频持久化操作，便于测试。
type UploadVideoRepo interface {
	Create(ctx context.Context, sess txmanager.Session, v *po.Video) (*po.Video, error)
	GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
	GetByContentHash(ctx context.Context, sess txmanager.Session, userID uuid.UUID, hash string) (*po.Video, error)
	CountByUserSince(ctx context.Context, sess txmanager.Session, userID uuid.UUID, since time.Time) (int64, error)
	SetFileInfo(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, fileURL string, fileSize *int64, contentHash *string) error
}

// UploadConfig 聚合上传用例的运行参数。
type UploadConfig struct {
	Bucket       string
	SignedURLTTL time.Duration
	MaxFileSize  int64
	MonthlyLimit int64
}

// InitiateUploadInput 为初始化上传的服务层输入。
type InitiateUploadInput struct {
	UserID      uuid.UUID
	Filename    string
	SizeBytes   int64
	ContentType string
	Title       string
	Description *string
}

// InitiateUploadResult 为初始化上传的服务层输出。
type InitiateUploadResult struct {
	VideoID   uuid.UUID
	UploadURL string
	ExpiresAt time.Time
}

// CompleteUploadInput 为上传完成回调的服务层输入。
type CompleteUploadInput struct {
	VideoID     uuid.UUID
	FileURL     string
	FileSize    *int64
	ContentHash *string
}

// CompleteUploadResult 描述上传完成后的推进结果。
type CompleteUploadResult struct {
	VideoID   uuid.UUID
	Platforms []po.Platform
}

// UploadService 实现上传协调用例：登记草稿、签发上传地址、受理完成回调。
// 字节流不经过本服务，客户端直接与对象存储交互。
type UploadService struct {
	videos    UploadVideoRepo
	signer    UploadSigner
	links     PlatformLinks
	outbox    OutboxWriter
	txManager txmanager.Manager
	cfg       UploadConfig
	log       *log.Helper
	now       func() time.Time

	allowedMIME map[string]struct{}
	allowedExt  map[string]struct{}
}

// NewUploadService 创建 UploadService。
func NewUploadService(videos UploadVideoRepo, signer UploadSigner, links PlatformLinks, outbox OutboxWriter, tx txmanager.Manager, cfg UploadConfig, logger log.Logger) (*UploadService, error) {
	switch {
	case videos == nil:
		return nil, errors.New("upload service: video repository is required")
	case signer == nil:
		return nil, errors.New("upload service: signer is required")
	case links == nil:
		return nil, errors.New("upload service: platform links is required")
	case outbox == nil:
		return nil, errors.New("upload service: outbox writer is required")
	case tx == nil:
		return nil, errors.New("upload service: transaction manager is required")
	case cfg.Bucket == "":
		return nil, errors.New("upload service: bucket is required")
	case cfg.SignedURLTTL <= 0:
		return nil, errors.New("upload service: signed url ttl must be positive")
	case cfg.MaxFileSize <= 0:
		return nil, errors.New("upload service: max file size must be positive")
	}

	return &UploadService{
		videos:    videos,
		signer:    signer,
		links:     links,
		outbox:    outbox,
		txManager: tx,
		cfg:       cfg,
		now:       time.Now,
		allowedMIME: map[string]struct{}{
			"video/mp4":                {},
			"video/quicktime":          {},
			"video/x-m4v":              {},
			"video/webm":               {},
			"video/x-msvideo":          {},
			"video/x-matroska":         {},
			"application/octet-stream": {},
		},
		allowedExt: map[string]struct{}{
			".mp4":  {},
			".mov":  {},
			".m4v":  {},
			".webm": {},
			".avi":  {},
			".mkv":  {},
		},
		log: log.NewHelper(logger),
	}, nil
}

// InitiateUpload 校验文件属性与月度配额，创建草稿视频并签发直传地址。
func (s *UploadService) InitiateUpload(ctx context.Context, input InitiateUploadInput) (*InitiateUploadResult, error) {
	if err := s.validateInitiate(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if s.cfg.MonthlyLimit > 0 {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		count, err := s.videos.CountByUserSince(ctx, nil, input.UserID, monthStart)
		if err != nil {
			return nil, fmt.Errorf("check upload quota: %w", err)
		}
		if count >= s.cfg.MonthlyLimit {
			return nil, kerrors.New(429, ReasonUploadQuotaReached,
				fmt.Sprintf("monthly upload limit of %d reached", s.cfg.MonthlyLimit))
		}
	}

	videoID := uuid.New()
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(input.Filename), filepath.Ext(input.Filename))
	}

	video := &po.Video{
		VideoID:     videoID,
		UserID:      input.UserID,
		Title:       title,
		Description: input.Description,
		Status:      po.VideoStatusDraft,
	}
	if _, err := s.videos.Create(ctx, nil, video); err != nil {
		return nil, kerrors.InternalServer(ReasonPersistenceFailed, fmt.Sprintf("create video: %v", err))
	}

	objectName := fmt.Sprintf("raw_videos/%s/%s%s", input.UserID, videoID, strings.ToLower(filepath.Ext(input.Filename)))
	signedURL, expiresAt, err := s.signer.SignedResumableInitURL(ctx, s.cfg.Bucket, objectName, strings.ToLower(input.ContentType), s.cfg.SignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("sign resumable init url: %w", err)
	}

	s.log.WithContext(ctx).Infof("upload initiated: video_id=%s user_id=%s object=%s", videoID, input.UserID, objectName)
	return &InitiateUploadResult{
		VideoID:   videoID,
		UploadURL: signedURL,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// CompleteUpload 受理上传完成回调：回写文件信息、检测重复内容，
// 并在同一事务内写入 media.upload.completed 事件（平台列表可能为空）。
func (s *UploadService) CompleteUpload(ctx context.Context, input CompleteUploadInput) (*CompleteUploadResult, error) {
	if input.VideoID == uuid.Nil {
		return nil, kerrors.BadRequest(ReasonUploadInvalid, "video_id is required")
	}
	if strings.TrimSpace(input.FileURL) == "" {
		return nil, kerrors.BadRequest(ReasonUploadInvalid, "file_url is required")
	}

	video, err := s.videos.GetByID(ctx, nil, input.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, kerrors.NotFound(ReasonVideoNotFound, fmt.Sprintf("video %s not found", input.VideoID))
		}
		return nil, fmt.Errorf("load video: %w", err)
	}

	if input.ContentHash != nil && *input.ContentHash != "" {
		existing, err := s.videos.GetByContentHash(ctx, nil, video.UserID, *input.ContentHash)
		if err != nil && !errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, fmt.Errorf("check duplicate content: %w", err)
		}
		if existing != nil && existing.VideoID != video.VideoID {
			return nil, kerrors.Conflict(ReasonDuplicateContent,
				fmt.Sprintf("content already uploaded as video %s", existing.VideoID))
		}
	}

	platforms, err := s.links.ListLinked(ctx, video.UserID)
	if err != nil {
		return nil, fmt.Errorf("list linked platforms: %w", err)
	}

	payload := events.UploadCompleted{
		VideoID:   video.VideoID.String(),
		UserID:    video.UserID.String(),
		FileURL:   input.FileURL,
		Platforms: events.PlatformStrings(platforms),
	}
	envelope, err := events.NewEnvelope(events.TypeUploadCompleted, events.AggregateTypeVideo, video.VideoID, s.now(), payload)
	if err != nil {
		return nil, fmt.Errorf("build upload completed event: %w", err)
	}

	err = s.txManager.WithinTx(ctx, txmanager.TxOptions{}, func(txCtx context.Context, sess txmanager.Session) error {
		if err := s.videos.SetFileInfo(txCtx, sess, video.VideoID, input.FileURL, input.FileSize, input.ContentHash); err != nil {
			return err
		}
		return enqueueEnvelope(txCtx, s.outbox, sess, envelope)
	})
	if err != nil {
		if kerrors.IsConflict(err) || kerrors.IsNotFound(err) {
			return nil, err
		}
		return nil, kerrors.InternalServer(ReasonPersistenceFailed, fmt.Sprintf("complete upload: %v", err))
	}

	s.log.WithContext(ctx).Infof("upload completed: video_id=%s platforms=%d", video.VideoID, len(platforms))
	return &CompleteUploadResult{
		VideoID:   video.VideoID,
		Platforms: platforms,
	}, nil
}

func (s *UploadService) validateInitiate(input InitiateUploadInput) error {
	if input.UserID == uuid.Nil {
		return kerrors.BadRequest(ReasonUploadInvalid, "user_id is required")
	}
	if strings.TrimSpace(input.Filename) == "" {
		return kerrors.BadRequest(ReasonUploadInvalid, "filename is required")
	}
	ext := strings.ToLower(filepath.Ext(input.Filename))
	if _, ok := s.allowedExt[ext]; !ok {
		return kerrors.BadRequest(ReasonUploadInvalid, fmt.Sprintf("unsupported file extension: %s", ext))
	}
	if _, ok := s.allowedMIME[strings.ToLower(input.ContentType)]; !ok {
		return kerrors.BadRequest(ReasonUploadInvalid, fmt.Sprintf("unsupported content_type: %s", input.ContentType))
	}
	if input.SizeBytes <= 0 {
		return kerrors.BadRequest(ReasonUploadInvalid, "size_bytes must be positive")
	}
	if input.SizeBytes > s.cfg.MaxFileSize {
		return kerrors.BadRequest(ReasonUploadInvalid,
			fmt.Sprintf("size_bytes %d exceeds limit %d", input.SizeBytes, s.cfg.MaxFileSize))
	}
	return nil
}

// enqueueEnvelope 将事件信封序列化后写入 Outbox。
func enqueueEnvelope(ctx context.Context, outbox OutboxWriter, sess txmanager.Session, envelope *events.Envelope) error {
	payload, headers, err := envelope.Encode(ctx)
	if err != nil {
		return err
	}
	return outbox.Enqueue(ctx, sess, repositories.OutboxMessage{
		EventID:       envelope.EventID,
		AggregateType: envelope.AggregateType,
		AggregateID:   envelope.AggregateID,
		EventType:     envelope.EventType,
		Payload:       payload,
		Headers:       headers,
		AvailableAt:   envelope.OccurredAt,
	})
}
