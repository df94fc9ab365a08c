package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

// restPublisher 把视频提交到单个外部平台的接入网关。
// 每个平台一个实例,端点来自配置。
type restPublisher struct {
	platform po.Platform
	baseURL  string
	client   *http.Client
	log      *log.Helper
}

// NewPlatformPublishers 按配置的平台端点构造发布客户端集合。
// 未知平台名只告警不中断启动。
func NewPlatformPublishers(cfg configloader.IntegrationsConfig, logger log.Logger) []services.PlatformPublisher {
	helper := log.NewHelper(logger)
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	publishers := make([]services.PlatformPublisher, 0, len(cfg.PlatformEndpoints))
	for name, endpoint := range cfg.PlatformEndpoints {
		platform := po.Platform(name)
		if !platform.IsValid() {
			helper.Warnf("ignoring endpoint for unknown platform: platform=%s", name)
			continue
		}
		if endpoint == "" {
			helper.Warnf("empty endpoint for platform, skipping: platform=%s", name)
			continue
		}
		publishers = append(publishers, &restPublisher{
			platform: platform,
			baseURL:  endpoint,
			client:   &http.Client{Timeout: timeout},
			log:      helper,
		})
	}
	if len(publishers) == 0 {
		helper.Warn("no platform endpoints configured, publish requests will fail per upload")
	}
	return publishers
}

// Platform 返回此客户端负责的平台。
func (p *restPublisher) Platform() po.Platform {
	return p.platform
}

type publishSubmission struct {
	UploadID    string   `json:"upload_id"`
	VideoID     string   `json:"video_id"`
	UserID      string   `json:"user_id,omitempty"`
	FileURL     string   `json:"file_url"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Visibility  string   `json:"visibility,omitempty"`
	Thumbnail   string   `json:"thumbnail_url,omitempty"`
}

type publishAccepted struct {
	PlatformVideoID string `json:"platform_video_id"`
	PlatformURL     string `json:"platform_url"`
}

// Publish 提交一次发布。返回平台受理后的标识,最终结果通过回调确认。
func (p *restPublisher) Publish(ctx context.Context, job services.PublishJob) (*services.PublishOutcome, error) {
	meta := job.Upload.Meta
	submission := publishSubmission{
		UploadID:   job.Upload.UploadID.String(),
		VideoID:    job.Upload.VideoID.String(),
		FileURL:    job.FileURL,
		Title:      meta.Title,
		Visibility: meta.Visibility,
		Tags:       meta.Tags,
	}
	if meta.Description != nil {
		submission.Description = *meta.Description
	}
	if meta.ThumbnailURL != nil {
		submission.Thumbnail = *meta.ThumbnailURL
	}
	if job.Video != nil {
		submission.UserID = job.Video.UserID.String()
		if submission.Title == "" {
			submission.Title = job.Video.Title
		}
		if submission.Description == "" && job.Video.Description != nil {
			submission.Description = *job.Video.Description
		}
	}

	body, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("publish %s: encode request: %w", p.platform, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/publish", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("publish %s: build request: %w", p.platform, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", p.platform, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("publish %s: unexpected status %d", p.platform, resp.StatusCode)
	}

	var accepted publishAccepted
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return nil, fmt.Errorf("publish %s: decode response: %w", p.platform, err)
	}
	return &services.PublishOutcome{
		PlatformVideoID: accepted.PlatformVideoID,
		PlatformURL:     accepted.PlatformURL,
	}, nil
}
