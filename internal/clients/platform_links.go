package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// linksRemote 查询用户资料服务获取已绑定的发布平台。
// 未配置地址时返回空列表,由调用方决定是否放行。
type linksRemote struct {
	baseURL string
	client  *http.Client
	log     *log.Helper
}

// NewPlatformLinks 构造平台绑定查询客户端。
func NewPlatformLinks(cfg configloader.IntegrationsConfig, logger log.Logger) services.PlatformLinks {
	helper := log.NewHelper(logger)
	if cfg.ProfileService == "" {
		helper.Warn("profile service address not configured, platform links unavailable")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &linksRemote{
		baseURL: cfg.ProfileService,
		client:  &http.Client{Timeout: timeout},
		log:     helper,
	}
}

type platformLinksResponse struct {
	Platforms []string `json:"platforms"`
}

// ListLinked 返回用户已绑定的平台。未知平台名会被丢弃。
func (c *linksRemote) ListLinked(ctx context.Context, userID uuid.UUID) ([]po.Platform, error) {
	if c.baseURL == "" {
		c.log.WithContext(ctx).Warnf("platform links lookup skipped: user_id=%s", userID)
		return nil, nil
	}

	url := fmt.Sprintf("%s/v1/users/%s/platform-links", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("platform links: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform links: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform links: unexpected status %d", resp.StatusCode)
	}

	var payload platformLinksResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("platform links: decode response: %w", err)
	}

	linked := make([]po.Platform, 0, len(payload.Platforms))
	for _, name := range payload.Platforms {
		platform := po.Platform(name)
		if !platform.IsValid() {
			c.log.WithContext(ctx).Warnf("ignoring unknown platform link: user_id=%s platform=%s", userID, name)
			continue
		}
		linked = append(linked, platform)
	}
	return linked, nil
}
