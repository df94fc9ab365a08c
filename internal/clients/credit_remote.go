package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-media/internal/services"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// creditRemote 通过 HTTP 调用额度服务扣费。
// 未配置地址时降级为放行,仅记录告警,避免开发环境强依赖。
type creditRemote struct {
	baseURL string
	client  *http.Client
	log     *log.Helper
}

// NewCreditLedger 构造额度扣费客户端。
func NewCreditLedger(cfg configloader.IntegrationsConfig, logger log.Logger) services.CreditLedger {
	helper := log.NewHelper(logger)
	if cfg.CreditService == "" {
		helper.Warn("credit service address not configured, charges will be skipped")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &creditRemote{
		baseURL: cfg.CreditService,
		client:  &http.Client{Timeout: timeout},
		log:     helper,
	}
}

type chargeRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Amount int64     `json:"amount"`
	Reason string    `json:"reason"`
}

// Charge 扣除用户额度。额度不足返回 services.ErrInsufficientCredit。
func (c *creditRemote) Charge(ctx context.Context, userID uuid.UUID, amount int64, reason string) error {
	if c.baseURL == "" {
		c.log.WithContext(ctx).Warnf("credit charge skipped: user_id=%s amount=%d reason=%s", userID, amount, reason)
		return nil
	}

	body, err := json.Marshal(chargeRequest{UserID: userID, Amount: amount, Reason: reason})
	if err != nil {
		return fmt.Errorf("credit charge: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/credits/charge", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("credit charge: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("credit charge: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return services.ErrInsufficientCredit
	default:
		return fmt.Errorf("credit charge: unexpected status %d", resp.StatusCode)
	}
}
