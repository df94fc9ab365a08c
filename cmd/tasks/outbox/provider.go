package main

import (
	"context"
	"fmt"

	configloader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	"github.com/go-kratos/kratos/v2/log"
)

// messagingBinding 是本进程发布领域事件使用的消息绑定名。
const messagingBinding = "events"

// providePubSubConfig 从具名绑定推导 Pub/Sub 连接配置。
// 绑定缺失时 TopicID 为空，中继随之禁用。
func providePubSubConfig(mc configloader.MessagingConfig) gcpubsub.Config {
	binding, ok := mc.Binding(messagingBinding)
	if !ok {
		return gcpubsub.Config{}
	}
	return gcpubsub.Config{
		ProjectID:        mc.ProjectID,
		TopicID:          binding.Topic,
		EnableLogging:    mc.EnableLogging,
		EnableMetrics:    mc.EnableMetrics,
		EmulatorEndpoint: mc.EmulatorEndpoint,
	}
}

// providePublisher 按配置装配 Pub/Sub 发布端。
func providePublisher(ctx context.Context, pubCfg gcpubsub.Config, logger log.Logger) (gcpubsub.Publisher, func(), error) {
	if pubCfg.TopicID == "" {
		return nil, func() {}, nil
	}

	component, cleanup, err := gcpubsub.NewComponent(ctx, pubCfg, gcpubsub.Dependencies{Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub component for %q: %w", messagingBinding, err)
	}
	return gcpubsub.ProvidePublisher(component), cleanup, nil
}
