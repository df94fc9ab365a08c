package main

import (
	"context"
	"fmt"

	configloader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"

	"github.com/bionicotaku/lingo-utils/gcpubsub"
	"github.com/go-kratos/kratos/v2/log"
)

// messagingBinding 是本进程消费的消息绑定名。
const messagingBinding = "resize"

// provideSubscriber 按绑定配置装配 Pub/Sub 订阅端。
// 绑定缺失时返回 nil，Runner 随之禁用。
func provideSubscriber(ctx context.Context, mc configloader.MessagingConfig, logger log.Logger) (gcpubsub.Subscriber, func(), error) {
	binding, ok := mc.Binding(messagingBinding)
	if !ok || binding.Subscription == "" {
		return nil, func() {}, nil
	}

	component, cleanup, err := gcpubsub.NewComponent(ctx, gcpubsub.Config{
		ProjectID:        mc.ProjectID,
		TopicID:          binding.Topic,
		SubscriptionID:   binding.Subscription,
		EnableLogging:    mc.EnableLogging,
		EnableMetrics:    mc.EnableMetrics,
		EmulatorEndpoint: mc.EmulatorEndpoint,
	}, gcpubsub.Dependencies{Logger: logger})
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub component for %q: %w", messagingBinding, err)
	}
	return gcpubsub.ProvideSubscriber(component), cleanup, nil
}
