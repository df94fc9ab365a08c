//go:build wireinject
// +build wireinject

// Package main 为 resize 任务 CLI 提供 Wire 依赖注入定义。
package main

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-media/internal/clients"
	configloader "github.com/bionicotaku/lingo-services-media/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/database"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/gcs"
	"github.com/bionicotaku/lingo-services-media/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-media/internal/repositories"
	"github.com/bionicotaku/lingo-services-media/internal/services"
	resizetasks "github.com/bionicotaku/lingo-services-media/internal/tasks/resize"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wireResizeTask(context.Context, configloader.Params) (*resizeTaskApp, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		logger.ProviderSet,
		database.ProviderSet,
		txmanager.ProviderSet,
		repositories.ProviderSet,
		gcs.ProvideObjectStorage,
		clients.ProviderSet,
		services.NewProgressService,
		services.NewResizeService,
		wire.Bind(new(services.Storage), new(*gcs.ObjectStorage)),
		wire.Bind(new(services.ResizeRepo), new(*repositories.ResizeRepository)),
		wire.Bind(new(services.ResizeVideoRepo), new(*repositories.VideoRepository)),
		wire.Bind(new(services.ProgressRepo), new(*repositories.ProgressRepository)),
		wire.Bind(new(services.OutboxWriter), new(*repositories.OutboxRepository)),
		provideSubscriber,
		resizetasks.ProvideRunner,
		newResizeTaskApp,
	))
}

func newResizeTaskApp(logger log.Logger, runner *resizetasks.Runner) (*resizeTaskApp, error) {
	if runner == nil {
		return &resizeTaskApp{Logger: logger}, nil
	}
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return &resizeTaskApp{
		Runner: runner,
		Logger: logger,
	}, nil
}
