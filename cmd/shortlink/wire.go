//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"shortlink/internal/biz"
	"shortlink/internal/conf"
	"shortlink/internal/data"
	"shortlink/internal/infra/eventbus"
	"shortlink/internal/ingest"
	"shortlink/internal/server"
	"shortlink/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Shortener, *conf.Ingest, *conf.Retention, *conf.Geoip, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		server.ProviderSet,
		service.ProviderSet,
		biz.ProviderSet,
		data.ProviderSet,
		eventbus.ProviderSet,
		provideShortenerConfig,
		provideRetentionConfig,
		provideGeolocator,
		providePipeline,
		wire.Bind(new(biz.EventPublisher), new(*eventbus.EventBus)),
		wire.Bind(new(ingest.Sink), new(*ingest.Pipeline)),
		newApp,
	))
}
