//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"slot4d/internal/biz"
	"slot4d/internal/biz/chart"
	"slot4d/internal/conf"
	"slot4d/internal/data"
	"slot4d/internal/notify"
	"slot4d/internal/server"
	"slot4d/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Game, *conf.Simulation, *conf.Notify, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, notify.ProviderSet, chart.ProviderSet, service.ProviderSet, newApp))
}
